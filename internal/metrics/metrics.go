package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsIngested counts chain events persisted to the log, by type.
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_events_ingested_total",
			Help: "Total number of chain events persisted",
		},
		[]string{"event_type"},
	)

	// DuplicateEvents counts inserts absorbed by the uniqueness constraint.
	DuplicateEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_events_duplicate_total",
			Help: "Total number of already-present events skipped on insert",
		},
	)

	// PollCycles counts ingestion cycles by outcome.
	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_poll_cycles_total",
			Help: "Total number of poll cycles",
		},
		[]string{"result"},
	)

	// RPCErrors counts chain RPC failures by method.
	RPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_rpc_errors_total",
			Help: "Total number of chain RPC errors",
		},
		[]string{"method"},
	)

	// LastProcessedBlock tracks the ingestion checkpoint.
	LastProcessedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_last_processed_block",
			Help: "Highest block number durably ingested",
		},
	)

	// ReplayDuration tracks full-replay wall time.
	ReplayDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indexer_replay_duration_seconds",
			Help:    "Duration of full-log replay passes",
			Buckets: prometheus.DefBuckets,
		},
	)

	// WorkflowsByStatus tracks the derived-state population.
	WorkflowsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexer_workflows",
			Help: "Number of workflows by derived status",
		},
		[]string{"status"},
	)
)
