// Package replay rebuilds all derived workflow state from the append-only
// event log. It runs to completion at process startup, before the poller or
// any reader is allowed to extend or trust derived state.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clearstream/workflow-indexer/internal/metrics"
	"github.com/clearstream/workflow-indexer/pkg/workflow"
)

// ErrUnordered indicates the event log failed canonical-ordering validation.
// This means the log itself is corrupt; replay aborts without touching
// derived state.
var ErrUnordered = errors.New("event log is not in canonical order")

// Store is the subset of database operations the replay engine needs.
type Store interface {
	ListEvents(ctx context.Context) ([]workflow.Event, error)
	ClearWorkflowStates(ctx context.Context) error
	UpsertWorkflowState(ctx context.Context, state *workflow.State) error
	SetLastProcessedBlock(ctx context.Context, block uint64) error
}

// Result summarizes one replay pass.
type Result struct {
	EventsProcessed  int
	WorkflowsRebuilt int
	Duration         time.Duration
}

// Engine performs full-log replays.
type Engine struct {
	store  Store
	logger *zap.Logger
}

// NewEngine creates a replay engine.
func NewEngine(store Store, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// ReplayAll discards all derived workflow state and recomputes it from the
// event log. Steps, strictly ordered: load events in canonical order,
// validate ordering (fatal on violation), group by workflow, clear the
// derived-state table, fold each group through the reducer, advance the
// checkpoint to the highest block observed.
//
// Running it twice over the same event log produces identical rows.
func (e *Engine) ReplayAll(ctx context.Context) (*Result, error) {
	start := time.Now()
	e.logger.Info("Starting full replay")

	events, err := e.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	if !workflow.IsOrdered(events) {
		return nil, ErrUnordered
	}

	// Group by workflow identity, preserving canonical order both within
	// each group and across group processing (first-seen order).
	groups := make(map[string][]workflow.Event)
	order := make([]string, 0)
	var maxBlock uint64
	for _, ev := range events {
		if !ev.Type.Known() {
			e.logger.Warn("Unknown event type in log",
				zap.String("event_type", string(ev.Type)),
				zap.String("tx_hash", ev.TxHash),
				zap.Uint("log_index", ev.LogIndex))
		}
		if _, seen := groups[ev.WorkflowID]; !seen {
			order = append(order, ev.WorkflowID)
		}
		groups[ev.WorkflowID] = append(groups[ev.WorkflowID], ev)
		if ev.BlockNumber > maxBlock {
			maxBlock = ev.BlockNumber
		}
	}

	if err := e.store.ClearWorkflowStates(ctx); err != nil {
		return nil, fmt.Errorf("clear derived state: %w", err)
	}

	rebuilt := 0
	byStatus := make(map[workflow.Status]int)
	for _, id := range order {
		state := workflow.ReduceFromEvents(groups[id])
		if state == nil {
			continue
		}
		if err := e.store.UpsertWorkflowState(ctx, state); err != nil {
			return nil, fmt.Errorf("write state for workflow %s: %w", id, err)
		}
		byStatus[state.Status]++
		rebuilt++
	}
	for status, n := range byStatus {
		metrics.WorkflowsByStatus.WithLabelValues(string(status)).Set(float64(n))
	}

	if len(events) > 0 {
		if err := e.store.SetLastProcessedBlock(ctx, maxBlock); err != nil {
			return nil, fmt.Errorf("advance checkpoint: %w", err)
		}
		metrics.LastProcessedBlock.Set(float64(maxBlock))
	}

	result := &Result{
		EventsProcessed:  len(events),
		WorkflowsRebuilt: rebuilt,
		Duration:         time.Since(start),
	}

	metrics.ReplayDuration.Observe(result.Duration.Seconds())
	e.logger.Info("Replay complete",
		zap.Int("events_processed", result.EventsProcessed),
		zap.Int("workflows_rebuilt", result.WorkflowsRebuilt),
		zap.Duration("duration", result.Duration))

	return result, nil
}
