// Package ingestor polls the chain for new confirmed workflow events and
// feeds them through the persist-then-reduce path. One recurring cycle runs
// at a fixed interval; a cycle always completes or fails before the next
// fires, so ingestion never overlaps with itself.
package ingestor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clearstream/workflow-indexer/internal/metrics"
	"github.com/clearstream/workflow-indexer/pkg/config"
	"github.com/clearstream/workflow-indexer/pkg/db"
	"github.com/clearstream/workflow-indexer/pkg/ethereum"
	"github.com/clearstream/workflow-indexer/pkg/workflow"
)

// ChainClient is the read-only chain surface the poller consumes.
type ChainClient interface {
	HeadBlockNumber(ctx context.Context) (uint64, error)
	FilterWorkflowLogs(ctx context.Context, fromBlock, toBlock uint64) ([]ethereum.WorkflowLog, error)
	TransactionIndex(ctx context.Context, txHash string) (uint, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Store is the subset of database operations the poller needs.
type Store interface {
	RecordEvent(ctx context.Context, ev workflow.Event) (bool, error)
	GetWorkflowState(ctx context.Context, workflowID string) (*workflow.State, error)
	UpsertWorkflowState(ctx context.Context, state *workflow.State) error
	GetSystemState(ctx context.Context) (*db.SystemState, error)
	SetLastProcessedBlock(ctx context.Context, block uint64) error
}

// Poller ingests confirmed workflow events in bounded block-range chunks.
type Poller struct {
	config *config.EthereumConfig
	chain  ChainClient
	store  Store
	logger *zap.Logger
}

// NewPoller creates a poller.
func NewPoller(cfg *config.EthereumConfig, chain ChainClient, store Store, logger *zap.Logger) *Poller {
	return &Poller{
		config: cfg,
		chain:  chain,
		store:  store,
		logger: logger,
	}
}

// Run executes poll cycles at the configured interval until ctx is canceled.
// An in-flight cycle is allowed to finish before Run returns. RPC failures
// abort the current cycle without advancing the checkpoint; the next tick
// retries from the same position.
func (p *Poller) Run(ctx context.Context) {
	interval := p.config.PollingInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	p.logger.Info("Starting event poller",
		zap.Duration("interval", interval),
		zap.Uint64("confirmation_blocks", p.config.ConfirmationBlocks),
		zap.Uint64("chunk_size", p.config.ChunkSize))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := p.RunCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			p.logger.Warn("Poll cycle failed", zap.Error(err))
			metrics.PollCycles.WithLabelValues("error").Inc()
		}

		select {
		case <-ctx.Done():
			p.logger.Info("Event poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunCycle performs a single poll cycle: determine the confirmed range,
// fetch and ingest its events chunk by chunk, then advance the checkpoint
// to the upper bound even when the range held no events.
func (p *Poller) RunCycle(ctx context.Context) error {
	head, err := p.chain.HeadBlockNumber(ctx)
	if err != nil {
		metrics.RPCErrors.WithLabelValues("head_block_number").Inc()
		return fmt.Errorf("get chain head: %w", err)
	}

	sys, err := p.store.GetSystemState(ctx)
	if err != nil {
		return fmt.Errorf("get system state: %w", err)
	}

	confirmations := p.config.ConfirmationBlocks
	if sys != nil {
		confirmations = sys.ConfirmationBlocks
	}

	if head < confirmations {
		metrics.PollCycles.WithLabelValues("skipped").Inc()
		return nil
	}
	upper := head - confirmations

	lower := p.config.StartBlock
	if sys != nil && sys.LastProcessedBlock > 0 {
		lower = sys.LastProcessedBlock + 1
	}

	if lower > upper {
		// Nothing new and confirmed yet.
		metrics.PollCycles.WithLabelValues("skipped").Inc()
		return nil
	}

	ingested := 0
	for from := lower; from <= upper; from += p.config.ChunkSize {
		to := from + p.config.ChunkSize - 1
		if to > upper {
			to = upper
		}

		n, err := p.ingestRange(ctx, from, to)
		if err != nil {
			return err
		}
		ingested += n
	}

	// Progress must not stall on empty ranges.
	if err := p.store.SetLastProcessedBlock(ctx, upper); err != nil {
		return fmt.Errorf("advance checkpoint: %w", err)
	}
	metrics.LastProcessedBlock.Set(float64(upper))
	metrics.PollCycles.WithLabelValues("ok").Inc()

	if ingested > 0 {
		p.logger.Info("Poll cycle ingested events",
			zap.Uint64("from_block", lower),
			zap.Uint64("to_block", upper),
			zap.Int("events", ingested))
	}
	return nil
}

// ingestRange fetches one chunk of logs, completes their ordering metadata
// through receipt and block lookups, and runs persist-then-reduce per event.
func (p *Poller) ingestRange(ctx context.Context, from, to uint64) (int, error) {
	logs, err := p.chain.FilterWorkflowLogs(ctx, from, to)
	if err != nil {
		metrics.RPCErrors.WithLabelValues("filter_logs").Inc()
		return 0, fmt.Errorf("filter logs [%d, %d]: %w", from, to, err)
	}

	// Receipt and header lookups repeat heavily within a chunk.
	txIndexes := make(map[string]uint)
	blockTimes := make(map[uint64]uint64)

	for _, lg := range logs {
		txIndex, ok := txIndexes[lg.TxHash]
		if !ok {
			txIndex, err = p.chain.TransactionIndex(ctx, lg.TxHash)
			if err != nil {
				metrics.RPCErrors.WithLabelValues("transaction_receipt").Inc()
				return 0, fmt.Errorf("receipt for %s: %w", lg.TxHash, err)
			}
			txIndexes[lg.TxHash] = txIndex
		}

		blockTime, ok := blockTimes[lg.BlockNumber]
		if !ok {
			blockTime, err = p.chain.BlockTimestamp(ctx, lg.BlockNumber)
			if err != nil {
				metrics.RPCErrors.WithLabelValues("block_by_number").Inc()
				return 0, fmt.Errorf("block %d: %w", lg.BlockNumber, err)
			}
			blockTimes[lg.BlockNumber] = blockTime
		}

		ev := workflow.Event{
			TxHash:         lg.TxHash,
			LogIndex:       lg.LogIndex,
			WorkflowID:     lg.WorkflowID,
			Type:           lg.Type,
			Payload:        lg.Payload,
			BlockNumber:    lg.BlockNumber,
			TxIndex:        txIndex,
			BlockTimestamp: blockTime,
		}

		if err := p.ingestEvent(ctx, ev); err != nil {
			return 0, err
		}
	}
	return len(logs), nil
}

// ingestEvent persists one event and folds it into its workflow's derived
// state. Duplicate inserts are success and skip the fold; an event at or
// below the state's last-applied position is likewise skipped.
func (p *Poller) ingestEvent(ctx context.Context, ev workflow.Event) error {
	inserted, err := p.store.RecordEvent(ctx, ev)
	if err != nil {
		return fmt.Errorf("record event %s/%d: %w", ev.TxHash, ev.LogIndex, err)
	}
	if !inserted {
		metrics.DuplicateEvents.Inc()
		p.logger.Debug("Event already present",
			zap.String("tx_hash", ev.TxHash),
			zap.Uint("log_index", ev.LogIndex))
		return nil
	}
	metrics.EventsIngested.WithLabelValues(string(ev.Type)).Inc()

	if !ev.Type.Known() {
		p.logger.Warn("Unknown event type",
			zap.String("event_type", string(ev.Type)),
			zap.String("tx_hash", ev.TxHash),
			zap.Uint("log_index", ev.LogIndex))
		return nil
	}

	prior, err := p.store.GetWorkflowState(ctx, ev.WorkflowID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("get state for workflow %s: %w", ev.WorkflowID, err)
	}

	if prior != nil && !after(ev, prior) {
		p.logger.Debug("Event at or before last applied position",
			zap.String("workflow_id", ev.WorkflowID),
			zap.Uint64("block", ev.BlockNumber),
			zap.Uint("log_index", ev.LogIndex))
		return nil
	}

	next := workflow.Reduce(prior, ev)
	if err := p.store.UpsertWorkflowState(ctx, next); err != nil {
		return fmt.Errorf("upsert state for workflow %s: %w", ev.WorkflowID, err)
	}

	p.logger.Info("Ingested event",
		zap.String("event_type", string(ev.Type)),
		zap.String("workflow_id", ev.WorkflowID),
		zap.Uint64("block", ev.BlockNumber),
		zap.String("status", string(next.Status)))
	return nil
}

// after reports whether the event sits strictly beyond the position already
// folded into the state.
func after(ev workflow.Event, state *workflow.State) bool {
	if ev.BlockNumber != state.LastEventBlock {
		return ev.BlockNumber > state.LastEventBlock
	}
	return ev.LogIndex > state.LastEventLogIndex
}
