// Package db implements the persistent event log and derived-state store on
// PostgreSQL via bun. chain_events is append-only and idempotent on
// (tx_hash, log_index); workflow_states and system_state are derived and
// rebuildable.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/clearstream/workflow-indexer/pkg/db/dao"
	"github.com/clearstream/workflow-indexer/pkg/workflow"
)

// ErrNotFound is returned when a requested workflow has no derived state.
var ErrNotFound = errors.New("workflow not found")

// SystemState is the singleton ingestion checkpoint.
type SystemState struct {
	LastProcessedBlock uint64
	ConfirmationBlocks uint64
	UpdatedAt          time.Time
}

// systemStateID is the primary key of the single system_state row.
const systemStateID = 1

// Store provides database operations for the indexer.
type Store struct {
	db *bun.DB
}

// NewStore creates a store on top of an established bun connection.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordEvent appends a chain event to the log. Returns false without error
// when a row with the same (tx_hash, log_index) already exists; the first
// write for a given key wins and is never overwritten.
func (s *Store) RecordEvent(ctx context.Context, ev workflow.Event) (bool, error) {
	payload, err := workflow.MarshalPayload(ev.Payload)
	if err != nil {
		return false, fmt.Errorf("marshal payload: %w", err)
	}

	row := &dao.ChainEventDao{
		TxHash:         ev.TxHash,
		LogIndex:       int64(ev.LogIndex),
		WorkflowID:     ev.WorkflowID,
		EventType:      string(ev.Type),
		Payload:        payload,
		BlockNumber:    int64(ev.BlockNumber),
		TxIndex:        int64(ev.TxIndex),
		BlockTimestamp: int64(ev.BlockTimestamp),
	}

	res, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (tx_hash, log_index) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert chain event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert chain event: %w", err)
	}
	return affected > 0, nil
}

// ListEvents returns the full event log in canonical order
// (block_number, tx_index, log_index ascending).
func (s *Store) ListEvents(ctx context.Context) ([]workflow.Event, error) {
	var rows []dao.ChainEventDao
	err := s.db.NewSelect().
		Model(&rows).
		OrderExpr("block_number ASC, tx_index ASC, log_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chain events: %w", err)
	}
	return eventsToDomain(rows)
}

// ListEventsByWorkflow returns one workflow's events in canonical order.
func (s *Store) ListEventsByWorkflow(ctx context.Context, workflowID string) ([]workflow.Event, error) {
	var rows []dao.ChainEventDao
	err := s.db.NewSelect().
		Model(&rows).
		Where("workflow_id = ?", workflowID).
		OrderExpr("block_number ASC, tx_index ASC, log_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chain events for workflow %s: %w", workflowID, err)
	}
	return eventsToDomain(rows)
}

// CountEvents returns the total number of stored chain events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	n, err := s.db.NewSelect().
		Model((*dao.ChainEventDao)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count chain events: %w", err)
	}
	return int64(n), nil
}

// UpsertWorkflowState writes the derived state for one workflow.
func (s *Store) UpsertWorkflowState(ctx context.Context, state *workflow.State) error {
	row := stateToDao(state)
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (workflow_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("initiator = EXCLUDED.initiator").
		Set("started_at = EXCLUDED.started_at").
		Set("completed_at = EXCLUDED.completed_at").
		Set("failure_reason = EXCLUDED.failure_reason").
		Set("last_event_block = EXCLUDED.last_event_block").
		Set("last_event_log_index = EXCLUDED.last_event_log_index").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert workflow state %s: %w", state.WorkflowID, err)
	}
	return nil
}

// ClearWorkflowStates wipes the entire derived-state table. Only the replay
// engine calls this, immediately before rebuilding from the event log.
func (s *Store) ClearWorkflowStates(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*dao.WorkflowStateDao)(nil)).
		Where("1=1").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("clear workflow states: %w", err)
	}
	return nil
}

// GetWorkflowState returns the derived state for one workflow, or ErrNotFound.
func (s *Store) GetWorkflowState(ctx context.Context, workflowID string) (*workflow.State, error) {
	row := new(dao.WorkflowStateDao)
	err := s.db.NewSelect().
		Model(row).
		Where("workflow_id = ?", workflowID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow state %s: %w", workflowID, err)
	}
	return stateToDomain(row), nil
}

// ListWorkflowStates returns a page of workflows ordered by start time,
// newest first.
func (s *Store) ListWorkflowStates(ctx context.Context, limit, offset int) ([]*workflow.State, error) {
	var rows []dao.WorkflowStateDao
	err := s.db.NewSelect().
		Model(&rows).
		OrderExpr("started_at DESC, workflow_id ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workflow states: %w", err)
	}

	states := make([]*workflow.State, 0, len(rows))
	for i := range rows {
		states = append(states, stateToDomain(&rows[i]))
	}
	return states, nil
}

// CountWorkflows returns the total number of workflows with derived state.
func (s *Store) CountWorkflows(ctx context.Context) (int64, error) {
	n, err := s.db.NewSelect().
		Model((*dao.WorkflowStateDao)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count workflows: %w", err)
	}
	return int64(n), nil
}

// CountWorkflowsByStatus returns per-status workflow counts.
func (s *Store) CountWorkflowsByStatus(ctx context.Context) (map[workflow.Status]int64, error) {
	var rows []struct {
		Status string `bun:"status"`
		N      int64  `bun:"n"`
	}
	err := s.db.NewSelect().
		Model((*dao.WorkflowStateDao)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS n").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("count workflows by status: %w", err)
	}

	counts := make(map[workflow.Status]int64, len(rows))
	for _, r := range rows {
		counts[workflow.Status(r.Status)] = r.N
	}
	return counts, nil
}

// GetSystemState returns the checkpoint row, or nil when it has not been
// created yet (first boot).
func (s *Store) GetSystemState(ctx context.Context) (*SystemState, error) {
	row := new(dao.SystemStateDao)
	err := s.db.NewSelect().
		Model(row).
		Where("id = ?", systemStateID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get system state: %w", err)
	}
	return &SystemState{
		LastProcessedBlock: uint64(row.LastProcessedBlock),
		ConfirmationBlocks: uint64(row.ConfirmationBlocks),
		UpdatedAt:          row.UpdatedAt,
	}, nil
}

// InitSystemState creates the checkpoint row at first boot, or updates the
// configured confirmation depth on an existing row without moving the
// checkpoint.
func (s *Store) InitSystemState(ctx context.Context, confirmationBlocks uint64) error {
	row := &dao.SystemStateDao{
		ID:                 systemStateID,
		LastProcessedBlock: 0,
		ConfirmationBlocks: int64(confirmationBlocks),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("confirmation_blocks = EXCLUDED.confirmation_blocks").
		Set("updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("init system state: %w", err)
	}
	return nil
}

// SetLastProcessedBlock advances the checkpoint. The value is monotonic: a
// smaller block number than the stored one is silently ignored.
func (s *Store) SetLastProcessedBlock(ctx context.Context, block uint64) error {
	_, err := s.db.NewUpdate().
		Model((*dao.SystemStateDao)(nil)).
		Set("last_processed_block = GREATEST(last_processed_block, ?)", int64(block)).
		Set("updated_at = NOW()").
		Where("id = ?", systemStateID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set last processed block: %w", err)
	}
	return nil
}

func eventsToDomain(rows []dao.ChainEventDao) ([]workflow.Event, error) {
	events := make([]workflow.Event, 0, len(rows))
	for i := range rows {
		ev, err := eventToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func eventToDomain(row *dao.ChainEventDao) (workflow.Event, error) {
	eventType := workflow.EventType(row.EventType)
	payload, err := workflow.UnmarshalPayload(eventType, row.Payload)
	if err != nil {
		return workflow.Event{}, fmt.Errorf("event %s/%d: %w", row.TxHash, row.LogIndex, err)
	}
	return workflow.Event{
		TxHash:         row.TxHash,
		LogIndex:       uint(row.LogIndex),
		WorkflowID:     row.WorkflowID,
		Type:           eventType,
		Payload:        payload,
		BlockNumber:    uint64(row.BlockNumber),
		TxIndex:        uint(row.TxIndex),
		BlockTimestamp: uint64(row.BlockTimestamp),
	}, nil
}

func stateToDao(state *workflow.State) *dao.WorkflowStateDao {
	row := &dao.WorkflowStateDao{
		WorkflowID:        state.WorkflowID,
		Status:            string(state.Status),
		Initiator:         state.Initiator,
		StartedAt:         int64(state.StartedAt),
		FailureReason:     state.FailureReason,
		LastEventBlock:    int64(state.LastEventBlock),
		LastEventLogIndex: int64(state.LastEventLogIndex),
	}
	if state.CompletedAt != nil {
		v := int64(*state.CompletedAt)
		row.CompletedAt = &v
	}
	return row
}

func stateToDomain(row *dao.WorkflowStateDao) *workflow.State {
	state := &workflow.State{
		WorkflowID:        row.WorkflowID,
		Status:            workflow.Status(row.Status),
		Initiator:         row.Initiator,
		StartedAt:         uint64(row.StartedAt),
		FailureReason:     row.FailureReason,
		LastEventBlock:    uint64(row.LastEventBlock),
		LastEventLogIndex: uint(row.LastEventLogIndex),
	}
	if row.CompletedAt != nil {
		v := uint64(*row.CompletedAt)
		state.CompletedAt = &v
	}
	return state
}
