package ingestor

import (
	"context"

	"github.com/clearstream/workflow-indexer/pkg/db"
	"github.com/clearstream/workflow-indexer/pkg/ethereum"
	"github.com/clearstream/workflow-indexer/pkg/workflow"
)

// MockChainClient is a mock implementation of ChainClient
type MockChainClient struct {
	HeadBlockNumberFunc    func(ctx context.Context) (uint64, error)
	FilterWorkflowLogsFunc func(ctx context.Context, fromBlock, toBlock uint64) ([]ethereum.WorkflowLog, error)
	TransactionIndexFunc   func(ctx context.Context, txHash string) (uint, error)
	BlockTimestampFunc     func(ctx context.Context, number uint64) (uint64, error)
}

func (m *MockChainClient) HeadBlockNumber(ctx context.Context) (uint64, error) {
	if m.HeadBlockNumberFunc != nil {
		return m.HeadBlockNumberFunc(ctx)
	}
	return 0, nil
}

func (m *MockChainClient) FilterWorkflowLogs(ctx context.Context, fromBlock, toBlock uint64) ([]ethereum.WorkflowLog, error) {
	if m.FilterWorkflowLogsFunc != nil {
		return m.FilterWorkflowLogsFunc(ctx, fromBlock, toBlock)
	}
	return nil, nil
}

func (m *MockChainClient) TransactionIndex(ctx context.Context, txHash string) (uint, error) {
	if m.TransactionIndexFunc != nil {
		return m.TransactionIndexFunc(ctx, txHash)
	}
	return 0, nil
}

func (m *MockChainClient) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	if m.BlockTimestampFunc != nil {
		return m.BlockTimestampFunc(ctx, number)
	}
	return 0, nil
}

// MockStore is a mock implementation of Store
type MockStore struct {
	RecordEventFunc           func(ctx context.Context, ev workflow.Event) (bool, error)
	GetWorkflowStateFunc      func(ctx context.Context, workflowID string) (*workflow.State, error)
	UpsertWorkflowStateFunc   func(ctx context.Context, state *workflow.State) error
	GetSystemStateFunc        func(ctx context.Context) (*db.SystemState, error)
	SetLastProcessedBlockFunc func(ctx context.Context, block uint64) error
}

func (m *MockStore) RecordEvent(ctx context.Context, ev workflow.Event) (bool, error) {
	if m.RecordEventFunc != nil {
		return m.RecordEventFunc(ctx, ev)
	}
	return true, nil
}

func (m *MockStore) GetWorkflowState(ctx context.Context, workflowID string) (*workflow.State, error) {
	if m.GetWorkflowStateFunc != nil {
		return m.GetWorkflowStateFunc(ctx, workflowID)
	}
	return nil, db.ErrNotFound
}

func (m *MockStore) UpsertWorkflowState(ctx context.Context, state *workflow.State) error {
	if m.UpsertWorkflowStateFunc != nil {
		return m.UpsertWorkflowStateFunc(ctx, state)
	}
	return nil
}

func (m *MockStore) GetSystemState(ctx context.Context) (*db.SystemState, error) {
	if m.GetSystemStateFunc != nil {
		return m.GetSystemStateFunc(ctx)
	}
	return nil, nil
}

func (m *MockStore) SetLastProcessedBlock(ctx context.Context, block uint64) error {
	if m.SetLastProcessedBlockFunc != nil {
		return m.SetLastProcessedBlockFunc(ctx, block)
	}
	return nil
}
