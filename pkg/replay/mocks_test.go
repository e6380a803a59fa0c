package replay

import (
	"context"

	"github.com/clearstream/workflow-indexer/pkg/workflow"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	ListEventsFunc            func(ctx context.Context) ([]workflow.Event, error)
	ClearWorkflowStatesFunc   func(ctx context.Context) error
	UpsertWorkflowStateFunc   func(ctx context.Context, state *workflow.State) error
	SetLastProcessedBlockFunc func(ctx context.Context, block uint64) error
}

func (m *MockStore) ListEvents(ctx context.Context) ([]workflow.Event, error) {
	if m.ListEventsFunc != nil {
		return m.ListEventsFunc(ctx)
	}
	return nil, nil
}

func (m *MockStore) ClearWorkflowStates(ctx context.Context) error {
	if m.ClearWorkflowStatesFunc != nil {
		return m.ClearWorkflowStatesFunc(ctx)
	}
	return nil
}

func (m *MockStore) UpsertWorkflowState(ctx context.Context, state *workflow.State) error {
	if m.UpsertWorkflowStateFunc != nil {
		return m.UpsertWorkflowStateFunc(ctx, state)
	}
	return nil
}

func (m *MockStore) SetLastProcessedBlock(ctx context.Context, block uint64) error {
	if m.SetLastProcessedBlockFunc != nil {
		return m.SetLastProcessedBlockFunc(ctx, block)
	}
	return nil
}
