package api

import (
	"context"

	"github.com/clearstream/workflow-indexer/pkg/db"
	"github.com/clearstream/workflow-indexer/pkg/workflow"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	ListWorkflowStatesFunc     func(ctx context.Context, limit, offset int) ([]*workflow.State, error)
	GetWorkflowStateFunc       func(ctx context.Context, workflowID string) (*workflow.State, error)
	ListEventsByWorkflowFunc   func(ctx context.Context, workflowID string) ([]workflow.Event, error)
	CountWorkflowsByStatusFunc func(ctx context.Context) (map[workflow.Status]int64, error)
	CountEventsFunc            func(ctx context.Context) (int64, error)
	CountWorkflowsFunc         func(ctx context.Context) (int64, error)
	GetSystemStateFunc         func(ctx context.Context) (*db.SystemState, error)
}

func (m *MockStore) ListWorkflowStates(ctx context.Context, limit, offset int) ([]*workflow.State, error) {
	if m.ListWorkflowStatesFunc != nil {
		return m.ListWorkflowStatesFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *MockStore) GetWorkflowState(ctx context.Context, workflowID string) (*workflow.State, error) {
	if m.GetWorkflowStateFunc != nil {
		return m.GetWorkflowStateFunc(ctx, workflowID)
	}
	return nil, db.ErrNotFound
}

func (m *MockStore) ListEventsByWorkflow(ctx context.Context, workflowID string) ([]workflow.Event, error) {
	if m.ListEventsByWorkflowFunc != nil {
		return m.ListEventsByWorkflowFunc(ctx, workflowID)
	}
	return nil, nil
}

func (m *MockStore) CountWorkflowsByStatus(ctx context.Context) (map[workflow.Status]int64, error) {
	if m.CountWorkflowsByStatusFunc != nil {
		return m.CountWorkflowsByStatusFunc(ctx)
	}
	return nil, nil
}

func (m *MockStore) CountEvents(ctx context.Context) (int64, error) {
	if m.CountEventsFunc != nil {
		return m.CountEventsFunc(ctx)
	}
	return 0, nil
}

func (m *MockStore) CountWorkflows(ctx context.Context) (int64, error) {
	if m.CountWorkflowsFunc != nil {
		return m.CountWorkflowsFunc(ctx)
	}
	return 0, nil
}

func (m *MockStore) GetSystemState(ctx context.Context) (*db.SystemState, error) {
	if m.GetSystemStateFunc != nil {
		return m.GetSystemStateFunc(ctx)
	}
	return nil, nil
}
