package replay

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/clearstream/workflow-indexer/pkg/workflow"
)

func testEvent(workflowID string, typ workflow.EventType, payload workflow.Payload, block uint64, txIndex, logIndex uint, ts uint64) workflow.Event {
	return workflow.Event{
		TxHash:         "0xtx",
		LogIndex:       logIndex,
		WorkflowID:     workflowID,
		Type:           typ,
		Payload:        payload,
		BlockNumber:    block,
		TxIndex:        txIndex,
		BlockTimestamp: ts,
	}
}

func TestReplayAll_RebuildsStateFromLog(t *testing.T) {
	events := []workflow.Event{
		testEvent("wf-1", workflow.EventWorkflowStarted, workflow.StartedPayload{Initiator: "0xA"}, 10, 0, 0, 1000),
		testEvent("wf-2", workflow.EventWorkflowStarted, workflow.StartedPayload{Initiator: "0xB"}, 10, 1, 0, 1000),
		testEvent("wf-1", workflow.EventWorkflowCompleted, workflow.CompletedPayload{}, 12, 0, 0, 1020),
		testEvent("wf-2", workflow.EventDecisionRecorded, workflow.DecisionPayload{Approved: false, Reason: "fraud"}, 13, 0, 0, 1030),
	}

	var cleared bool
	upserted := map[string]*workflow.State{}
	var checkpoint uint64

	store := &MockStore{
		ListEventsFunc: func(ctx context.Context) ([]workflow.Event, error) {
			return events, nil
		},
		ClearWorkflowStatesFunc: func(ctx context.Context) error {
			cleared = true
			return nil
		},
		UpsertWorkflowStateFunc: func(ctx context.Context, state *workflow.State) error {
			if !cleared {
				t.Error("state written before derived state was cleared")
			}
			upserted[state.WorkflowID] = state
			return nil
		},
		SetLastProcessedBlockFunc: func(ctx context.Context, block uint64) error {
			checkpoint = block
			return nil
		},
	}

	engine := NewEngine(store, zap.NewNop())
	result, err := engine.ReplayAll(context.Background())
	if err != nil {
		t.Fatalf("ReplayAll failed: %v", err)
	}

	if result.EventsProcessed != 4 {
		t.Errorf("expected 4 events processed, got %d", result.EventsProcessed)
	}
	if result.WorkflowsRebuilt != 2 {
		t.Errorf("expected 2 workflows rebuilt, got %d", result.WorkflowsRebuilt)
	}
	if checkpoint != 13 {
		t.Errorf("expected checkpoint 13, got %d", checkpoint)
	}

	wf1 := upserted["wf-1"]
	if wf1 == nil || wf1.Status != workflow.StatusCompleted {
		t.Errorf("expected wf-1 COMPLETED, got %+v", wf1)
	}
	wf2 := upserted["wf-2"]
	if wf2 == nil || wf2.Status != workflow.StatusRejected {
		t.Errorf("expected wf-2 REJECTED, got %+v", wf2)
	}
	if wf2 != nil && (wf2.FailureReason == nil || *wf2.FailureReason != "fraud") {
		t.Errorf("expected wf-2 failure reason fraud, got %v", wf2.FailureReason)
	}
}

func TestReplayAll_Deterministic(t *testing.T) {
	events := []workflow.Event{
		testEvent("wf-1", workflow.EventWorkflowStarted, workflow.StartedPayload{Initiator: "0xA"}, 10, 0, 0, 1000),
		testEvent("wf-1", workflow.EventPaymentExecuted, workflow.PaymentPayload{To: "0xB"}, 11, 0, 0, 1010),
		testEvent("wf-1", workflow.EventWorkflowCompleted, workflow.CompletedPayload{}, 12, 0, 0, 1020),
	}

	run := func() map[string]workflow.State {
		out := map[string]workflow.State{}
		store := &MockStore{
			ListEventsFunc: func(ctx context.Context) ([]workflow.Event, error) {
				return events, nil
			},
			UpsertWorkflowStateFunc: func(ctx context.Context, state *workflow.State) error {
				out[state.WorkflowID] = *state
				return nil
			},
		}
		if _, err := NewEngine(store, zap.NewNop()).ReplayAll(context.Background()); err != nil {
			t.Fatalf("ReplayAll failed: %v", err)
		}
		return out
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("replay is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestReplayAll_UnorderedLogAborts(t *testing.T) {
	events := []workflow.Event{
		testEvent("wf-1", workflow.EventWorkflowCompleted, workflow.CompletedPayload{}, 12, 0, 0, 1020),
		testEvent("wf-1", workflow.EventWorkflowStarted, workflow.StartedPayload{Initiator: "0xA"}, 10, 0, 0, 1000),
	}

	store := &MockStore{
		ListEventsFunc: func(ctx context.Context) ([]workflow.Event, error) {
			return events, nil
		},
		ClearWorkflowStatesFunc: func(ctx context.Context) error {
			t.Error("derived state must not be touched when ordering validation fails")
			return nil
		},
		UpsertWorkflowStateFunc: func(ctx context.Context, state *workflow.State) error {
			t.Error("derived state must not be written when ordering validation fails")
			return nil
		},
	}

	_, err := NewEngine(store, zap.NewNop()).ReplayAll(context.Background())
	if !errors.Is(err, ErrUnordered) {
		t.Fatalf("expected ErrUnordered, got %v", err)
	}
}

func TestReplayAll_EmptyLog(t *testing.T) {
	store := &MockStore{
		SetLastProcessedBlockFunc: func(ctx context.Context, block uint64) error {
			t.Error("checkpoint must not move on an empty log")
			return nil
		},
	}

	result, err := NewEngine(store, zap.NewNop()).ReplayAll(context.Background())
	if err != nil {
		t.Fatalf("ReplayAll failed: %v", err)
	}
	if result.EventsProcessed != 0 || result.WorkflowsRebuilt != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestReplayAll_UnknownOnlyWorkflowProducesNoRow(t *testing.T) {
	events := []workflow.Event{
		testEvent("wf-ghost", workflow.EventType("SOMETHING_ELSE"), nil, 10, 0, 0, 1000),
	}

	store := &MockStore{
		ListEventsFunc: func(ctx context.Context) ([]workflow.Event, error) {
			return events, nil
		},
		UpsertWorkflowStateFunc: func(ctx context.Context, state *workflow.State) error {
			t.Errorf("no state should be written for unknown-only workflow, got %+v", state)
			return nil
		},
	}

	result, err := NewEngine(store, zap.NewNop()).ReplayAll(context.Background())
	if err != nil {
		t.Fatalf("ReplayAll failed: %v", err)
	}
	if result.WorkflowsRebuilt != 0 {
		t.Errorf("expected 0 workflows rebuilt, got %d", result.WorkflowsRebuilt)
	}
}
