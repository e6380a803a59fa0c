package workflow

// Reduce folds a single event into the prior state of its workflow and
// returns the new state. It is pure: the result depends only on its inputs.
//
// A nil prior state is initialized to a RUNNING state stamped with the
// event's block timestamp before the event-specific transition is applied.
// Events of unknown type leave state untouched (including position markers);
// callers are expected to log the anomaly.
func Reduce(prior *State, ev Event) *State {
	if !ev.Type.Known() {
		return prior.Clone()
	}

	state := prior.Clone()
	if state == nil {
		state = &State{
			WorkflowID: ev.WorkflowID,
			Status:     StatusRunning,
			StartedAt:  ev.BlockTimestamp,
		}
	}

	switch ev.Type {
	case EventWorkflowStarted:
		state.Status = StatusRunning
		state.StartedAt = ev.BlockTimestamp
		if p, ok := ev.Payload.(StartedPayload); ok {
			state.Initiator = p.Initiator
		}

	case EventDecisionRecorded:
		if p, ok := ev.Payload.(DecisionPayload); ok && !p.Approved {
			state.Status = StatusRejected
			ts := ev.BlockTimestamp
			state.CompletedAt = &ts
			reason := p.Reason
			state.FailureReason = &reason
		}
		// Approved decisions keep the workflow RUNNING until settlement.

	case EventPaymentExecuted:
		// Settlement keeps the workflow RUNNING until finality.

	case EventWorkflowCompleted:
		state.Status = StatusCompleted
		ts := ev.BlockTimestamp
		state.CompletedAt = &ts

	case EventWorkflowFailed:
		state.Status = StatusFailed
		ts := ev.BlockTimestamp
		state.CompletedAt = &ts
		if p, ok := ev.Payload.(FailedPayload); ok {
			reason := p.Reason
			state.FailureReason = &reason
		}
	}

	state.LastEventBlock = ev.BlockNumber
	state.LastEventLogIndex = ev.LogIndex
	return state
}

// ReduceFromEvents folds a canonically-sorted event sequence for a single
// workflow into its final state. Returns nil for an empty sequence.
func ReduceFromEvents(events []Event) *State {
	var state *State
	for _, ev := range events {
		state = Reduce(state, ev)
	}
	return state
}
