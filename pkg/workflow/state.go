package workflow

// Status is the derived lifecycle status of a workflow.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRejected  Status = "REJECTED"
)

// State is the derived state of one workflow. It is always the left fold of
// the reducer over that workflow's events in canonical order; no other code
// path may produce or mutate it.
type State struct {
	WorkflowID    string
	Status        Status
	Initiator     string
	StartedAt     uint64
	CompletedAt   *uint64
	FailureReason *string

	// Position of the last event folded into this state.
	LastEventBlock    uint64
	LastEventLogIndex uint
}

// Clone returns a deep copy. The reducer never mutates its input state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	if s.CompletedAt != nil {
		v := *s.CompletedAt
		out.CompletedAt = &v
	}
	if s.FailureReason != nil {
		v := *s.FailureReason
		out.FailureReason = &v
	}
	return &out
}
