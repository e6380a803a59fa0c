// Package workflow contains the domain model for on-chain payment workflows:
// typed chain events, derived workflow state, the pure state reducer and the
// canonical-ordering validator. Nothing in this package performs I/O or reads
// the wall clock; all temporal values come from chain data.
package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// EventType identifies one of the contract's workflow lifecycle events.
type EventType string

const (
	EventWorkflowStarted   EventType = "WORKFLOW_STARTED"
	EventDecisionRecorded  EventType = "DECISION_RECORDED"
	EventPaymentExecuted   EventType = "PAYMENT_EXECUTED"
	EventWorkflowCompleted EventType = "WORKFLOW_COMPLETED"
	EventWorkflowFailed    EventType = "WORKFLOW_FAILED"
)

// Known reports whether the event type is one of the five contract events.
// Unknown types are tolerated during ingestion (logged as anomalies) but
// never change derived state.
func (t EventType) Known() bool {
	switch t {
	case EventWorkflowStarted, EventDecisionRecorded, EventPaymentExecuted,
		EventWorkflowCompleted, EventWorkflowFailed:
		return true
	}
	return false
}

// Payload is the variant-typed data carried by an event. Exactly one
// concrete payload type exists per event type.
type Payload interface {
	payload()
}

// StartedPayload accompanies WORKFLOW_STARTED.
type StartedPayload struct {
	Initiator string `json:"initiator"`
}

// DecisionPayload accompanies DECISION_RECORDED.
type DecisionPayload struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// PaymentPayload accompanies PAYMENT_EXECUTED. Amount is the raw token
// amount; decimal avoids float round-trips on large values.
type PaymentPayload struct {
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// CompletedPayload accompanies WORKFLOW_COMPLETED. The event carries no data
// beyond the workflow identity.
type CompletedPayload struct{}

// FailedPayload accompanies WORKFLOW_FAILED.
type FailedPayload struct {
	Reason string `json:"reason"`
}

func (StartedPayload) payload()   {}
func (DecisionPayload) payload()  {}
func (PaymentPayload) payload()   {}
func (CompletedPayload) payload() {}
func (FailedPayload) payload()    {}

// Event is a single contract log event in the append-only log.
//
// (TxHash, LogIndex) is the natural uniqueness key. (BlockNumber, TxIndex,
// LogIndex) is the canonical ordering key. BlockTimestamp is the chain's
// reported time for the containing block and is the only time source used
// in state derivation.
type Event struct {
	TxHash         string
	LogIndex       uint
	WorkflowID     string
	Type           EventType
	Payload        Payload
	BlockNumber    uint64
	TxIndex        uint
	BlockTimestamp uint64
}

// MarshalPayload encodes an event payload to JSON for storage. A nil payload
// (unknown event type) encodes as an empty object.
func MarshalPayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// UnmarshalPayload decodes a stored payload into the variant matching the
// event type. Unknown event types yield a nil payload without error.
func UnmarshalPayload(t EventType, raw []byte) (Payload, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch t {
	case EventWorkflowStarted:
		var p StartedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return p, nil
	case EventDecisionRecorded:
		var p DecisionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return p, nil
	case EventPaymentExecuted:
		var p PaymentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return p, nil
	case EventWorkflowCompleted:
		return CompletedPayload{}, nil
	case EventWorkflowFailed:
		var p FailedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return p, nil
	}
	return nil, nil
}
