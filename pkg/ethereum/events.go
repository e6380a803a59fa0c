package ethereum

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/clearstream/workflow-indexer/pkg/workflow"
)

// Event signatures emitted by the workflow contract. The workflow identifier
// is the first (indexed) argument of every event.
const (
	sigWorkflowStarted   = "WorkflowStarted(bytes32,address)"
	sigDecisionRecorded  = "DecisionRecorded(bytes32,bool,string)"
	sigPaymentExecuted   = "PaymentExecuted(bytes32,address,uint256)"
	sigWorkflowCompleted = "WorkflowCompleted(bytes32)"
	sigWorkflowFailed    = "WorkflowFailed(bytes32,string)"
)

var (
	topicWorkflowStarted   = crypto.Keccak256Hash([]byte(sigWorkflowStarted))
	topicDecisionRecorded  = crypto.Keccak256Hash([]byte(sigDecisionRecorded))
	topicPaymentExecuted   = crypto.Keccak256Hash([]byte(sigPaymentExecuted))
	topicWorkflowCompleted = crypto.Keccak256Hash([]byte(sigWorkflowCompleted))
	topicWorkflowFailed    = crypto.Keccak256Hash([]byte(sigWorkflowFailed))
)

// eventTopics lists topic0 hashes for all five workflow events; the log
// filter is bound to exactly this set.
var eventTopics = []common.Hash{
	topicWorkflowStarted,
	topicDecisionRecorded,
	topicPaymentExecuted,
	topicWorkflowCompleted,
	topicWorkflowFailed,
}

var (
	typAddress = mustType("address")
	typBool    = mustType("bool")
	typString  = mustType("string")
	typUint256 = mustType("uint256")

	argsWorkflowStarted  = abi.Arguments{{Type: typAddress}}
	argsDecisionRecorded = abi.Arguments{{Type: typBool}, {Type: typString}}
	argsPaymentExecuted  = abi.Arguments{{Type: typAddress}, {Type: typUint256}}
	argsWorkflowFailed   = abi.Arguments{{Type: typString}}
)

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", name, err))
	}
	return t
}

// WorkflowLog is a decoded contract log. It carries everything the raw log
// provides; the poller supplements transaction index and block timestamp
// through separate RPC lookups before persisting.
type WorkflowLog struct {
	Type        workflow.EventType
	WorkflowID  string
	Payload     workflow.Payload
	TxHash      string
	LogIndex    uint
	BlockNumber uint64
}

// DecodeLog maps a raw log to a typed workflow event by its topic0 hash.
func DecodeLog(lg types.Log) (WorkflowLog, error) {
	if len(lg.Topics) < 2 {
		return WorkflowLog{}, fmt.Errorf("log %s/%d: missing workflow id topic", lg.TxHash.Hex(), lg.Index)
	}

	out := WorkflowLog{
		WorkflowID:  lg.Topics[1].Hex(),
		TxHash:      lg.TxHash.Hex(),
		LogIndex:    lg.Index,
		BlockNumber: lg.BlockNumber,
	}

	switch lg.Topics[0] {
	case topicWorkflowStarted:
		vals, err := argsWorkflowStarted.Unpack(lg.Data)
		if err != nil {
			return WorkflowLog{}, fmt.Errorf("decode WorkflowStarted: %w", err)
		}
		out.Type = workflow.EventWorkflowStarted
		out.Payload = workflow.StartedPayload{
			Initiator: vals[0].(common.Address).Hex(),
		}

	case topicDecisionRecorded:
		vals, err := argsDecisionRecorded.Unpack(lg.Data)
		if err != nil {
			return WorkflowLog{}, fmt.Errorf("decode DecisionRecorded: %w", err)
		}
		out.Type = workflow.EventDecisionRecorded
		out.Payload = workflow.DecisionPayload{
			Approved: vals[0].(bool),
			Reason:   vals[1].(string),
		}

	case topicPaymentExecuted:
		vals, err := argsPaymentExecuted.Unpack(lg.Data)
		if err != nil {
			return WorkflowLog{}, fmt.Errorf("decode PaymentExecuted: %w", err)
		}
		out.Type = workflow.EventPaymentExecuted
		out.Payload = workflow.PaymentPayload{
			To:     vals[0].(common.Address).Hex(),
			Amount: decimal.NewFromBigInt(vals[1].(*big.Int), 0),
		}

	case topicWorkflowCompleted:
		out.Type = workflow.EventWorkflowCompleted
		out.Payload = workflow.CompletedPayload{}

	case topicWorkflowFailed:
		vals, err := argsWorkflowFailed.Unpack(lg.Data)
		if err != nil {
			return WorkflowLog{}, fmt.Errorf("decode WorkflowFailed: %w", err)
		}
		out.Type = workflow.EventWorkflowFailed
		out.Payload = workflow.FailedPayload{Reason: vals[0].(string)}

	default:
		return WorkflowLog{}, fmt.Errorf("log %s/%d: unknown event topic %s", lg.TxHash.Hex(), lg.Index, lg.Topics[0].Hex())
	}

	return out, nil
}
