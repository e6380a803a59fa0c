package ethereum

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/clearstream/workflow-indexer/pkg/workflow"
)

var (
	testWorkflowID = common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000aa")
	testInitiator  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testRecipient  = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func rawLog(t *testing.T, topic0 common.Hash, args abi.Arguments, vals ...any) types.Log {
	t.Helper()
	data, err := args.Pack(vals...)
	if err != nil {
		t.Fatalf("failed to pack log data: %v", err)
	}
	return types.Log{
		Topics:      []common.Hash{topic0, testWorkflowID},
		Data:        data,
		TxHash:      common.HexToHash("0xbeef"),
		Index:       2,
		BlockNumber: 10,
	}
}

func TestDecodeLog_WorkflowStarted(t *testing.T) {
	lg := rawLog(t, topicWorkflowStarted, argsWorkflowStarted, testInitiator)

	got, err := DecodeLog(lg)
	if err != nil {
		t.Fatalf("DecodeLog failed: %v", err)
	}
	if got.Type != workflow.EventWorkflowStarted {
		t.Errorf("expected WORKFLOW_STARTED, got %s", got.Type)
	}
	if got.WorkflowID != testWorkflowID.Hex() {
		t.Errorf("expected workflow id %s, got %s", testWorkflowID.Hex(), got.WorkflowID)
	}
	p, ok := got.Payload.(workflow.StartedPayload)
	if !ok {
		t.Fatalf("expected StartedPayload, got %T", got.Payload)
	}
	if p.Initiator != testInitiator.Hex() {
		t.Errorf("expected initiator %s, got %s", testInitiator.Hex(), p.Initiator)
	}
	if got.BlockNumber != 10 || got.LogIndex != 2 {
		t.Errorf("log position not carried over: %+v", got)
	}
}

func TestDecodeLog_DecisionRecorded(t *testing.T) {
	lg := rawLog(t, topicDecisionRecorded, argsDecisionRecorded, false, "fraud")

	got, err := DecodeLog(lg)
	if err != nil {
		t.Fatalf("DecodeLog failed: %v", err)
	}
	p, ok := got.Payload.(workflow.DecisionPayload)
	if !ok {
		t.Fatalf("expected DecisionPayload, got %T", got.Payload)
	}
	if p.Approved {
		t.Error("expected approved=false")
	}
	if p.Reason != "fraud" {
		t.Errorf("expected reason fraud, got %q", p.Reason)
	}
}

func TestDecodeLog_PaymentExecuted(t *testing.T) {
	amount, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	lg := rawLog(t, topicPaymentExecuted, argsPaymentExecuted, testRecipient, amount)

	got, err := DecodeLog(lg)
	if err != nil {
		t.Fatalf("DecodeLog failed: %v", err)
	}
	p, ok := got.Payload.(workflow.PaymentPayload)
	if !ok {
		t.Fatalf("expected PaymentPayload, got %T", got.Payload)
	}
	if p.To != testRecipient.Hex() {
		t.Errorf("expected recipient %s, got %s", testRecipient.Hex(), p.To)
	}
	if p.Amount.String() != "123456789012345678901234567890" {
		t.Errorf("amount lost precision: %s", p.Amount)
	}
}

func TestDecodeLog_WorkflowCompleted(t *testing.T) {
	lg := rawLog(t, topicWorkflowCompleted, abi.Arguments{})

	got, err := DecodeLog(lg)
	if err != nil {
		t.Fatalf("DecodeLog failed: %v", err)
	}
	if got.Type != workflow.EventWorkflowCompleted {
		t.Errorf("expected WORKFLOW_COMPLETED, got %s", got.Type)
	}
	if _, ok := got.Payload.(workflow.CompletedPayload); !ok {
		t.Fatalf("expected CompletedPayload, got %T", got.Payload)
	}
}

func TestDecodeLog_WorkflowFailed(t *testing.T) {
	lg := rawLog(t, topicWorkflowFailed, argsWorkflowFailed, "settlement timeout")

	got, err := DecodeLog(lg)
	if err != nil {
		t.Fatalf("DecodeLog failed: %v", err)
	}
	p, ok := got.Payload.(workflow.FailedPayload)
	if !ok {
		t.Fatalf("expected FailedPayload, got %T", got.Payload)
	}
	if p.Reason != "settlement timeout" {
		t.Errorf("expected reason, got %q", p.Reason)
	}
}

func TestDecodeLog_MissingWorkflowIDTopic(t *testing.T) {
	lg := types.Log{Topics: []common.Hash{topicWorkflowCompleted}}
	if _, err := DecodeLog(lg); err == nil {
		t.Fatal("expected error for log without workflow id topic")
	}
}

func TestDecodeLog_UnknownTopic(t *testing.T) {
	lg := types.Log{Topics: []common.Hash{common.HexToHash("0xdead"), testWorkflowID}}
	if _, err := DecodeLog(lg); err == nil {
		t.Fatal("expected error for unknown topic")
	}
}
