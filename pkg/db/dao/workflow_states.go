package dao

import "github.com/uptrace/bun"

// WorkflowStateDao is a data access object that maps directly to the
// 'workflow_states' table in PostgreSQL. The table is derived state: it is
// wiped and rebuilt from chain_events on every replay and must never be
// written by anything but the reducer path.
type WorkflowStateDao struct {
	bun.BaseModel     `bun:"table:workflow_states"`
	WorkflowID        string  `json:"workflow_id" bun:",pk,type:varchar(66)"`
	Status            string  `json:"status" bun:",notnull,type:varchar(16)"`
	Initiator         string  `json:"initiator" bun:",type:varchar(42)"`
	StartedAt         int64   `json:"started_at" bun:",notnull"`
	CompletedAt       *int64  `json:"completed_at,omitempty" bun:"completed_at"`
	FailureReason     *string `json:"failure_reason,omitempty" bun:"failure_reason,type:text"`
	LastEventBlock    int64   `json:"last_event_block" bun:",notnull"`
	LastEventLogIndex int64   `json:"last_event_log_index" bun:",notnull"`
}
