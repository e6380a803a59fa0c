package dao

import (
	"time"

	"github.com/uptrace/bun"
)

// ChainEventDao is a data access object that maps directly to the
// 'chain_events' table in PostgreSQL. Rows are append-only: they are never
// updated or deleted once written.
type ChainEventDao struct {
	bun.BaseModel  `bun:"table:chain_events"`
	ID             int64     `json:"id" bun:",pk,autoincrement"`
	TxHash         string    `json:"tx_hash" bun:",notnull,type:varchar(66),unique:uq_chain_events_tx_log"`
	LogIndex       int64     `json:"log_index" bun:",notnull,unique:uq_chain_events_tx_log"`
	WorkflowID     string    `json:"workflow_id" bun:",notnull,type:varchar(66)"`
	EventType      string    `json:"event_type" bun:",notnull,type:varchar(32)"`
	Payload        []byte    `json:"payload" bun:",notnull,type:jsonb"`
	BlockNumber    int64     `json:"block_number" bun:",notnull"`
	TxIndex        int64     `json:"tx_index" bun:",notnull"`
	BlockTimestamp int64     `json:"block_timestamp" bun:",notnull"`
	CreatedAt      time.Time `json:"created_at" bun:",notnull,nullzero,default:current_timestamp"`
}
