package dao

import (
	"time"

	"github.com/uptrace/bun"
)

// SystemStateDao is a data access object that maps directly to the single-row
// 'system_state' table in PostgreSQL. The row is created once at first boot
// and its last_processed_block only ever advances, except by operator reset.
type SystemStateDao struct {
	bun.BaseModel      `bun:"table:system_state"`
	ID                 int64     `json:"id" bun:",pk"`
	LastProcessedBlock int64     `json:"last_processed_block" bun:",notnull"`
	ConfirmationBlocks int64     `json:"confirmation_blocks" bun:",notnull"`
	UpdatedAt          time.Time `json:"updated_at" bun:",notnull,nullzero,default:current_timestamp"`
}
