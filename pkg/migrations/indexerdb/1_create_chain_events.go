package indexerdb

import (
	"context"
	"log"

	"github.com/clearstream/workflow-indexer/pkg/db/dao"
	mghelper "github.com/clearstream/workflow-indexer/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating chain_events table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.ChainEventDao{}); err != nil {
			return err
		}
		// Create indexes
		if err := mghelper.CreateIndex(ctx, db, "chain_events", "canonical", "block_number", "tx_index", "log_index"); err != nil {
			return err
		}
		return mghelper.CreateIndex(ctx, db, "chain_events", "workflow_id", "workflow_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping chain_events table...")
		return mghelper.DropTables(ctx, db, &dao.ChainEventDao{})
	})
}
