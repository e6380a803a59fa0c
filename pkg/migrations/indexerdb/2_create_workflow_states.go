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
		log.Println("creating workflow_states table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.WorkflowStateDao{}); err != nil {
			return err
		}
		// Create indexes
		return mghelper.CreateIndex(ctx, db, "workflow_states", "status", "status")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping workflow_states table...")
		return mghelper.DropTables(ctx, db, &dao.WorkflowStateDao{})
	})
}
