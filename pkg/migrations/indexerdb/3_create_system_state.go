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
		log.Println("creating system_state table...")
		return mghelper.CreateSchema(ctx, db, &dao.SystemStateDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping system_state table...")
		return mghelper.DropTables(ctx, db, &dao.SystemStateDao{})
	})
}
