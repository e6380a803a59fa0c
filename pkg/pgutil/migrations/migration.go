// Package migrations holds migration related helpers
package migrations

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const usageText = `Usage:
  go run cmd/indexer/migrate/main.go -config <file> <command>

This program runs commands on the indexer database. Supported commands are:
  - init - creates migration info table in the database
  - up - runs all available migrations.
  - down - reverts last migration.
  - status - prints migration status.
`

// Usage prints command usage
func Usage() {
	fmt.Print(usageText)
	flag.PrintDefaults()
	os.Exit(2)
}

// Exitf exits the command printing the error and usage
func Exitf(s string, args ...any) {
	fmt.Fprintf(os.Stderr, s+"\n", args...)
	Usage()
	os.Exit(1)
}

// CreateSchema creates tables from models
func CreateSchema(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		log.Println("Creating table for", reflect.TypeOf(model))
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// DropTables drops tables from the database
func DropTables(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		log.Println("Dropping table for", reflect.TypeOf(model))
		_, err := db.NewDropTable().
			Model(model).
			IfExists().
			Cascade().
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateIndex creates an index over the given columns, named
// idx_<table>_<suffix>.
func CreateIndex(ctx context.Context, db bun.IDB, tableName, suffix string, columns ...string) error {
	indexName := fmt.Sprintf("idx_%s_%s", strings.Trim(tableName, `"`), suffix)
	q := db.NewCreateIndex().
		Table(tableName).
		Index(indexName).
		IfNotExists()
	for _, column := range columns {
		q = q.Column(column)
	}
	_, err := q.Exec(ctx)
	return err
}

// DropIndex drops an index from the database.
func DropIndex(ctx context.Context, db bun.IDB, tableName, suffix string) error {
	indexName := fmt.Sprintf("idx_%s_%s", strings.Trim(tableName, `"`), suffix)
	_, err := db.NewDropIndex().
		Index(indexName).
		IfExists().
		Exec(ctx)
	return err
}

// RunMigrations runs migrations based on provided command arguments
func RunMigrations(migrator *migrate.Migrator, args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command, expected init|up|down|status")
	}

	ctx := context.Background()
	switch args[0] {
	case "init":
		return migrator.Init(ctx)
	case "up":
		group, err := migrator.Migrate(ctx)
		if err != nil {
			return err
		}
		if group.IsZero() {
			log.Println("there are no new migrations to run")
			return nil
		}
		log.Printf("migrated to %s\n", group)
		return nil
	case "down":
		group, err := migrator.Rollback(ctx)
		if err != nil {
			return err
		}
		if group.IsZero() {
			log.Println("there are no groups to roll back")
			return nil
		}
		log.Printf("rolled back %s\n", group)
		return nil
	case "status":
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}
		log.Printf("migrations: %s\n", ms)
		log.Printf("unapplied migrations: %s\n", ms.Unapplied())
		log.Printf("last migration group: %s\n", ms.LastGroup())
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}
