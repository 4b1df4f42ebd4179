package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/vocab-review/internal/config"
	"github.com/phrazzld/vocab-review/internal/platform/migrate"
	"github.com/phrazzld/vocab-review/internal/platform/postgres"
	"github.com/phrazzld/vocab-review/internal/platform/sqlite"
	"github.com/phrazzld/vocab-review/internal/store"
)

// openDatabase opens and pings the database selected by cfg.Driver.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = postgres.Open(ctx, cfg, logger)
	case config.DriverSQLite:
		db, err = sqlite.Open(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger.Info("database connection established", slog.String("driver", cfg.Driver))
	return db, nil
}

// migrationsFor returns the embedded migrations for the driver.
func migrationsFor(driver string) (migrate.Source, error) {
	switch driver {
	case config.DriverPostgres:
		return postgres.Migrations(), nil
	case config.DriverSQLite:
		return sqlite.Migrations(), nil
	}
	return migrate.Source{}, fmt.Errorf("unsupported database driver %q", driver)
}

// newStores creates the item and event stores for the driver.
func newStores(
	driver string,
	db *sql.DB,
	logger *slog.Logger,
) (store.VocabularyItemStore, store.ReviewEventStore, error) {
	switch driver {
	case config.DriverPostgres:
		return postgres.NewPostgresVocabularyItemStore(db, logger),
			postgres.NewPostgresReviewEventStore(db, logger), nil
	case config.DriverSQLite:
		return sqlite.NewSQLiteVocabularyItemStore(db, logger),
			sqlite.NewSQLiteReviewEventStore(db, logger), nil
	}
	return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
}
