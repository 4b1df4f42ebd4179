package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/vocab-review/internal/config"
	"github.com/phrazzld/vocab-review/internal/domain/srs"
	"github.com/phrazzld/vocab-review/internal/service/auth"
	"github.com/phrazzld/vocab-review/internal/service/vocab_review"
	"github.com/phrazzld/vocab-review/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	itemStore  store.VocabularyItemStore
	eventStore store.ReviewEventStore

	jwtService    auth.JWTService
	srsService    srs.Service
	reviewService vocab_review.Service
}

// newApplication creates a new application instance with all dependencies initialized.
// The database must already be open and migrated.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	app.itemStore, app.eventStore, err = newStores(cfg.Database.Driver, db, logger)
	if err != nil {
		return nil, err
	}

	app.srsService, err = srs.NewDefaultService()
	if err != nil {
		return nil, fmt.Errorf("failed to create SRS service: %w", err)
	}

	app.reviewService = vocab_review.NewService(
		app.itemStore,
		app.eventStore,
		store.NewTxRunner(db),
		app.srsService,
		logger,
	)

	logger.Info("application initialized successfully")
	return app, nil
}

// Run serves HTTP until ctx is canceled, then shuts down and releases resources.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}
