package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-review/internal/domain"
	"github.com/phrazzld/vocab-review/internal/platform/logger"
	"github.com/phrazzld/vocab-review/internal/store"
)

const reviewEventColumns = `
	id, item_id, learner_id, modality, correct, response_time_seconds,
	confidence, user_answer, expected_answer,
	mastery_level_before, mastery_level_after, created_at`

// PostgresReviewEventStore implements the store.ReviewEventStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewEventStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewEventStore creates a new PostgreSQL implementation of the ReviewEventStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresReviewEventStore(db store.DBTX, logger *slog.Logger) *PostgresReviewEventStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewEventStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_event_store")),
	}
}

// Ensure PostgresReviewEventStore implements store.ReviewEventStore interface
var _ store.ReviewEventStore = (*PostgresReviewEventStore)(nil)

// Append implements store.ReviewEventStore.Append
func (s *PostgresReviewEventStore) Append(ctx context.Context, event *domain.ReviewEvent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := event.Validate(); err != nil {
		log.Warn("review event validation failed",
			slog.String("error", err.Error()),
			slog.String("item_id", event.ItemID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO review_events (` + reviewEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.ItemID,
		event.LearnerID,
		string(event.Modality),
		event.Correct,
		event.ResponseTimeSeconds,
		event.Confidence,
		event.UserAnswer,
		event.ExpectedAnswer,
		event.MasteryLevelBefore,
		event.MasteryLevelAfter,
		event.CreatedAt,
	)
	if err != nil {
		log.Error("failed to append review event",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()),
			slog.String("item_id", event.ItemID.String()))
		return store.NewStoreError(store.EntityReviewEvent, "append", "failed to insert event", MapError(err))
	}

	return nil
}

// ListByItem implements store.ReviewEventStore.ListByItem
func (s *PostgresReviewEventStore) ListByItem(
	ctx context.Context,
	itemID, learnerID uuid.UUID,
) ([]*domain.ReviewEvent, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + reviewEventColumns + `
		FROM review_events
		WHERE item_id = $1 AND learner_id = $2
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, itemID, learnerID)
	if err != nil {
		log.Error("failed to query review events",
			slog.String("error", err.Error()),
			slog.String("item_id", itemID.String()))
		return nil, store.NewStoreError(store.EntityReviewEvent, "list_by_item", "failed to list events", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	events := make([]*domain.ReviewEvent, 0)
	for rows.Next() {
		var (
			event                      domain.ReviewEvent
			modality                   string
			confidence                 sql.NullInt32
			userAnswer, expectedAnswer sql.NullString
		)
		if err := rows.Scan(
			&event.ID,
			&event.ItemID,
			&event.LearnerID,
			&modality,
			&event.Correct,
			&event.ResponseTimeSeconds,
			&confidence,
			&userAnswer,
			&expectedAnswer,
			&event.MasteryLevelBefore,
			&event.MasteryLevelAfter,
			&event.CreatedAt,
		); err != nil {
			log.Error("failed to scan review event row",
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan review event row: %w", err)
		}

		event.Modality = domain.ReviewModality(modality)
		if confidence.Valid {
			c := int(confidence.Int32)
			event.Confidence = &c
		}
		event.UserAnswer = nullStringPtr(userAnswer)
		event.ExpectedAnswer = nullStringPtr(expectedAnswer)
		event.CreatedAt = event.CreatedAt.UTC()
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating review event rows",
			slog.String("error", err.Error()))
		return nil, store.NewStoreError(store.EntityReviewEvent, "list_by_item", "failed to list events", MapError(err))
	}

	return events, nil
}

// WithTx implements store.ReviewEventStore.WithTx
func (s *PostgresReviewEventStore) WithTx(tx *sql.Tx) store.ReviewEventStore {
	return &PostgresReviewEventStore{
		db:     tx,
		logger: s.logger,
	}
}
