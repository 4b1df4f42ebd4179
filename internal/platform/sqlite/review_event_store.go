package sqlite

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

// SQLiteReviewEventStore implements store.ReviewEventStore on SQLite.
type SQLiteReviewEventStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSQLiteReviewEventStore creates a SQLite ReviewEventStore.
// If logger is nil, a default logger will be used.
func NewSQLiteReviewEventStore(db store.DBTX, logger *slog.Logger) *SQLiteReviewEventStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteReviewEventStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_event_store")),
	}
}

var _ store.ReviewEventStore = (*SQLiteReviewEventStore)(nil)

// Append implements store.ReviewEventStore.Append
func (s *SQLiteReviewEventStore) Append(ctx context.Context, event *domain.ReviewEvent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := event.Validate(); err != nil {
		log.Warn("review event validation failed",
			slog.String("error", err.Error()),
			slog.String("item_id", event.ItemID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var confidence sql.NullInt64
	if event.Confidence != nil {
		confidence = sql.NullInt64{Int64: int64(*event.Confidence), Valid: true}
	}

	query := `
		INSERT INTO review_events (` + reviewEventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID.String(),
		event.ItemID.String(),
		event.LearnerID.String(),
		string(event.Modality),
		event.Correct,
		event.ResponseTimeSeconds,
		confidence,
		event.UserAnswer,
		event.ExpectedAnswer,
		event.MasteryLevelBefore,
		event.MasteryLevelAfter,
		toMicros(event.CreatedAt),
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
func (s *SQLiteReviewEventStore) ListByItem(
	ctx context.Context,
	itemID, learnerID uuid.UUID,
) ([]*domain.ReviewEvent, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + reviewEventColumns + `
		FROM review_events
		WHERE item_id = ? AND learner_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, itemID.String(), learnerID.String())
	if err != nil {
		log.Error("failed to query review events",
			slog.String("error", err.Error()),
			slog.String("item_id", itemID.String()))
		return nil, store.NewStoreError(store.EntityReviewEvent, "list_by_item", "failed to list events", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	events := make([]*domain.ReviewEvent, 0)
	for rows.Next() {
		event, err := scanReviewEvent(rows)
		if err != nil {
			log.Error("failed to scan review event row",
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan review event row: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating review event rows",
			slog.String("error", err.Error()))
		return nil, store.NewStoreError(store.EntityReviewEvent, "list_by_item", "failed to list events", MapError(err))
	}

	return events, nil
}

// WithTx implements store.ReviewEventStore.WithTx
func (s *SQLiteReviewEventStore) WithTx(tx *sql.Tx) store.ReviewEventStore {
	return &SQLiteReviewEventStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanReviewEvent(row rowScanner) (*domain.ReviewEvent, error) {
	var (
		event                      domain.ReviewEvent
		id, itemID, learnerID      string
		modality                   string
		confidence                 sql.NullInt64
		userAnswer, expectedAnswer sql.NullString
		createdAt                  int64
	)
	if err := row.Scan(
		&id,
		&itemID,
		&learnerID,
		&modality,
		&event.Correct,
		&event.ResponseTimeSeconds,
		&confidence,
		&userAnswer,
		&expectedAnswer,
		&event.MasteryLevelBefore,
		&event.MasteryLevelAfter,
		&createdAt,
	); err != nil {
		return nil, err
	}

	var err error
	if event.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", id, err)
	}
	if event.ItemID, err = uuid.Parse(itemID); err != nil {
		return nil, fmt.Errorf("invalid item id %q: %w", itemID, err)
	}
	if event.LearnerID, err = uuid.Parse(learnerID); err != nil {
		return nil, fmt.Errorf("invalid learner id %q: %w", learnerID, err)
	}

	event.Modality = domain.ReviewModality(modality)
	if confidence.Valid {
		c := int(confidence.Int64)
		event.Confidence = &c
	}
	event.UserAnswer = nullStringPtr(userAnswer)
	event.ExpectedAnswer = nullStringPtr(expectedAnswer)
	event.CreatedAt = fromMicros(createdAt)

	return &event, nil
}
