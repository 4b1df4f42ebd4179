package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-review/internal/domain"
	"github.com/phrazzld/vocab-review/internal/platform/logger"
	"github.com/phrazzld/vocab-review/internal/store"
)

const vocabularyItemColumns = `
	id, learner_id, word, definition, example_sentence, source_context,
	mastery_level, retention_score, review_count, last_reviewed_at, next_review_at,
	created_at, updated_at`

// SQLiteVocabularyItemStore implements store.VocabularyItemStore on SQLite.
// Timestamps are stored as unix microseconds.
type SQLiteVocabularyItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSQLiteVocabularyItemStore creates a SQLite VocabularyItemStore.
// If logger is nil, a default logger will be used.
func NewSQLiteVocabularyItemStore(db store.DBTX, logger *slog.Logger) *SQLiteVocabularyItemStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteVocabularyItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "vocabulary_item_store")),
	}
}

var _ store.VocabularyItemStore = (*SQLiteVocabularyItemStore)(nil)

// Create implements store.VocabularyItemStore.Create
func (s *SQLiteVocabularyItemStore) Create(ctx context.Context, item *domain.VocabularyItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("vocabulary item validation failed during create",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO vocabulary_items (` + vocabularyItemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID.String(),
		item.LearnerID.String(),
		item.Word,
		item.Definition,
		item.ExampleSentence,
		item.SourceContext,
		item.MasteryLevel,
		item.RetentionScore,
		item.ReviewCount,
		nullMicros(item.LastReviewedAt),
		nullMicros(item.NextReviewAt),
		toMicros(item.CreatedAt),
		toMicros(item.UpdatedAt),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate word for learner",
				slog.String("learner_id", item.LearnerID.String()))
			return store.NewStoreError(store.EntityVocabularyItem, "create", "word already captured",
				fmt.Errorf("%w: %v", store.ErrWordExists, err))
		}

		log.Error("failed to create vocabulary item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return store.NewStoreError(store.EntityVocabularyItem, "create", "failed to insert item", MapError(err))
	}

	return nil
}

// GetForUpdate implements store.VocabularyItemStore.GetForUpdate
// SQLite has no row locks; the single pooled connection already serializes
// transactions.
func (s *SQLiteVocabularyItemStore) GetForUpdate(
	ctx context.Context,
	id, learnerID uuid.UUID,
) (*domain.VocabularyItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + vocabularyItemColumns + `
		FROM vocabulary_items
		WHERE id = ? AND learner_id = ?
	`

	item, err := scanVocabularyItem(s.db.QueryRowContext(ctx, query, id.String(), learnerID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("vocabulary item not found",
				slog.String("item_id", id.String()),
				slog.String("learner_id", learnerID.String()))
			return nil, store.ErrVocabularyItemNotFound
		}

		log.Error("failed to get vocabulary item",
			slog.String("error", err.Error()),
			slog.String("item_id", id.String()))
		return nil, store.NewStoreError(store.EntityVocabularyItem, "get_for_update", "failed to read item", MapError(err))
	}

	return item, nil
}

// ListDue implements store.VocabularyItemStore.ListDue
func (s *SQLiteVocabularyItemStore) ListDue(
	ctx context.Context,
	learnerID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.VocabularyItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// NULLs sort first in SQLite ascending order.
	query := `
		SELECT ` + vocabularyItemColumns + `
		FROM vocabulary_items
		WHERE learner_id = ?
		  AND (next_review_at IS NULL OR next_review_at <= ?)
		ORDER BY next_review_at ASC, created_at ASC, id ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID.String(), toMicros(now), store.ClampDueLimit(limit))
	if err != nil {
		log.Error("failed to query due vocabulary items",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, store.NewStoreError(store.EntityVocabularyItem, "list_due", "failed to list due items", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	items := make([]*domain.VocabularyItem, 0)
	for rows.Next() {
		item, err := scanVocabularyItem(rows)
		if err != nil {
			log.Error("failed to scan vocabulary item row",
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan vocabulary item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating vocabulary item rows",
			slog.String("error", err.Error()))
		return nil, store.NewStoreError(store.EntityVocabularyItem, "list_due", "failed to list due items", MapError(err))
	}

	return items, nil
}

// UpdateSchedule implements store.VocabularyItemStore.UpdateSchedule
func (s *SQLiteVocabularyItemStore) UpdateSchedule(
	ctx context.Context,
	item *domain.VocabularyItem,
	expectedReviewCount int,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("vocabulary item validation failed during update",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE vocabulary_items
		SET mastery_level = ?, retention_score = ?, review_count = ?,
		    last_reviewed_at = ?, next_review_at = ?, updated_at = ?
		WHERE id = ? AND learner_id = ? AND review_count = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		item.MasteryLevel,
		item.RetentionScore,
		item.ReviewCount,
		nullMicros(item.LastReviewedAt),
		nullMicros(item.NextReviewAt),
		toMicros(item.UpdatedAt),
		item.ID.String(),
		item.LearnerID.String(),
		expectedReviewCount,
	)
	if err != nil {
		log.Error("failed to update vocabulary item schedule",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return store.NewStoreError(store.EntityVocabularyItem, "update_schedule", "failed to update schedule", MapError(err))
	}

	if err := checkRowsAffected(result, "vocabulary item"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("vocabulary item changed since it was read",
				slog.String("item_id", item.ID.String()),
				slog.Int("expected_review_count", expectedReviewCount))
			return store.NewStoreError(store.EntityVocabularyItem, "update_schedule", "item changed since it was read",
				store.ErrVersionConflict)
		}
		return err
	}

	return nil
}

// WithTx implements store.VocabularyItemStore.WithTx
func (s *SQLiteVocabularyItemStore) WithTx(tx *sql.Tx) store.VocabularyItemStore {
	return &SQLiteVocabularyItemStore{
		db:     tx,
		logger: s.logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVocabularyItem(row rowScanner) (*domain.VocabularyItem, error) {
	var (
		item                           domain.VocabularyItem
		id, learnerID                  string
		definition, example, sourceCtx sql.NullString
		lastReviewedAt, nextReviewAt   sql.NullInt64
		createdAt, updatedAt           int64
	)

	err := row.Scan(
		&id,
		&learnerID,
		&item.Word,
		&definition,
		&example,
		&sourceCtx,
		&item.MasteryLevel,
		&item.RetentionScore,
		&item.ReviewCount,
		&lastReviewedAt,
		&nextReviewAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if item.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid item id %q: %w", id, err)
	}
	if item.LearnerID, err = uuid.Parse(learnerID); err != nil {
		return nil, fmt.Errorf("invalid learner id %q: %w", learnerID, err)
	}

	item.Definition = nullStringPtr(definition)
	item.ExampleSentence = nullStringPtr(example)
	item.SourceContext = nullStringPtr(sourceCtx)
	item.LastReviewedAt = timePtr(lastReviewedAt)
	item.NextReviewAt = timePtr(nextReviewAt)
	item.CreatedAt = fromMicros(createdAt)
	item.UpdatedAt = fromMicros(updatedAt)

	return &item, nil
}
