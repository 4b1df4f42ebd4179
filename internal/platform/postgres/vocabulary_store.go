package postgres

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

// PostgresVocabularyItemStore implements the store.VocabularyItemStore interface
// using a PostgreSQL database as the storage backend.
type PostgresVocabularyItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresVocabularyItemStore creates a new PostgreSQL implementation of the VocabularyItemStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresVocabularyItemStore(db store.DBTX, logger *slog.Logger) *PostgresVocabularyItemStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresVocabularyItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "vocabulary_item_store")),
	}
}

// Ensure PostgresVocabularyItemStore implements store.VocabularyItemStore interface
var _ store.VocabularyItemStore = (*PostgresVocabularyItemStore)(nil)

// Create implements store.VocabularyItemStore.Create
func (s *PostgresVocabularyItemStore) Create(ctx context.Context, item *domain.VocabularyItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("vocabulary item validation failed during create",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO vocabulary_items (` + vocabularyItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.LearnerID,
		item.Word,
		item.Definition,
		item.ExampleSentence,
		item.SourceContext,
		item.MasteryLevel,
		item.RetentionScore,
		item.ReviewCount,
		item.LastReviewedAt,
		item.NextReviewAt,
		item.CreatedAt,
		item.UpdatedAt,
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

	log.Debug("vocabulary item created",
		slog.String("item_id", item.ID.String()),
		slog.String("learner_id", item.LearnerID.String()))
	return nil
}

// GetForUpdate implements store.VocabularyItemStore.GetForUpdate
// The row stays locked until the surrounding transaction commits or rolls back.
func (s *PostgresVocabularyItemStore) GetForUpdate(
	ctx context.Context,
	id, learnerID uuid.UUID,
) (*domain.VocabularyItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + vocabularyItemColumns + `
		FROM vocabulary_items
		WHERE id = $1 AND learner_id = $2
		FOR UPDATE
	`

	item, err := scanVocabularyItem(s.db.QueryRowContext(ctx, query, id, learnerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("vocabulary item not found",
				slog.String("item_id", id.String()),
				slog.String("learner_id", learnerID.String()))
			return nil, store.ErrVocabularyItemNotFound
		}

		if IsConcurrencyFailure(err) {
			log.Warn("concurrent transaction aborted item read",
				slog.String("error", err.Error()),
				slog.String("item_id", id.String()))
			return nil, store.NewStoreError(store.EntityVocabularyItem, "get_for_update", "concurrent update", MapError(err))
		}

		log.Error("failed to get vocabulary item for update",
			slog.String("error", err.Error()),
			slog.String("item_id", id.String()))
		return nil, store.NewStoreError(store.EntityVocabularyItem, "get_for_update", "failed to read item", MapError(err))
	}

	return item, nil
}

// ListDue implements store.VocabularyItemStore.ListDue
func (s *PostgresVocabularyItemStore) ListDue(
	ctx context.Context,
	learnerID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.VocabularyItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + vocabularyItemColumns + `
		FROM vocabulary_items
		WHERE learner_id = $1
		  AND (next_review_at IS NULL OR next_review_at <= $2)
		ORDER BY next_review_at ASC NULLS FIRST, created_at ASC, id ASC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID, now.UTC(), store.ClampDueLimit(limit))
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

	log.Debug("due vocabulary items listed",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", len(items)))
	return items, nil
}

// UpdateSchedule implements store.VocabularyItemStore.UpdateSchedule
func (s *PostgresVocabularyItemStore) UpdateSchedule(
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
		SET mastery_level = $1, retention_score = $2, review_count = $3,
		    last_reviewed_at = $4, next_review_at = $5, updated_at = $6
		WHERE id = $7 AND learner_id = $8 AND review_count = $9
	`
	result, err := s.db.ExecContext(ctx, query,
		item.MasteryLevel,
		item.RetentionScore,
		item.ReviewCount,
		item.LastReviewedAt,
		item.NextReviewAt,
		item.UpdatedAt,
		item.ID,
		item.LearnerID,
		expectedReviewCount,
	)
	if err != nil {
		if IsConcurrencyFailure(err) {
			log.Warn("concurrent transaction aborted schedule update",
				slog.String("error", err.Error()),
				slog.String("item_id", item.ID.String()))
			return store.NewStoreError(store.EntityVocabularyItem, "update_schedule", "concurrent update", MapError(err))
		}

		log.Error("failed to update vocabulary item schedule",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return store.NewStoreError(store.EntityVocabularyItem, "update_schedule", "failed to update schedule", MapError(err))
	}

	if err := CheckRowsAffected(result, "vocabulary item"); err != nil {
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
func (s *PostgresVocabularyItemStore) WithTx(tx *sql.Tx) store.VocabularyItemStore {
	return &PostgresVocabularyItemStore{
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
		definition, example, sourceCtx sql.NullString
		lastReviewedAt, nextReviewAt   sql.NullTime
	)

	err := row.Scan(
		&item.ID,
		&item.LearnerID,
		&item.Word,
		&definition,
		&example,
		&sourceCtx,
		&item.MasteryLevel,
		&item.RetentionScore,
		&item.ReviewCount,
		&lastReviewedAt,
		&nextReviewAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Definition = nullStringPtr(definition)
	item.ExampleSentence = nullStringPtr(example)
	item.SourceContext = nullStringPtr(sourceCtx)
	item.LastReviewedAt = nullTimePtr(lastReviewedAt)
	item.NextReviewAt = nullTimePtr(nextReviewAt)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()

	return &item, nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
