package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/vocab-review/internal/domain"
	"github.com/phrazzld/vocab-review/internal/platform/logger"
	"github.com/phrazzld/vocab-review/internal/platform/postgres"
	"github.com/phrazzld/vocab-review/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemColumns = []string{
	"id", "learner_id", "word", "definition", "example_sentence", "source_context",
	"mastery_level", "retention_score", "review_count", "last_reviewed_at", "next_review_at",
	"created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func reviewedItem(t *testing.T, learnerID uuid.UUID) *domain.VocabularyItem {
	t.Helper()
	item, err := domain.NewVocabularyItem(learnerID, "sonder", domain.ItemContent{Definition: "a realization"})
	require.NoError(t, err)

	at := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	next := at.AddDate(0, 0, 7)
	item.MasteryLevel = 2
	item.RetentionScore = 0.7
	item.ReviewCount = 2
	item.LastReviewedAt = &at
	item.NextReviewAt = &next
	return item
}

func TestVocabularyItemStore_Create(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresVocabularyItemStore(db, nil)
	item, err := domain.NewVocabularyItem(uuid.New(), "petrichor", domain.ItemContent{})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vocabulary_items")).
		WithArgs(
			item.ID.String(), item.LearnerID.String(), "petrichor", nil, nil, nil,
			int64(0), 0.5, int64(0), nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), item))
}

func TestVocabularyItemStore_CreateDuplicateWord(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresVocabularyItemStore(db, nil)
	item, err := domain.NewVocabularyItem(uuid.New(), "petrichor", domain.ItemContent{})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vocabulary_items")).
		WillReturnError(newPgError("23505"))

	err = s.Create(context.Background(), item)
	assert.ErrorIs(t, err, store.ErrWordExists)
	assert.True(t, store.IsDuplicateError(err))
}

func TestVocabularyItemStore_CreateInvalid(t *testing.T) {
	db, _ := newMockDB(t)
	s := postgres.NewPostgresVocabularyItemStore(db, nil)

	err := s.Create(context.Background(), &domain.VocabularyItem{ID: uuid.New()})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVocabularyItemStore_GetForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresVocabularyItemStore(db, nil)

	learnerID := uuid.New()
	want := reviewedItem(t, learnerID)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND learner_id = $2")).
		WithArgs(want.ID.String(), learnerID.String()).
		WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(
			want.ID.String(), learnerID.String(), want.Word, *want.Definition, nil, nil,
			int64(2), 0.7, int64(2), *want.LastReviewedAt, *want.NextReviewAt,
			want.CreatedAt, want.UpdatedAt,
		))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	got, err := s.WithTx(tx).GetForUpdate(context.Background(), want.ID, learnerID)
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, learnerID, got.LearnerID)
	assert.Equal(t, "a realization", *got.Definition)
	assert.Nil(t, got.ExampleSentence)
	assert.Equal(t, 2, got.MasteryLevel)
	assert.Equal(t, 0.7, got.RetentionScore)
	assert.Equal(t, 2, got.ReviewCount)
	assert.True(t, got.LastReviewedAt.Equal(*want.LastReviewedAt))
	assert.True(t, got.NextReviewAt.Equal(*want.NextReviewAt))
}

func TestVocabularyItemStore_GetForUpdateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresVocabularyItemStore(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM vocabulary_items")).
		WillReturnRows(sqlmock.NewRows(itemColumns))

	_, err := s.GetForUpdate(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrVocabularyItemNotFound)
}

func TestVocabularyItemStore_ListDue(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresVocabularyItemStore(db, nil)

	learnerID := uuid.New()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	newID, oldID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY next_review_at ASC NULLS FIRST, created_at ASC, id ASC")).
		WithArgs(learnerID.String(), now, int64(store.MaxDueLimit)).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow(newID.String(), learnerID.String(), "brand new", nil, nil, nil,
				int64(0), 0.5, int64(0), nil, nil, now, now).
			AddRow(oldID.String(), learnerID.String(), "overdue", nil, nil, nil,
				int64(1), 0.6, int64(1), yesterday.AddDate(0, 0, -1), yesterday, now, now))

	items, err := s.ListDue(context.Background(), learnerID, now, 500)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, newID, items[0].ID)
	assert.Nil(t, items[0].NextReviewAt)
	assert.Equal(t, oldID, items[1].ID)
}

func TestVocabularyItemStore_ListDueEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresVocabularyItemStore(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM vocabulary_items")).
		WillReturnRows(sqlmock.NewRows(itemColumns))

	items, err := s.ListDue(context.Background(), uuid.New(), time.Now(), 10)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestVocabularyItemStore_UpdateSchedule(t *testing.T) {
	learnerID := uuid.New()

	t.Run("guard matches", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresVocabularyItemStore(db, nil)
		item := reviewedItem(t, learnerID)

		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $7 AND learner_id = $8 AND review_count = $9")).
			WithArgs(int64(2), 0.7, int64(2), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				item.ID.String(), learnerID.String(), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateSchedule(context.Background(), item, 1))
	})

	t.Run("stale read", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresVocabularyItemStore(db, nil)
		item := reviewedItem(t, learnerID)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE vocabulary_items")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.UpdateSchedule(context.Background(), item, 1)
		assert.ErrorIs(t, err, store.ErrVersionConflict)

		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "item changed since it was read", storeErr.Message)
	})

	t.Run("serialization failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		log, logBuf := logger.GetTestLogger(t)
		s := postgres.NewPostgresVocabularyItemStore(db, log)
		item := reviewedItem(t, learnerID)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE vocabulary_items")).
			WillReturnError(newPgError("40001"))

		err := s.UpdateSchedule(context.Background(), item, 1)
		assert.ErrorIs(t, err, store.ErrVersionConflict)

		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, store.EntityVocabularyItem, storeErr.Entity)
		assert.Equal(t, "update_schedule", storeErr.Operation)

		logger.AssertLogContains(t, logBuf, "concurrent transaction aborted schedule update")
		logger.AssertLogField(t, logBuf, "level", "WARN")
		logger.AssertLogNotContains(t, logBuf, `"level":"ERROR"`)
	})

	t.Run("deadlock on read", func(t *testing.T) {
		db, mock := newMockDB(t)
		log, logBuf := logger.GetTestLogger(t)
		s := postgres.NewPostgresVocabularyItemStore(db, log)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND learner_id = $2")).
			WillReturnError(newPgError("40P01"))

		_, err := s.GetForUpdate(context.Background(), uuid.New(), learnerID)
		assert.True(t, store.IsConflictError(err))
		logger.AssertLogContains(t, logBuf, "concurrent transaction aborted item read")
	})

	t.Run("connection error", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresVocabularyItemStore(db, nil)
		item := reviewedItem(t, learnerID)
		connErr := errors.New("connection reset by peer")

		mock.ExpectExec(regexp.QuoteMeta("UPDATE vocabulary_items")).
			WillReturnError(connErr)

		err := s.UpdateSchedule(context.Background(), item, 1)
		assert.ErrorIs(t, err, connErr)
		assert.False(t, store.IsConflictError(err))
	})
}
