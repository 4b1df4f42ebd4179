package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/vocab-review/internal/domain"
	"github.com/phrazzld/vocab-review/internal/platform/postgres"
	"github.com/phrazzld/vocab-review/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventColumns = []string{
	"id", "item_id", "learner_id", "modality", "correct", "response_time_seconds",
	"confidence", "user_answer", "expected_answer",
	"mastery_level_before", "mastery_level_after", "created_at",
}

func TestReviewEventStore_Append(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresReviewEventStore(db, nil)

	confidence := 4
	learnerID := uuid.New()
	event, err := domain.NewReviewEvent(learnerID, domain.ReviewOutcome{
		ItemID:              uuid.New(),
		Modality:            domain.ModalityMultipleChoice,
		Correct:             true,
		ResponseTimeSeconds: 3.25,
		Confidence:          &confidence,
	}, 0, 1, time.Now())
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_events")).
		WithArgs(
			event.ID.String(), event.ItemID.String(), learnerID.String(), "multiple_choice", true, 3.25,
			int64(4), nil, nil, int64(0), int64(1), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Append(context.Background(), event))
}

func TestReviewEventStore_AppendInvalid(t *testing.T) {
	db, _ := newMockDB(t)
	s := postgres.NewPostgresReviewEventStore(db, nil)

	err := s.Append(context.Background(), &domain.ReviewEvent{ID: uuid.New()})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestReviewEventStore_AppendForeignKeyViolation(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresReviewEventStore(db, nil)

	event, err := domain.NewReviewEvent(uuid.New(), domain.ReviewOutcome{
		ItemID:   uuid.New(),
		Modality: domain.ModalityFlashcard,
	}, 0, 0, time.Now())
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_events")).
		WillReturnError(newPgError("23503"))

	err = s.Append(context.Background(), event)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestReviewEventStore_ListByItem(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresReviewEventStore(db, nil)

	itemID, learnerID := uuid.New(), uuid.New()
	first := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, id ASC")).
		WithArgs(itemID.String(), learnerID.String()).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow(uuid.NewString(), itemID.String(), learnerID.String(), "flashcard", true, 1.5,
				int64(5), "answer", "answer", int64(0), int64(1), first).
			AddRow(uuid.NewString(), itemID.String(), learnerID.String(), "fill_blank", false, 9.0,
				nil, nil, nil, int64(1), int64(0), first.Add(time.Hour)))

	events, err := s.ListByItem(context.Background(), itemID, learnerID)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, domain.ModalityFlashcard, events[0].Modality)
	require.NotNil(t, events[0].Confidence)
	assert.Equal(t, 5, *events[0].Confidence)
	assert.Equal(t, "answer", *events[0].UserAnswer)
	assert.Equal(t, 1, events[0].MasteryLevelAfter)

	assert.Equal(t, domain.ModalityFillBlank, events[1].Modality)
	assert.Nil(t, events[1].Confidence)
	assert.Nil(t, events[1].UserAnswer)
	assert.False(t, events[1].Correct)
}
