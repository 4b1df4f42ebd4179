package srs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-review/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewedItem(level int, retention float64, count int, at time.Time) *domain.VocabularyItem {
	return &domain.VocabularyItem{
		ID:             uuid.New(),
		LearnerID:      uuid.New(),
		Word:           "laconic",
		MasteryLevel:   level,
		RetentionScore: retention,
		ReviewCount:    count,
		LastReviewedAt: &at,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
}

func TestNewDefaultService(t *testing.T) {
	t.Parallel()
	service, err := NewDefaultService()
	require.NoError(t, err, "Failed to create SRS service")
	require.NotNil(t, service)

	defaultService, ok := service.(*defaultService)
	require.True(t, ok, "Expected *defaultService type")
	assert.Equal(t, DefaultParams(), *defaultService.params)
}

func TestCalculateNextReview(t *testing.T) {
	t.Parallel()
	service, err := NewDefaultService()
	require.NoError(t, err, "Failed to create SRS service")

	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	earlier := now.Add(-48 * time.Hour)

	newItem, err := domain.NewVocabularyItem(uuid.New(), "ebullient", domain.ItemContent{})
	require.NoError(t, err)

	testCases := []struct {
		name          string
		item          *domain.VocabularyItem
		correct       bool
		wantLevel     int
		wantRetention float64
		wantDays      int
	}{
		{
			name:          "correct first review",
			item:          newItem,
			correct:       true,
			wantLevel:     1,
			wantRetention: 0.6,
			wantDays:      1,
		},
		{
			name:          "correct review crossing into mastered",
			item:          reviewedItem(3, 0.7, 5, earlier),
			correct:       true,
			wantLevel:     4,
			wantRetention: 0.8,
			wantDays:      30,
		},
		{
			name:          "correct review into learning band",
			item:          reviewedItem(1, 0.6, 1, earlier),
			correct:       true,
			wantLevel:     2,
			wantRetention: 0.7,
			wantDays:      7,
		},
		{
			name:          "incorrect review",
			item:          reviewedItem(2, 0.6, 3, earlier),
			correct:       false,
			wantLevel:     1,
			wantRetention: 0.4,
			wantDays:      1,
		},
		{
			name:          "correct at ceiling",
			item:          reviewedItem(5, 1.0, 12, earlier),
			correct:       true,
			wantLevel:     5,
			wantRetention: 1.0,
			wantDays:      30,
		},
		{
			name:          "incorrect at floor",
			item:          reviewedItem(0, 0.1, 4, earlier),
			correct:       false,
			wantLevel:     0,
			wantRetention: 0.0,
			wantDays:      1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			update, err := service.CalculateNextReview(tc.item, tc.correct, now)
			require.NoError(t, err)

			next := update.Item
			assert.Equal(t, tc.wantLevel, next.MasteryLevel)
			assert.Equal(t, tc.wantLevel, update.LevelAfter())
			assert.Equal(t, tc.wantRetention, next.RetentionScore)
			assert.Equal(t, tc.wantDays, update.IntervalDays)
			assert.Equal(t, tc.item.ReviewCount+1, next.ReviewCount)
			require.NotNil(t, next.LastReviewedAt)
			require.NotNil(t, next.NextReviewAt)
			assert.True(t, next.LastReviewedAt.Equal(now))
			assert.True(t, next.NextReviewAt.Equal(now.AddDate(0, 0, tc.wantDays)))
			assert.Equal(t, tc.item.ID, next.ID)
			assert.Equal(t, tc.item.Word, next.Word)
			assert.NoError(t, next.Validate())
		})
	}
}

func TestCalculateNextReviewNilItem(t *testing.T) {
	t.Parallel()
	service, err := NewDefaultService()
	require.NoError(t, err)

	_, err = service.CalculateNextReview(nil, true, time.Now())
	assert.ErrorIs(t, err, ErrNilItem)
}

func TestCalculateNextReviewNormalizesToUTC(t *testing.T) {
	t.Parallel()
	service, err := NewDefaultService()
	require.NoError(t, err)

	local := time.Date(2024, 6, 1, 23, 0, 0, 0, time.FixedZone("UTC-5", -5*60*60))
	update, err := service.CalculateNextReview(reviewedItem(1, 0.5, 1, local), true, local)
	require.NoError(t, err)

	assert.Equal(t, time.UTC, update.Item.LastReviewedAt.Location())
	assert.Equal(t, time.UTC, update.Item.NextReviewAt.Location())
}

func TestCalculateNextReviewStaysInBounds(t *testing.T) {
	t.Parallel()
	service, err := NewDefaultService()
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	item, err := domain.NewVocabularyItem(uuid.New(), "perspicacious", domain.ItemContent{})
	require.NoError(t, err)

	// Deterministic mixed sequence of outcomes with long runs in both directions.
	pattern := []bool{true, true, true, true, true, true, true, false, true, false,
		false, false, false, false, false, false, true, false, true, true}

	for i := 0; i < 200; i++ {
		correct := pattern[i%len(pattern)]
		update, err := service.CalculateNextReview(item, correct, now)
		require.NoError(t, err)

		next := update.Item
		require.GreaterOrEqual(t, next.MasteryLevel, domain.MinMasteryLevel)
		require.LessOrEqual(t, next.MasteryLevel, domain.MaxMasteryLevel)
		require.GreaterOrEqual(t, next.RetentionScore, domain.MinRetentionScore)
		require.LessOrEqual(t, next.RetentionScore, domain.MaxRetentionScore)
		require.Equal(t, i+1, next.ReviewCount)

		step := next.MasteryLevel - update.LevelBefore
		require.True(t, step >= -1 && step <= 1, "level moved by %d", step)

		item = next
		now = *next.NextReviewAt
	}
}
