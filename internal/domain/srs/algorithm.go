package srs

import (
	"math"
	"time"

	"github.com/phrazzld/vocab-review/internal/domain"
)

// currentState returns the level and retention a review starts from.
// A never-reviewed item always starts from the initial state, whatever
// values happen to be stored on it.
func currentState(item *domain.VocabularyItem, params *Params) (int, float64) {
	if item.NeverReviewed() {
		return params.InitialLevel, params.InitialRetention
	}
	return item.MasteryLevel, item.RetentionScore
}

// calculateNewLevel moves the mastery level one step up or down, clamped to
// the level bounds.
func calculateNewLevel(level int, correct bool, params *Params) int {
	if correct {
		level += params.LevelStep
	} else {
		level -= params.LevelStep
	}

	if level < params.MinLevel {
		return params.MinLevel
	}
	if level > params.MaxLevel {
		return params.MaxLevel
	}
	return level
}

// calculateNewRetention adjusts the retention score, clamps it to [0, 1] and
// rounds it to a fixed number of decimals so repeated reviews do not drift.
func calculateNewRetention(retention float64, correct bool, params *Params) float64 {
	if correct {
		retention += params.CorrectRetention
	} else {
		retention += params.IncorrectRetention
	}

	retention = math.Max(params.MinRetention, math.Min(params.MaxRetention, retention))
	return roundTo(retention, params.RetentionDecimals)
}

// calculateIntervalDays returns the number of days until the next review,
// based on the level reached after the review.
func calculateIntervalDays(newLevel int, correct bool, params *Params) int {
	if !correct {
		return params.LapseIntervalDays
	}

	switch {
	case newLevel >= params.MasteredLevel:
		return params.MasteredIntervalDays
	case newLevel >= params.LearningLevel:
		return params.LearningIntervalDays
	default:
		return params.BaseIntervalDays
	}
}

// calculateNextReviewDate converts an interval into calendar days from now.
func calculateNextReviewDate(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, days)
}

// calculateNextItem returns a copy of the item with its scheduling state
// advanced by one review. The input item is not modified.
func calculateNextItem(
	item *domain.VocabularyItem,
	correct bool,
	now time.Time,
	params *Params,
) *ReviewUpdate {
	now = now.UTC()
	level, retention := currentState(item, params)

	next := item.Clone()
	next.MasteryLevel = calculateNewLevel(level, correct, params)
	next.RetentionScore = calculateNewRetention(retention, correct, params)

	days := calculateIntervalDays(next.MasteryLevel, correct, params)
	nextReview := calculateNextReviewDate(now, days)
	reviewedAt := now

	next.LastReviewedAt = &reviewedAt
	next.NextReviewAt = &nextReview
	next.ReviewCount = item.ReviewCount + 1
	next.UpdatedAt = now

	return &ReviewUpdate{
		Item:         next,
		LevelBefore:  level,
		IntervalDays: days,
	}
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
