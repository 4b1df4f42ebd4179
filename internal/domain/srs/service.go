package srs

import (
	"errors"
	"time"

	"github.com/phrazzld/vocab-review/internal/domain"
)

// Common errors
var (
	ErrNilItem = errors.New("vocabulary item cannot be nil")
)

// ReviewUpdate is the result of applying one review to an item.
type ReviewUpdate struct {
	// Item is a new copy of the item carrying the post-review scheduling state.
	Item *domain.VocabularyItem
	// LevelBefore is the mastery level the review started from.
	LevelBefore int
	// IntervalDays is the number of days until the item is due again.
	IntervalDays int
}

// LevelAfter returns the mastery level reached by the review.
func (u *ReviewUpdate) LevelAfter() int {
	return u.Item.MasteryLevel
}

// Service defines the interface for review scheduling calculations
type Service interface {
	// CalculateNextReview computes the item's scheduling state after a review.
	// It is a pure function of its inputs.
	CalculateNextReview(
		item *domain.VocabularyItem,
		correct bool,
		now time.Time,
	) (*ReviewUpdate, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new scheduling service using the fixed policy
func NewDefaultService() (Service, error) {
	params := DefaultParams()
	return &defaultService{
		params: &params,
	}, nil
}

// CalculateNextReview implements the Service interface
func (s *defaultService) CalculateNextReview(
	item *domain.VocabularyItem,
	correct bool,
	now time.Time,
) (*ReviewUpdate, error) {
	if item == nil {
		return nil, ErrNilItem
	}

	return calculateNextItem(item, correct, now, s.params), nil
}
