package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ReviewModality identifies the exercise format used for a review.
type ReviewModality string

// Supported review modalities.
const (
	ModalityFlashcard          ReviewModality = "flashcard"
	ModalityFillBlank          ReviewModality = "fill_blank"
	ModalityMultipleChoice     ReviewModality = "multiple_choice"
	ModalityContextMatching    ReviewModality = "context_matching"
	ModalitySentenceCompletion ReviewModality = "sentence_completion"
)

// Confidence bounds for a self-reported confidence rating.
const (
	MinConfidence = 1
	MaxConfidence = 5
)

// Review validation errors
var (
	ErrEmptyItemID          = fmt.Errorf("%w: review item ID cannot be empty", ErrValidation)
	ErrEmptyLearnerID       = fmt.Errorf("%w: review learner ID cannot be empty", ErrValidation)
	ErrInvalidModality      = fmt.Errorf("%w: unknown review modality", ErrValidation)
	ErrInvalidResponseTime  = fmt.Errorf("%w: response time must be a finite, non-negative number", ErrValidation)
	ErrConfidenceOutOfRange = fmt.Errorf("%w: confidence must be between 1 and 5", ErrValidation)
	ErrEventMasteryRange    = fmt.Errorf("%w: review event mastery levels must be between 0 and 5", ErrValidation)
)

// Modalities returns every supported review modality.
func Modalities() []ReviewModality {
	return []ReviewModality{
		ModalityFlashcard,
		ModalityFillBlank,
		ModalityMultipleChoice,
		ModalityContextMatching,
		ModalitySentenceCompletion,
	}
}

// Valid reports whether m is a supported modality.
func (m ReviewModality) Valid() bool {
	switch m {
	case ModalityFlashcard, ModalityFillBlank, ModalityMultipleChoice,
		ModalityContextMatching, ModalitySentenceCompletion:
		return true
	}
	return false
}

// ReviewOutcome is a learner's answer to one review of one item.
type ReviewOutcome struct {
	ItemID              uuid.UUID
	Modality            ReviewModality
	Correct             bool
	ResponseTimeSeconds float64
	Confidence          *int
	UserAnswer          *string
	ExpectedAnswer      *string
}

// Validate checks the outcome's shape. Ownership of the item is not checked here.
func (o ReviewOutcome) Validate() error {
	if o.ItemID == uuid.Nil {
		return ErrEmptyItemID
	}

	if !o.Modality.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidModality, o.Modality)
	}

	if math.IsNaN(o.ResponseTimeSeconds) || math.IsInf(o.ResponseTimeSeconds, 0) ||
		o.ResponseTimeSeconds < 0 {
		return ErrInvalidResponseTime
	}

	if o.Confidence != nil && (*o.Confidence < MinConfidence || *o.Confidence > MaxConfidence) {
		return ErrConfidenceOutOfRange
	}

	return nil
}

// ReviewEvent is the immutable record of one successful review submission.
type ReviewEvent struct {
	ID                  uuid.UUID      `json:"id"`
	ItemID              uuid.UUID      `json:"item_id"`
	LearnerID           uuid.UUID      `json:"learner_id"`
	Modality            ReviewModality `json:"modality"`
	Correct             bool           `json:"correct"`
	ResponseTimeSeconds float64        `json:"response_time_seconds"`
	Confidence          *int           `json:"confidence,omitempty"`
	UserAnswer          *string        `json:"user_answer,omitempty"`
	ExpectedAnswer      *string        `json:"expected_answer,omitempty"`
	MasteryLevelBefore  int            `json:"mastery_level_before"`
	MasteryLevelAfter   int            `json:"mastery_level_after"`
	CreatedAt           time.Time      `json:"created_at"`
}

// NewReviewEvent records an outcome for the learner along with the mastery
// transition it caused.
func NewReviewEvent(
	learnerID uuid.UUID,
	outcome ReviewOutcome,
	levelBefore, levelAfter int,
	at time.Time,
) (*ReviewEvent, error) {
	if err := outcome.Validate(); err != nil {
		return nil, err
	}

	// Version 7 ids sort in creation order, which breaks created_at ties.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate review event id: %w", err)
	}

	event := &ReviewEvent{
		ID:                  id,
		ItemID:              outcome.ItemID,
		LearnerID:           learnerID,
		Modality:            outcome.Modality,
		Correct:             outcome.Correct,
		ResponseTimeSeconds: outcome.ResponseTimeSeconds,
		Confidence:          outcome.Confidence,
		UserAnswer:          outcome.UserAnswer,
		ExpectedAnswer:      outcome.ExpectedAnswer,
		MasteryLevelBefore:  levelBefore,
		MasteryLevelAfter:   levelAfter,
		CreatedAt:           at.UTC(),
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	return event, nil
}

// Validate checks that the event is complete.
func (e *ReviewEvent) Validate() error {
	if e.LearnerID == uuid.Nil {
		return ErrEmptyLearnerID
	}

	if e.ID == uuid.Nil {
		return ErrInvalidID
	}

	if e.MasteryLevelBefore < MinMasteryLevel || e.MasteryLevelBefore > MaxMasteryLevel ||
		e.MasteryLevelAfter < MinMasteryLevel || e.MasteryLevelAfter > MaxMasteryLevel {
		return ErrEventMasteryRange
	}

	return ReviewOutcome{
		ItemID:              e.ItemID,
		Modality:            e.Modality,
		ResponseTimeSeconds: e.ResponseTimeSeconds,
		Confidence:          e.Confidence,
	}.Validate()
}
