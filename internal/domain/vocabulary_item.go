package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scheduling bounds shared by validation and the review policy.
const (
	MinMasteryLevel = 0
	MaxMasteryLevel = 5

	MinRetentionScore = 0.0
	MaxRetentionScore = 1.0

	// InitialMasteryLevel and InitialRetentionScore describe an item that has
	// never been reviewed.
	InitialMasteryLevel   = 0
	InitialRetentionScore = 0.5
)

// Vocabulary item validation errors
var (
	ErrItemIDEmpty          = fmt.Errorf("%w: vocabulary item ID cannot be empty", ErrValidation)
	ErrItemLearnerIDEmpty   = fmt.Errorf("%w: vocabulary item learner ID cannot be empty", ErrValidation)
	ErrItemWordEmpty        = fmt.Errorf("%w: vocabulary item word cannot be empty", ErrValidation)
	ErrMasteryOutOfRange    = fmt.Errorf("%w: mastery level must be between 0 and 5", ErrValidation)
	ErrRetentionOutOfRange  = fmt.Errorf("%w: retention score must be between 0.0 and 1.0", ErrValidation)
	ErrNegativeReviewCount  = fmt.Errorf("%w: review count cannot be negative", ErrValidation)
	ErrMissingLastReviewed  = fmt.Errorf("%w: reviewed item must have a last reviewed time", ErrValidation)
	ErrUnexpectedLastReview = fmt.Errorf("%w: unreviewed item cannot have a last reviewed time", ErrValidation)
)

// MasteryStage groups mastery levels into the bands that drive review intervals.
type MasteryStage string

// Mastery stages, from weakest to strongest.
const (
	StageNew          MasteryStage = "new"
	StageTransitional MasteryStage = "transitional"
	StageLearning     MasteryStage = "learning"
	StageMastered     MasteryStage = "mastered"
)

// StageForLevel returns the stage a mastery level belongs to.
func StageForLevel(level int) MasteryStage {
	switch {
	case level >= 4:
		return StageMastered
	case level >= 2:
		return StageLearning
	case level == 1:
		return StageTransitional
	default:
		return StageNew
	}
}

// VocabularyItem is one word a learner is studying, together with the
// scheduling state the review scheduler owns.
//
// The lexical fields are written by the vocabulary capture flow and are never
// changed by the scheduler. MasteryLevel, RetentionScore, ReviewCount,
// LastReviewedAt and NextReviewAt are owned exclusively by the scheduler.
type VocabularyItem struct {
	ID              uuid.UUID `json:"id"`
	LearnerID       uuid.UUID `json:"learner_id"`
	Word            string    `json:"word"`
	Definition      *string   `json:"definition,omitempty"`
	ExampleSentence *string   `json:"example_sentence,omitempty"`
	SourceContext   *string   `json:"source_context,omitempty"`

	MasteryLevel   int        `json:"mastery_level"`
	RetentionScore float64    `json:"retention_score"`
	ReviewCount    int        `json:"review_count"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"` // nil until the first review
	NextReviewAt   *time.Time `json:"next_review_at,omitempty"`   // nil means due immediately

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemContent carries the optional lexical fields of a new item.
type ItemContent struct {
	Definition      string
	ExampleSentence string
	SourceContext   string
}

// NewVocabularyItem creates a never-reviewed item for the learner.
// It is immediately due for review.
func NewVocabularyItem(learnerID uuid.UUID, word string, content ItemContent) (*VocabularyItem, error) {
	now := time.Now().UTC()
	item := &VocabularyItem{
		ID:              uuid.New(),
		LearnerID:       learnerID,
		Word:            strings.TrimSpace(word),
		Definition:      optionalString(content.Definition),
		ExampleSentence: optionalString(content.ExampleSentence),
		SourceContext:   optionalString(content.SourceContext),
		MasteryLevel:    InitialMasteryLevel,
		RetentionScore:  InitialRetentionScore,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks identity, content and the scheduling invariants.
func (i *VocabularyItem) Validate() error {
	if i.ID == uuid.Nil {
		return ErrItemIDEmpty
	}

	if i.LearnerID == uuid.Nil {
		return ErrItemLearnerIDEmpty
	}

	if strings.TrimSpace(i.Word) == "" {
		return ErrItemWordEmpty
	}

	if i.MasteryLevel < MinMasteryLevel || i.MasteryLevel > MaxMasteryLevel {
		return ErrMasteryOutOfRange
	}

	if i.RetentionScore < MinRetentionScore || i.RetentionScore > MaxRetentionScore {
		return ErrRetentionOutOfRange
	}

	if i.ReviewCount < 0 {
		return ErrNegativeReviewCount
	}

	if i.ReviewCount > 0 && i.LastReviewedAt == nil {
		return ErrMissingLastReviewed
	}

	if i.ReviewCount == 0 && i.LastReviewedAt != nil {
		return ErrUnexpectedLastReview
	}

	return nil
}

// NeverReviewed reports whether the item is still in its initial state.
func (i *VocabularyItem) NeverReviewed() bool {
	return i.LastReviewedAt == nil
}

// IsDue reports whether the item is eligible for review at the given time.
func (i *VocabularyItem) IsDue(now time.Time) bool {
	return i.NextReviewAt == nil || !i.NextReviewAt.After(now)
}

// Stage returns the mastery stage of the item's current level.
func (i *VocabularyItem) Stage() MasteryStage {
	return StageForLevel(i.MasteryLevel)
}

// Clone returns a deep copy of the item.
func (i *VocabularyItem) Clone() *VocabularyItem {
	c := *i
	c.Definition = cloneString(i.Definition)
	c.ExampleSentence = cloneString(i.ExampleSentence)
	c.SourceContext = cloneString(i.SourceContext)
	c.LastReviewedAt = cloneTime(i.LastReviewedAt)
	c.NextReviewAt = cloneTime(i.NextReviewAt)
	return &c
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
