package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func intPtr(v int) *int { return &v }

func TestReviewModalityValid(t *testing.T) {
	t.Parallel()
	for _, m := range Modalities() {
		if !m.Valid() {
			t.Errorf("Expected modality %q to be valid", m)
		}
	}

	for _, m := range []ReviewModality{"", "essay", "FLASHCARD"} {
		if m.Valid() {
			t.Errorf("Expected modality %q to be invalid", m)
		}
	}
}

func TestReviewOutcomeValidate(t *testing.T) {
	t.Parallel()
	valid := func() ReviewOutcome {
		return ReviewOutcome{
			ItemID:              uuid.New(),
			Modality:            ModalityFillBlank,
			Correct:             true,
			ResponseTimeSeconds: 2.5,
		}
	}

	tests := []struct {
		name    string
		mutate  func(o *ReviewOutcome)
		wantErr error
	}{
		{"valid", func(o *ReviewOutcome) {}, nil},
		{"zero latency", func(o *ReviewOutcome) { o.ResponseTimeSeconds = 0 }, nil},
		{"confidence min", func(o *ReviewOutcome) { o.Confidence = intPtr(1) }, nil},
		{"confidence max", func(o *ReviewOutcome) { o.Confidence = intPtr(5) }, nil},
		{"missing item", func(o *ReviewOutcome) { o.ItemID = uuid.Nil }, ErrEmptyItemID},
		{"unknown modality", func(o *ReviewOutcome) { o.Modality = "essay" }, ErrInvalidModality},
		{"negative latency", func(o *ReviewOutcome) { o.ResponseTimeSeconds = -1 }, ErrInvalidResponseTime},
		{"NaN latency", func(o *ReviewOutcome) { o.ResponseTimeSeconds = math.NaN() }, ErrInvalidResponseTime},
		{"infinite latency", func(o *ReviewOutcome) { o.ResponseTimeSeconds = math.Inf(1) }, ErrInvalidResponseTime},
		{"confidence zero", func(o *ReviewOutcome) { o.Confidence = intPtr(0) }, ErrConfidenceOutOfRange},
		{"confidence six", func(o *ReviewOutcome) { o.Confidence = intPtr(6) }, ErrConfidenceOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(&o)
			err := o.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected error to wrap ErrValidation, got %v", err)
			}
		})
	}
}

func TestNewReviewEvent(t *testing.T) {
	t.Parallel()
	learnerID := uuid.New()
	answer := "ubiquitous"
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60))
	outcome := ReviewOutcome{
		ItemID:              uuid.New(),
		Modality:            ModalitySentenceCompletion,
		Correct:             true,
		ResponseTimeSeconds: 4.2,
		Confidence:          intPtr(3),
		UserAnswer:          &answer,
		ExpectedAnswer:      &answer,
	}

	event, err := NewReviewEvent(learnerID, outcome, 1, 2, at)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if event.ID == uuid.Nil {
		t.Error("Expected non-nil event ID")
	}
	if event.ItemID != outcome.ItemID || event.LearnerID != learnerID {
		t.Error("Expected event to reference the item and learner")
	}
	if event.MasteryLevelBefore != 1 || event.MasteryLevelAfter != 2 {
		t.Errorf("Expected transition 1 -> 2, got %d -> %d", event.MasteryLevelBefore, event.MasteryLevelAfter)
	}
	if event.CreatedAt.Location() != time.UTC || !event.CreatedAt.Equal(at) {
		t.Errorf("Expected CreatedAt %v in UTC, got %v", at, event.CreatedAt)
	}

	_, err = NewReviewEvent(uuid.Nil, outcome, 1, 2, at)
	if err != ErrEmptyLearnerID {
		t.Errorf("Expected error %v, got %v", ErrEmptyLearnerID, err)
	}

	_, err = NewReviewEvent(learnerID, outcome, 5, 6, at)
	if err != ErrEventMasteryRange {
		t.Errorf("Expected error %v, got %v", ErrEventMasteryRange, err)
	}

	outcome.Modality = "essay"
	_, err = NewReviewEvent(learnerID, outcome, 1, 2, at)
	if !errors.Is(err, ErrInvalidModality) {
		t.Errorf("Expected error %v, got %v", ErrInvalidModality, err)
	}
}

func TestNewReviewEventIDsFollowCreationOrder(t *testing.T) {
	t.Parallel()
	learnerID := uuid.New()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	outcome := ReviewOutcome{ItemID: uuid.New(), Modality: ModalityFlashcard, Correct: true}

	var prev *ReviewEvent
	for level := 0; level < MaxMasteryLevel; level++ {
		event, err := NewReviewEvent(learnerID, outcome, level, level+1, at)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if event.ID.Version() != 7 {
			t.Errorf("Expected a version 7 id, got version %d", event.ID.Version())
		}
		if prev != nil && event.ID.String() <= prev.ID.String() {
			t.Errorf("Expected id %s to sort after %s", event.ID, prev.ID)
		}
		prev = event
	}
}
