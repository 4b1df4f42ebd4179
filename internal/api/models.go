package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-review/internal/domain"
	"github.com/phrazzld/vocab-review/internal/service/vocab_review"
)

// SubmitReviewRequest is the payload of POST /api/vocabulary/{id}/reviews.
// Correct and ResponseTimeSeconds are pointers so that false and 0 can be
// told apart from a missing field.
type SubmitReviewRequest struct {
	Modality            string   `json:"modality"              validate:"required,oneof=flashcard fill_blank multiple_choice context_matching sentence_completion"`
	Correct             *bool    `json:"correct"               validate:"required"`
	ResponseTimeSeconds *float64 `json:"response_time_seconds" validate:"required,gte=0"`
	Confidence          *int     `json:"confidence,omitempty"  validate:"omitempty,min=1,max=5"`
	UserAnswer          *string  `json:"user_answer,omitempty" validate:"omitempty,max=1000"`
	ExpectedAnswer      *string  `json:"expected_answer,omitempty" validate:"omitempty,max=1000"`
}

// toOutcome converts a validated request into a review outcome.
func (r *SubmitReviewRequest) toOutcome(itemID uuid.UUID) domain.ReviewOutcome {
	return domain.ReviewOutcome{
		ItemID:              itemID,
		Modality:            domain.ReviewModality(r.Modality),
		Correct:             *r.Correct,
		ResponseTimeSeconds: *r.ResponseTimeSeconds,
		Confidence:          r.Confidence,
		UserAnswer:          r.UserAnswer,
		ExpectedAnswer:      r.ExpectedAnswer,
	}
}

// ItemResponse is a vocabulary item with its scheduling state.
type ItemResponse struct {
	ID              uuid.UUID           `json:"id"`
	Word            string              `json:"word"`
	Definition      *string             `json:"definition,omitempty"`
	ExampleSentence *string             `json:"example_sentence,omitempty"`
	SourceContext   *string             `json:"source_context,omitempty"`
	MasteryLevel    int                 `json:"mastery_level"`
	Stage           domain.MasteryStage `json:"stage"`
	RetentionScore  float64             `json:"retention_score"`
	ReviewCount     int                 `json:"review_count"`
	LastReviewedAt  *time.Time          `json:"last_reviewed_at,omitempty"`
	NextReviewAt    *time.Time          `json:"next_review_at,omitempty"`
}

// DueItemsResponse is the body of GET /api/reviews/due.
type DueItemsResponse struct {
	Items []ItemResponse `json:"items"`
}

// ReviewResponse is the body of a successful review submission.
type ReviewResponse struct {
	Item         ItemResponse        `json:"item"`
	Event        *domain.ReviewEvent `json:"event"`
	IntervalDays int                 `json:"interval_days"`
}

func itemToResponse(item *domain.VocabularyItem) ItemResponse {
	return ItemResponse{
		ID:              item.ID,
		Word:            item.Word,
		Definition:      item.Definition,
		ExampleSentence: item.ExampleSentence,
		SourceContext:   item.SourceContext,
		MasteryLevel:    item.MasteryLevel,
		Stage:           item.Stage(),
		RetentionScore:  item.RetentionScore,
		ReviewCount:     item.ReviewCount,
		LastReviewedAt:  item.LastReviewedAt,
		NextReviewAt:    item.NextReviewAt,
	}
}

func itemsToResponse(items []*domain.VocabularyItem) DueItemsResponse {
	resp := DueItemsResponse{Items: make([]ItemResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, itemToResponse(item))
	}
	return resp
}

func reviewToResponse(result *vocab_review.ReviewResult) ReviewResponse {
	return ReviewResponse{
		Item:         itemToResponse(result.Item),
		Event:        result.Event,
		IntervalDays: result.IntervalDays,
	}
}
