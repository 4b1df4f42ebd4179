package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/vocab-review/internal/api/shared"
	"github.com/phrazzld/vocab-review/internal/platform/logger"
	"github.com/phrazzld/vocab-review/internal/service/vocab_review"
)

// ReviewHandler handles review scheduling HTTP requests.
type ReviewHandler struct {
	reviewService vocab_review.Service
	logger        *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService vocab_review.Service, logger *slog.Logger) *ReviewHandler {
	if reviewService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("reviewService cannot be nil for ReviewHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger.With(slog.String("component", "review_handler")),
	}
}

// GetDueItems handles GET /api/reviews/due?limit=N.
func (h *ReviewHandler) GetDueItems(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearnerID(w, r, log)
	if !ok {
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	items, err := h.reviewService.SelectDue(r.Context(), learnerID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to select due items")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, itemsToResponse(items))
}

// SubmitReview handles POST /api/vocabulary/{id}/reviews.
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearnerID(w, r, log)
	if !ok {
		return
	}

	itemID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req SubmitReviewRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	result, err := h.reviewService.SubmitReview(r.Context(), learnerID, req.toOutcome(itemID))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit review")
		return
	}

	log.Debug("review submitted",
		slog.String("item_id", itemID.String()),
		slog.Int("mastery_level", result.Item.MasteryLevel))
	shared.RespondWithJSON(w, r, http.StatusOK, reviewToResponse(result))
}
