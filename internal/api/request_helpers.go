package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/vocab-review/internal/api/shared"
	"github.com/phrazzld/vocab-review/internal/domain"
	"github.com/phrazzld/vocab-review/internal/service/vocab_review"
)

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidID, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, paramName)
	}
	return id, nil
}

// parseLimit reads the limit query parameter. A missing parameter selects
// vocab_review.DefaultDueLimit; range checks are left to the service.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return vocab_review.DefaultDueLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", vocab_review.ErrInvalidLimit, raw)
	}
	return limit, nil
}

// requireLearnerID returns the authenticated learner, writing a 401 response
// when there is none.
func requireLearnerID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	learnerID, ok := shared.LearnerIDFromContext(r.Context())
	if !ok {
		log.Warn("learner ID not found or invalid in request context")
		HandleAPIError(w, r, vocab_review.ErrNotAuthenticated, "")
		return uuid.Nil, false
	}
	return learnerID, true
}
