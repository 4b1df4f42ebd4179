package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/vocab-review/internal/api/shared"
	"github.com/phrazzld/vocab-review/internal/domain"
	"github.com/phrazzld/vocab-review/internal/service/auth"
	"github.com/phrazzld/vocab-review/internal/service/vocab_review"
	"github.com/phrazzld/vocab-review/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, vocab_review.ErrNotAuthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidLearnerID):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, vocab_review.ErrItemNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, vocab_review.ErrInvalidOutcome),
		errors.Is(err, vocab_review.ErrInvalidLimit),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, vocab_review.ErrConcurrentUpdateConflict):
		return http.StatusConflict

	// Stored data that breaks invariants is a server fault, not an outage
	case errors.Is(err, store.ErrInvalidEntity):
		return http.StatusInternalServerError

	case errors.Is(err, vocab_review.ErrStoreUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, vocab_review.ErrNotAuthenticated),
		errors.Is(err, auth.ErrMissingToken):
		return "Authentication required"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidLearnerID):
		return "Invalid token"

	case errors.Is(err, vocab_review.ErrItemNotFound):
		return "Vocabulary item not found"

	case errors.Is(err, vocab_review.ErrInvalidLimit):
		return "Limit must be a positive integer"

	case errors.Is(err, vocab_review.ErrInvalidOutcome):
		return "Invalid review outcome"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, domain.ErrValidation):
		return "Validation error"

	case errors.Is(err, vocab_review.ErrConcurrentUpdateConflict):
		return "The item was updated concurrently, please retry"

	case errors.Is(err, store.ErrInvalidEntity):
		return "An unexpected error occurred"

	case errors.Is(err, vocab_review.ErrStoreUnavailable):
		return "Service temporarily unavailable, please retry"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a message naming the
// first offending field, without exposing struct internals.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "Validation error"
	}

	fe := validationErrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the error response for err. The status code and
// message are derived from the error kind; fallbackMessage replaces the
// generic message of unclassified errors when it is not empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallbackMessage != "" {
		message = fallbackMessage
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err,
		shared.WithRetryable(vocab_review.IsRetryable(err)))
}
