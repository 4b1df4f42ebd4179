// Package vocab_review schedules vocabulary reviews for a learner: it selects
// the items that are due and applies review outcomes to an item's mastery
// state.
package vocab_review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-review/internal/domain"
	"github.com/phrazzld/vocab-review/internal/store"
)

// DefaultDueLimit is the due-set size used when a caller does not choose one.
const DefaultDueLimit = 10

// Operation names carried by ServiceError.
const (
	OpSelectDue    = "select_due"
	OpSubmitReview = "submit_review"
)

// ReviewResult is the outcome of a successful review submission.
type ReviewResult struct {
	// Item is the item's persisted state after the review.
	Item *domain.VocabularyItem `json:"item"`
	// Event is the review event appended for the submission.
	Event *domain.ReviewEvent `json:"event"`
	// IntervalDays is the number of days until the item is due again.
	IntervalDays int `json:"interval_days"`
}

// Service provides the review scheduling operations.
type Service interface {
	// SelectDue returns up to limit of the learner's items that are due now.
	// Never-reviewed items come first, then the most overdue.
	//
	// Returns:
	//   - ErrNotAuthenticated if learnerID is uuid.Nil
	//   - ErrInvalidLimit if limit is not positive; limits above 100 are clamped
	//   - ErrStoreUnavailable if the store cannot be read
	//
	// An empty due set is an empty, non-nil slice.
	SelectDue(ctx context.Context, learnerID uuid.UUID, limit int) ([]*domain.VocabularyItem, error)

	// SubmitReview applies a review outcome to the learner's item and records
	// a ReviewEvent. The item update and the event are committed together.
	//
	// Returns:
	//   - ErrNotAuthenticated if learnerID is uuid.Nil
	//   - ErrInvalidOutcome if the outcome is malformed
	//   - ErrItemNotFound if the item does not exist or belongs to another learner
	//   - ErrConcurrentUpdateConflict if the item kept changing underneath the update
	//   - ErrStoreUnavailable if the store failed
	SubmitReview(ctx context.Context, learnerID uuid.UUID, outcome domain.ReviewOutcome) (*ReviewResult, error)
}

// Error kinds returned by Service. Match them with errors.Is.
var (
	// ErrNotAuthenticated indicates the caller identity is missing.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrItemNotFound indicates the item does not exist or is owned by
	// another learner. The two cases are not distinguished.
	ErrItemNotFound = errors.New("vocabulary item not found")

	// ErrInvalidOutcome indicates a malformed review outcome.
	ErrInvalidOutcome = errors.New("invalid review outcome")

	// ErrInvalidLimit indicates a due-set limit that is not positive.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrConcurrentUpdateConflict indicates the item changed concurrently on
	// every attempt.
	ErrConcurrentUpdateConflict = errors.New("concurrent update conflict")

	// ErrStoreUnavailable indicates a transient storage failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ServiceError carries the failed operation and error kind alongside the
// underlying cause. Both Kind and Err are visible to errors.Is and errors.As.
type ServiceError struct {
	// Operation is the operation that failed (OpSelectDue or OpSubmitReview)
	Operation string
	// Kind is one of the sentinel errors of this package
	Kind error
	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %v: %v", e.Operation, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %v", e.Operation, e.Kind)
}

// Unwrap returns the kind and the cause.
func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newServiceError(op string, kind, err error) *ServiceError {
	return &ServiceError{Operation: op, Kind: kind, Err: err}
}

// IsRetryable reports whether repeating the same call may succeed.
// Only conflicts and store failures are retryable. A store failure caused by
// a row that breaks the item or event invariants is permanent.
func IsRetryable(err error) bool {
	if errors.Is(err, store.ErrInvalidEntity) {
		return false
	}
	return errors.Is(err, ErrConcurrentUpdateConflict) || errors.Is(err, ErrStoreUnavailable)
}
