package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-review/internal/domain"
)

// MaxDueLimit caps the number of items a due query may return.
const MaxDueLimit = 100

// VocabularyItemStore defines the interface for vocabulary item persistence.
//
// Every read and write is scoped to a learner. An item owned by another
// learner is reported as ErrVocabularyItemNotFound, exactly like a missing one.
type VocabularyItemStore interface {
	// Create saves a new vocabulary item.
	// Returns ErrWordExists if the learner already has the word.
	Create(ctx context.Context, item *domain.VocabularyItem) error

	// GetForUpdate retrieves the learner's item and, on backends that
	// support it, locks the row until the surrounding transaction ends.
	// It must be called on a store returned by WithTx.
	GetForUpdate(ctx context.Context, id, learnerID uuid.UUID) (*domain.VocabularyItem, error)

	// ListDue returns up to limit items of the learner that are due at now:
	// never-scheduled items first, then by next review time, creation time
	// and id. An empty result is an empty, non-nil slice.
	ListDue(ctx context.Context, learnerID uuid.UUID, now time.Time, limit int) ([]*domain.VocabularyItem, error)

	// UpdateSchedule writes the item's scheduling state, but only if the
	// stored review count still equals expectedReviewCount.
	// Returns ErrVersionConflict when no row matched the guard.
	UpdateSchedule(ctx context.Context, item *domain.VocabularyItem, expectedReviewCount int) error

	// WithTx returns a new VocabularyItemStore instance that uses the provided transaction.
	//
	// Example usage:
	//   err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
	//       txItems := itemStore.WithTx(tx)
	//       item, err := txItems.GetForUpdate(ctx, id, learnerID)
	//       ...
	//   })
	WithTx(tx *sql.Tx) VocabularyItemStore
}

// ReviewEventStore defines the interface for the append-only review log.
type ReviewEventStore interface {
	// Append records a review event. Events are never updated or deleted.
	Append(ctx context.Context, event *domain.ReviewEvent) error

	// ListByItem returns the learner's events for an item, oldest first.
	ListByItem(ctx context.Context, itemID, learnerID uuid.UUID) ([]*domain.ReviewEvent, error)

	// WithTx returns a new ReviewEventStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ReviewEventStore
}

// ClampDueLimit caps a positive limit at MaxDueLimit.
func ClampDueLimit(limit int) int {
	if limit > MaxDueLimit {
		return MaxDueLimit
	}
	return limit
}
