package vocab_review

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/phrazzld/vocab-review/internal/domain"
	"github.com/phrazzld/vocab-review/internal/domain/srs"
	"github.com/phrazzld/vocab-review/internal/platform/logger"
	"github.com/phrazzld/vocab-review/internal/store"
)

// submitAttempts is the first attempt plus one retry after a version conflict.
const submitAttempts = 2

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	items      store.VocabularyItemStore
	events     store.ReviewEventStore
	txRunner   store.TxRunner
	srsService srs.Service
	clock      func() time.Time
	logger     *slog.Logger
}

// Option configures the service.
type Option func(*serviceImpl)

// WithClock replaces time.Now as the source of the review time.
func WithClock(clock func() time.Time) Option {
	return func(s *serviceImpl) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService creates a new review scheduling Service.
func NewService(
	items store.VocabularyItemStore,
	events store.ReviewEventStore,
	txRunner store.TxRunner,
	srsService srs.Service,
	logger *slog.Logger,
	opts ...Option,
) Service {
	if items == nil {
		panic("items cannot be nil")
	}
	if events == nil {
		panic("events cannot be nil")
	}
	if txRunner == nil {
		panic("txRunner cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &serviceImpl{
		items:      items,
		events:     events,
		txRunner:   txRunner,
		srsService: srsService,
		clock:      time.Now,
		logger:     logger.With(slog.String("component", "vocab_review_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now returns the current time at the precision both backends persist.
func (s *serviceImpl) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// SelectDue implements Service.SelectDue.
func (s *serviceImpl) SelectDue(
	ctx context.Context,
	learnerID uuid.UUID,
	limit int,
) ([]*domain.VocabularyItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if learnerID == uuid.Nil {
		return nil, newServiceError(OpSelectDue, ErrNotAuthenticated, nil)
	}
	if limit <= 0 {
		log.Debug("rejected due-set limit", slog.Int("limit", limit))
		return nil, newServiceError(OpSelectDue, ErrInvalidLimit, nil)
	}

	items, err := s.items.ListDue(ctx, learnerID, s.now(), store.ClampDueLimit(limit))
	if err != nil {
		log.Error("failed to list due items",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, s.mapError(OpSelectDue, err)
	}

	log.Debug("selected due items",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", len(items)))
	return items, nil
}

// SubmitReview implements Service.SubmitReview.
func (s *serviceImpl) SubmitReview(
	ctx context.Context,
	learnerID uuid.UUID,
	outcome domain.ReviewOutcome,
) (*ReviewResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if learnerID == uuid.Nil {
		return nil, newServiceError(OpSubmitReview, ErrNotAuthenticated, nil)
	}
	if err := outcome.Validate(); err != nil {
		log.Warn("invalid review outcome",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", outcome.ItemID.String()))
		return nil, newServiceError(OpSubmitReview, ErrInvalidOutcome, err)
	}

	var result *ReviewResult
	err := retry.Do(
		func() error {
			var err error
			result, err = s.submitOnce(ctx, learnerID, outcome)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(submitAttempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(store.IsConflictError),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("review update conflicted",
				slog.Uint64("attempt", uint64(n+1)),
				slog.String("item_id", outcome.ItemID.String()),
				slog.String("error", err.Error()))
		}),
	)
	if err != nil {
		return nil, s.mapError(OpSubmitReview, err)
	}

	log.Info("review submitted",
		slog.String("learner_id", learnerID.String()),
		slog.String("item_id", result.Item.ID.String()),
		slog.Int("mastery_level_before", result.Event.MasteryLevelBefore),
		slog.Int("mastery_level_after", result.Event.MasteryLevelAfter),
		slog.Int("interval_days", result.IntervalDays))
	return result, nil
}

// submitOnce runs one read-compute-write attempt in a single transaction.
func (s *serviceImpl) submitOnce(
	ctx context.Context,
	learnerID uuid.UUID,
	outcome domain.ReviewOutcome,
) (*ReviewResult, error) {
	var result *ReviewResult

	err := s.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		items := s.items.WithTx(tx)
		events := s.events.WithTx(tx)

		item, err := items.GetForUpdate(ctx, outcome.ItemID, learnerID)
		if err != nil {
			return err
		}

		now := s.now()
		update, err := s.srsService.CalculateNextReview(item, outcome.Correct, now)
		if err != nil {
			return err
		}

		if err := items.UpdateSchedule(ctx, update.Item, item.ReviewCount); err != nil {
			return err
		}

		event, err := domain.NewReviewEvent(learnerID, outcome, update.LevelBefore, update.LevelAfter(), now)
		if err != nil {
			return err
		}
		if err := events.Append(ctx, event); err != nil {
			return err
		}

		result = &ReviewResult{
			Item:         update.Item,
			Event:        event,
			IntervalDays: update.IntervalDays,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// mapError converts a store or domain error into a ServiceError.
func (s *serviceImpl) mapError(op string, err error) error {
	switch {
	case store.IsNotFoundError(err):
		return newServiceError(op, ErrItemNotFound, err)
	case store.IsConflictError(err):
		return newServiceError(op, ErrConcurrentUpdateConflict, err)
	case errors.Is(err, domain.ErrValidation) && !errors.Is(err, store.ErrInvalidEntity):
		return newServiceError(op, ErrInvalidOutcome, err)
	default:
		return newServiceError(op, ErrStoreUnavailable, err)
	}
}
