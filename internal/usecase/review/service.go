package review

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/pkg/metrics"
	"github.com/Pesokrava/storefront/internal/pkg/validator"
)

// publishTimeout bounds the background event publish after a commit
const publishTimeout = 5 * time.Second

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Cache is the subset of the Redis cache the review service uses
type Cache interface {
	GetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.Review, int, error)
	SetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int, reviews []*domain.Review, total int) error
	InvalidateAllProductCache(ctx context.Context, productID uuid.UUID) error
}

// Service aggregates reviews into their product's rating
type Service struct {
	store     domain.ReviewStore
	cache     Cache
	publisher EventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new review service
func NewService(
	store domain.ReviewStore,
	cache Cache,
	publisher EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates and stores a review and folds its rating into the
// product's aggregate in the same transaction.
//
// The aggregate is updated incrementally from the locked (count, average)
// pair, never by re-reading every review.
func (s *Service) Submit(ctx context.Context, productID uuid.UUID, input domain.ReviewInput) (*domain.Review, error) {
	review, err := s.submit(ctx, productID, input)
	metrics.ReviewsSubmitted.WithLabelValues(submitOutcome(err)).Inc()
	return review, err
}

func (s *Service) submit(ctx context.Context, productID uuid.UUID, input domain.ReviewInput) (*domain.Review, error) {
	if err := validator.Struct(input); err != nil {
		s.logger.Debugf("Review validation failed for product %s: %v", productID, err)
		return nil, err
	}

	var review *domain.Review
	var agg domain.RatingAggregate

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx domain.ReviewTx) error {
		current, err := tx.LockRatingAggregate(ctx, productID)
		if err != nil {
			return err
		}

		agg = current.Add(input.Rating)
		review = &domain.Review{
			ID:        uuid.New(),
			ProductID: productID,
			UserID:    input.UserID,
			Author:    input.Author,
			Rating:    input.Rating,
			Text:      input.Text,
			CreatedAt: s.now(),
		}

		if err := tx.InsertReview(ctx, review); err != nil {
			return err
		}
		return tx.SaveRatingAggregate(ctx, productID, agg)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Review submitted for missing product %s", productID)
		} else {
			s.logger.Error("Failed to submit review", err)
		}
		return nil, err
	}

	// Stale cache would show incorrect ratings and review lists
	if err := s.cache.InvalidateAllProductCache(ctx, productID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", productID, err)
	}

	s.publishEvent(domain.EventReviewCreated, review)

	s.logger.WithFields(map[string]interface{}{
		"review_id":      review.ID,
		"product_id":     productID,
		"rating":         review.Rating,
		"review_count":   agg.Count,
		"average_rating": agg.Average,
	}).Info("Review submitted")

	return review, nil
}

func submitOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	default:
		return metrics.Outcome(err)
	}
}

// GetByID retrieves a review by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	review, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Review not found: %s", id)
		} else {
			s.logger.Error("Failed to get review", err)
		}
		return nil, err
	}

	return review, nil
}

// ListByProduct retrieves a page of a product's reviews, newest first
func (s *Service) ListByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.Review, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	reviews, total, err := s.cache.GetReviewsList(ctx, productID, limit, offset)
	if err == nil {
		s.logger.Debugf("Cache hit for product %s reviews (limit=%d, offset=%d)", productID, limit, offset)
		return reviews, total, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warnf("Failed to read cached reviews for product %s: %v", productID, err)
	}

	reviews, err = s.store.GetByProductID(ctx, productID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to get reviews by product ID", err)
		return nil, 0, err
	}

	total, err = s.store.CountByProductID(ctx, productID)
	if err != nil {
		s.logger.Error("Failed to count reviews", err)
		return nil, 0, err
	}

	if err := s.cache.SetReviewsList(ctx, productID, limit, offset, reviews, total); err != nil {
		s.logger.Warnf("Failed to cache reviews for product %s (limit=%d, offset=%d): %v", productID, limit, offset, err)
	}

	return reviews, total, nil
}

// publishEvent publishes a review event without blocking the caller
func (s *Service) publishEvent(eventType string, review *domain.Review) {
	event := domain.ReviewEvent{
		Type:      eventType,
		Timestamp: s.now(),
		ProductID: review.ProductID,
		Review:    review,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for review %s", review.ID)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.publisher.Publish(ctx, domain.SubjectReviewEvents, data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for review %s", review.ID)
		}
	}()
}
