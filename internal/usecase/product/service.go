package product

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/pkg/validator"
)

const publishTimeout = 5 * time.Second

// Cache is the subset of the Redis cache the product service uses
type Cache interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	SetProduct(ctx context.Context, product *domain.Product) error
	InvalidateAllProductCache(ctx context.Context, productID uuid.UUID) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Service handles product business logic
type Service struct {
	repo      domain.ProductRepository
	cache     Cache
	publisher EventPublisher
	logger    *logger.Logger
}

// NewService creates a new product service
func NewService(repo domain.ProductRepository, cache Cache, publisher EventPublisher, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    log,
	}
}

func validate(product *domain.Product) error {
	if err := validator.Struct(product); err != nil {
		return err
	}
	return product.ValidatePricing()
}

// Create creates a new product. The rating aggregate always starts empty.
func (s *Service) Create(ctx context.Context, product *domain.Product) error {
	if err := validate(product); err != nil {
		s.logger.Debugf("Product validation failed: %v", err)
		return err
	}

	product.ReviewCount = 0
	product.AverageRating = 0

	if err := s.repo.Create(ctx, product); err != nil {
		s.logger.Error("Failed to create product", err)
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("Product created successfully")

	return nil
}

// GetByID retrieves a product by ID, serving from cache when possible
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	cached, err := s.cache.GetProduct(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warnf("Failed to read cached product %s: %v", id, err)
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found: %s", id)
		} else {
			s.logger.Error("Failed to get product", err)
		}
		return nil, err
	}

	// A read that started before a concurrent write can land after that write's
	// invalidation. The entry is then stale for at most CACHE_TTL_PRODUCT.
	if err := s.cache.SetProduct(ctx, product); err != nil {
		s.logger.Warnf("Failed to cache product %s: %v", id, err)
	}

	return product, nil
}

// List retrieves a paginated, optionally filtered list of products
func (s *Service) List(ctx context.Context, filter domain.ProductFilter, limit, offset int) ([]*domain.Product, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list products", err)
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count products", err)
		return nil, 0, err
	}

	return products, total, nil
}

// Update updates an existing product. product.Version must carry the version
// the caller last read.
func (s *Service) Update(ctx context.Context, product *domain.Product) error {
	if err := validate(product); err != nil {
		s.logger.Debugf("Product validation failed: %v", err)
		return err
	}

	if err := s.repo.Update(ctx, product); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Debugf("Version conflict updating product %s", product.ID)
		} else {
			s.logger.Error("Failed to update product", err)
		}
		return err
	}

	if err := s.cache.InvalidateAllProductCache(ctx, product.ID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", product.ID, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
		"version":    product.Version,
	}).Info("Product updated successfully")

	return nil
}

// Delete soft-deletes a product together with its reviews
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteWithReviews(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to delete product", err)
		}
		return err
	}

	if err := s.cache.InvalidateAllProductCache(ctx, id); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", id, err)
	}

	s.publishDeleted(id)

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
	}).Info("Product deleted successfully")

	return nil
}

func (s *Service) publishDeleted(id uuid.UUID) {
	data, err := json.Marshal(domain.ReviewEvent{
		Type:      domain.EventProductDeleted,
		Timestamp: time.Now().UTC(),
		ProductID: id,
	})
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal delete event for product %s", id)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.publisher.Publish(ctx, domain.SubjectReviewEvents, data); err != nil {
			s.logger.Errorf(err, "Failed to publish delete event for product %s", id)
		}
	}()
}
