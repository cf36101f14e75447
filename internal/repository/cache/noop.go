package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/Pesokrava/storefront/internal/domain"
)

// Noop satisfies the cache interfaces when Redis is disabled. Every read misses.
type Noop struct{}

func (Noop) GetProduct(context.Context, uuid.UUID) (*domain.Product, error) {
	return nil, domain.ErrNotFound
}

func (Noop) SetProduct(context.Context, *domain.Product) error { return nil }

func (Noop) GetReviewsList(context.Context, uuid.UUID, int, int) ([]*domain.Review, int, error) {
	return nil, 0, domain.ErrNotFound
}

func (Noop) SetReviewsList(context.Context, uuid.UUID, int, int, []*domain.Review, int) error {
	return nil
}

func (Noop) InvalidateAllProductCache(context.Context, uuid.UUID) error { return nil }

func (Noop) GetCategoryTree(context.Context) ([]*domain.CategoryNode, error) {
	return nil, domain.ErrNotFound
}

func (Noop) SetCategoryTree(context.Context, []*domain.CategoryNode) error { return nil }

func (Noop) InvalidateCategoryTree(context.Context) error { return nil }
