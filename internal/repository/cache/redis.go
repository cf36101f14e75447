package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/metrics"
)

const categoryTreeKey = "catalog:categories:tree"

// TTLs groups the expiry of each cached view
type TTLs struct {
	Product      time.Duration
	ReviewsList  time.Duration
	CategoryTree time.Duration
}

// RedisCache implements caching for products, review pages and the category tree.
// Misses are reported as domain.ErrNotFound.
type RedisCache struct {
	client *redis.Client
	ttl    TTLs
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, ttl TTLs) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

type reviewPage struct {
	Reviews []*domain.Review `json:"reviews"`
	Total   int              `json:"total"`
}

func (c *RedisCache) productKey(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s", productID.String())
}

func (c *RedisCache) reviewsListKey(productID uuid.UUID, limit, offset int) string {
	return fmt.Sprintf("product:%s:reviews:limit:%d:offset:%d", productID.String(), limit, offset)
}

func (c *RedisCache) productCacheKeysSet(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:cache_keys", productID.String())
}

// getJSON loads key into dst, counting the lookup under name
func (c *RedisCache) getJSON(ctx context.Context, name, key string, dst interface{}) error {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheLookups.WithLabelValues(name, "miss").Inc()
			return domain.ErrNotFound
		}
		metrics.CacheLookups.WithLabelValues(name, "error").Inc()
		return err
	}

	if err := json.Unmarshal(val, dst); err != nil {
		metrics.CacheLookups.WithLabelValues(name, "error").Inc()
		return err
	}
	metrics.CacheLookups.WithLabelValues(name, "hit").Inc()
	return nil
}

// GetProduct retrieves a cached product
func (c *RedisCache) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	if err := c.getJSON(ctx, "product", c.productKey(productID), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// SetProduct stores a product in cache
func (c *RedisCache) SetProduct(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.productKey(product.ID), data, c.ttl.Product).Err()
}

// GetReviewsList retrieves a cached page of reviews and the product's review total
func (c *RedisCache) GetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.Review, int, error) {
	var p reviewPage
	if err := c.getJSON(ctx, "reviews", c.reviewsListKey(productID, limit, offset), &p); err != nil {
		return nil, 0, err
	}
	return p.Reviews, p.Total, nil
}

// SetReviewsList stores a review page in cache and tracks the key in a SET
func (c *RedisCache) SetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int, reviews []*domain.Review, total int) error {
	key := c.reviewsListKey(productID, limit, offset)
	trackingKey := c.productCacheKeysSet(productID)

	data, err := json.Marshal(reviewPage{Reviews: reviews, Total: total})
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.ttl.ReviewsList)
	pipe.SAdd(ctx, trackingKey, key)
	pipe.Expire(ctx, trackingKey, c.ttl.ReviewsList)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateAllProductCache drops the cached product and every cached review page for it
func (c *RedisCache) InvalidateAllProductCache(ctx context.Context, productID uuid.UUID) error {
	trackingKey := c.productCacheKeysSet(productID)

	keys, err := c.client.SMembers(ctx, trackingKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	keys = append(keys, c.productKey(productID), trackingKey)
	return c.client.Unlink(ctx, keys...).Err()
}

// GetCategoryTree retrieves the cached category forest
func (c *RedisCache) GetCategoryTree(ctx context.Context) ([]*domain.CategoryNode, error) {
	var forest []*domain.CategoryNode
	if err := c.getJSON(ctx, "category_tree", categoryTreeKey, &forest); err != nil {
		return nil, err
	}
	return forest, nil
}

// SetCategoryTree stores the category forest
func (c *RedisCache) SetCategoryTree(ctx context.Context, forest []*domain.CategoryNode) error {
	data, err := json.Marshal(forest)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, categoryTreeKey, data, c.ttl.CategoryTree).Err()
}

// InvalidateCategoryTree drops the cached category forest
func (c *RedisCache) InvalidateCategoryTree(ctx context.Context) error {
	return c.client.Del(ctx, categoryTreeKey).Err()
}
