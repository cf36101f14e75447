package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/storefront/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, TTLs{Product: time.Minute, ReviewsList: time.Minute, CategoryTree: time.Minute}), mr
}

func TestRedisCache_Product_RoundTripAndInvalidate(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := c.GetProduct(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	product := &domain.Product{ID: uuid.New(), Name: "Kettle", Price: decimal.RequireFromString("19.99"), ReviewCount: 2, AverageRating: 4.5}
	require.NoError(t, c.SetProduct(ctx, product))

	got, err := c.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kettle", got.Name)
	assert.True(t, product.Price.Equal(got.Price))
	assert.Equal(t, 4.5, got.AverageRating)

	require.NoError(t, c.InvalidateAllProductCache(ctx, product.ID))
	assert.False(t, mr.Exists("product:"+product.ID.String()))
}

func TestRedisCache_ReviewPages_TrackedForInvalidation(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	productID := uuid.New()

	reviews := []*domain.Review{{ID: uuid.New(), ProductID: productID, Rating: 5, Text: "great"}}
	require.NoError(t, c.SetReviewsList(ctx, productID, 20, 0, reviews, 7))
	require.NoError(t, c.SetReviewsList(ctx, productID, 20, 20, nil, 7))

	members, err := mr.SMembers("product:" + productID.String() + ":cache_keys")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	got, total, err := c.GetReviewsList(ctx, productID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, got, 1)
	assert.Equal(t, "great", got[0].Text)

	require.NoError(t, c.InvalidateAllProductCache(ctx, productID))

	_, _, err = c.GetReviewsList(ctx, productID, 20, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = c.GetReviewsList(ctx, productID, 20, 20)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisCache_CategoryTree(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	_, err := c.GetCategoryTree(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	forest := []*domain.CategoryNode{{
		Category: domain.Category{ID: uuid.New(), Name: "Garden", Slug: "garden"},
		Children: []*domain.CategoryNode{},
	}}
	require.NoError(t, c.SetCategoryTree(ctx, forest))

	got, err := c.GetCategoryTree(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "garden", got[0].Slug)

	require.NoError(t, c.InvalidateCategoryTree(ctx))
	_, err = c.GetCategoryTree(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisCache_UnreachableServer(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.GetProduct(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
