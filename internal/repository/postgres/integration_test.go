//go:build integration
// +build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/storefront/internal/config"
	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/database"
)

func TestReviewRepository_ConcurrentSubmissionsLoseNothing(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.WaitForDB(cfg, 5, 2*time.Second)
	require.NoError(t, err)
	defer db.Close()

	_, err = database.RunMigrations(db, "../../../migrations")
	require.NoError(t, err)

	runner := NewTxRunner(db, TxOptionsFromConfig(cfg.Database.Tx))
	products := NewProductRepository(db, runner)
	reviews := NewReviewRepository(db, runner)

	ctx := context.Background()
	product := &domain.Product{Name: "Concurrent submissions", Price: decimal.NewFromInt(1)}
	require.NoError(t, products.Create(ctx, product))
	defer func() {
		_ = products.DeleteWithReviews(ctx, product.ID)
	}()

	const writers = 40
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	sum := 0
	for i := 0; i < writers; i++ {
		rating := i%5 + 1
		sum += rating
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			errs <- submit(reviews, &domain.Review{
				ID:        uuid.New(),
				ProductID: product.ID,
				UserID:    "load",
				Author:    "Load",
				Rating:    rating,
				Text:      "concurrent",
				CreatedAt: time.Now().UTC(),
			})
		}(rating)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := products.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, writers, stored.ReviewCount)
	assert.InDelta(t, float64(sum)/writers, stored.AverageRating, 1e-9)
}
