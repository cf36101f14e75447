//go:build integration
// +build integration

package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/storefront/internal/config"
	"github.com/Pesokrava/storefront/internal/delivery/events"
	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/database"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/repository/postgres"
)

func TestRatingReconciler_RepairsDriftFromStream(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.New(cfg.Env)

	db, err := database.WaitForDB(cfg, 5, 2*time.Second)
	require.NoError(t, err)
	defer db.Close()

	_, err = database.RunMigrations(db, "../../migrations")
	require.NoError(t, err)

	nc, err := nats.Connect(cfg.NATS.URL)
	require.NoError(t, err)
	defer nc.Close()

	js, err := nc.JetStream()
	require.NoError(t, err)

	streams := events.NewStreamConfig(js, log)
	require.NoError(t, streams.EnsureStream(events.ReviewsStream))
	require.NoError(t, streams.EnsureReconcilerConsumer())

	sub, err := js.PullSubscribe(domain.SubjectReviewEvents, events.ReconcilerConsumer, nats.ManualAck())
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()

	runner := postgres.NewTxRunner(db, postgres.TxOptionsFromConfig(cfg.Database.Tx))
	products := postgres.NewProductRepository(db, runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	product := &domain.Product{Name: "Drifted kettle", Price: decimal.NewFromInt(10)}
	require.NoError(t, products.Create(ctx, product))
	defer func() {
		_ = products.DeleteWithReviews(context.Background(), product.ID)
	}()

	// Reviews written behind the aggregate's back leave the stored summary at zero.
	for _, rating := range []int{5, 4, 5, 3, 5} {
		_, err := db.ExecContext(ctx, `
			INSERT INTO reviews (id, product_id, user_id, author, rating, review_text, created_at)
			VALUES ($1, $2, 'u-1', 'Tester', $3, 'drift', now())
		`, uuid.New(), product.ID, rating)
		require.NoError(t, err)
	}

	ratingWorker := NewRatingWorker(NewReconciler(runner, log), log, WithDebounceWindow(100*time.Millisecond))
	go NewPullLoop(sub, ratingWorker.HandleEvent, log).Run(ctx)
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = ratingWorker.Shutdown(shutdownCtx)
	}()

	event, err := json.Marshal(domain.ReviewEvent{
		Type:      domain.EventReviewCreated,
		Timestamp: time.Now().UTC(),
		ProductID: product.ID,
	})
	require.NoError(t, err)
	_, err = js.Publish(domain.SubjectReviewEvents, event)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stored, err := products.GetByID(context.Background(), product.ID)
		return err == nil && stored.ReviewCount == 5
	}, 10*time.Second, 100*time.Millisecond)

	stored, err := products.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.4, stored.AverageRating, 1e-9)
}
