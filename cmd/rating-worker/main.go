package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/storefront/internal/config"
	"github.com/Pesokrava/storefront/internal/delivery/events"
	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/database"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/repository/postgres"
	"github.com/Pesokrava/storefront/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env, logger.WithLevel(cfg.LogLevel), logger.WithService("rating-reconciler"))
	logger.SetGlobalLogger(appLogger)
	appLogger.Info("Starting rating reconciler...")

	if cfg.Storage != config.StoragePostgres {
		appLogger.Fatal("Rating reconciler requires PostgreSQL storage", nil)
	}

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to database")

	tx := postgres.NewTxRunner(db, postgres.TxOptionsFromConfig(cfg.Database.Tx))
	ratingWorker := worker.NewRatingWorker(worker.NewReconciler(tx, appLogger), appLogger)

	appLogger.Info("Connecting to NATS JetStream...")
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		appLogger.Fatal("Failed to create JetStream context", err)
	}

	appLogger.WithFields(map[string]any{
		"url": cfg.NATS.URL,
	}).Info("Connected to NATS JetStream")

	streams := events.NewStreamConfig(js, appLogger)
	if err := streams.EnsureStream(events.ReviewsStream); err != nil {
		appLogger.Fatal("Failed to ensure stream", err)
	}
	if err := streams.EnsureReconcilerConsumer(); err != nil {
		appLogger.Fatal("Failed to ensure consumer", err)
	}

	sub, err := js.PullSubscribe(domain.SubjectReviewEvents, events.ReconcilerConsumer, nats.ManualAck())
	if err != nil {
		appLogger.Fatal("Failed to subscribe to JetStream consumer", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			appLogger.Error("Failed to unsubscribe from JetStream", err)
		}
	}()

	appLogger.WithFields(map[string]any{
		"stream":   events.ReviewsStream.Name,
		"consumer": events.ReconcilerConsumer,
	}).Info("Subscribed to JetStream consumer")

	ctx, stop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		worker.NewPullLoop(sub, ratingWorker.HandleEvent, appLogger).Run(ctx)
		close(loopDone)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh
	appLogger.Info("Received shutdown signal")

	stop()
	<-loopDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ratingWorker.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Error during shutdown", err)
	}

	appLogger.Info("Rating reconciler stopped")
}
