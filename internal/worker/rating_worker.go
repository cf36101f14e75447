package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

const (
	// Debounce window - collect events for same product within this duration
	defaultDebounceWindow = 1 * time.Second

	// Retry configuration
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond

	attemptTimeout = 5 * time.Second
)

// AggregateReconciler verifies and repairs one product's rating aggregate
type AggregateReconciler interface {
	Reconcile(ctx context.Context, productID uuid.UUID) (string, error)
}

// Option customizes a RatingWorker
type Option func(*RatingWorker)

// WithDebounceWindow overrides how long events for one product are collapsed
func WithDebounceWindow(d time.Duration) Option {
	return func(w *RatingWorker) { w.debounce = d }
}

// RatingWorker consumes review events and schedules a debounced
// reconciliation of the affected product's rating aggregate
type RatingWorker struct {
	reconciler AggregateReconciler
	logger     *logger.Logger
	debounce   time.Duration

	// Debouncing state
	mu             sync.Mutex
	pendingUpdates map[uuid.UUID]*pendingUpdate
	shutdownCh     chan struct{}
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
}

type pendingUpdate struct {
	timestamp time.Time
	timer     *time.Timer
}

// NewRatingWorker creates a new rating worker
func NewRatingWorker(reconciler AggregateReconciler, log *logger.Logger, opts ...Option) *RatingWorker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &RatingWorker{
		reconciler:     reconciler,
		logger:         log,
		debounce:       defaultDebounceWindow,
		pendingUpdates: make(map[uuid.UUID]*pendingUpdate),
		shutdownCh:     make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleEvent processes a review event
func (w *RatingWorker) HandleEvent(data []byte) error {
	var event domain.ReviewEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.Error("Failed to unmarshal review event", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.ProductID == uuid.Nil {
		return fmt.Errorf("event %q has no product_id", event.Type)
	}

	fields := map[string]any{
		"type":       event.Type,
		"product_id": event.ProductID.String(),
		"timestamp":  event.Timestamp,
	}

	// Deleted products have nothing left to reconcile
	if event.Type == domain.EventProductDeleted {
		w.logger.WithFields(fields).Debug("Ignoring product deletion event")
		return nil
	}

	w.logger.WithFields(fields).Info("Received review event")

	w.scheduleUpdate(event.ProductID, event.Timestamp)

	return nil
}

// scheduleUpdate implements debouncing logic
// Multiple events for same product within debounce window result in a single reconciliation
func (w *RatingWorker) scheduleUpdate(productID uuid.UUID, timestamp time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.shutdownCh:
		w.logger.Info("Worker shutting down, ignoring new event")
		return
	default:
	}

	existing, found := w.pendingUpdates[productID]

	if found {
		// Ignore stale events
		if timestamp.Before(existing.timestamp) {
			w.logger.WithFields(map[string]any{
				"product_id":  productID.String(),
				"existing_ts": existing.timestamp,
				"event_ts":    timestamp,
			}).Debug("Ignoring stale event")
			return
		}

		// A timer that already fired owns its wg slot; count a new one
		if !existing.timer.Stop() {
			w.wg.Add(1)
		}
		w.logger.WithFields(map[string]any{
			"product_id": productID.String(),
		}).Debug("Debouncing: resetting timer for product")
	} else {
		w.wg.Add(1)
	}

	entry := &pendingUpdate{timestamp: timestamp}
	entry.timer = time.AfterFunc(w.debounce, func() {
		w.processUpdate(productID, entry)
	})
	w.pendingUpdates[productID] = entry
}

// processUpdate reconciles the product with retry logic
func (w *RatingWorker) processUpdate(productID uuid.UUID, entry *pendingUpdate) {
	defer w.wg.Done()

	w.mu.Lock()
	if w.pendingUpdates[productID] == entry {
		delete(w.pendingUpdates, productID)
	}
	w.mu.Unlock()

	w.logger.WithFields(map[string]any{
		"product_id": productID.String(),
	}).Info("Processing rating reconciliation")

	// Retry loop with exponential backoff
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithFields(map[string]any{
				"product_id": productID.String(),
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying rating reconciliation")

			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				w.logger.Info("Worker context cancelled, aborting retry")
				return
			}

			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(w.ctx, attemptTimeout)
		_, err := w.reconciler.Reconcile(ctx, productID)
		cancel()

		if err == nil {
			return
		}

		lastErr = err
		w.logger.WithFields(map[string]any{
			"product_id": productID.String(),
			"attempt":    attempt + 1,
		}).Error("Failed to reconcile rating", err)
	}

	w.logger.WithFields(map[string]any{
		"product_id":  productID.String(),
		"max_retries": maxRetries,
	}).Error("Rating reconciliation failed after all retries", lastErr)
}

// Shutdown gracefully shuts down the worker
// Cancels pending timers and waits for in-flight reconciliations to complete
func (w *RatingWorker) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down rating worker...")

	w.mu.Lock()
	close(w.shutdownCh)
	pendingCount := 0
	for _, update := range w.pendingUpdates {
		// Timers that already fired release their own wg slot
		if update.timer.Stop() {
			w.wg.Done()
			pendingCount++
		}
	}
	w.pendingUpdates = make(map[uuid.UUID]*pendingUpdate)
	w.mu.Unlock()

	w.logger.WithFields(map[string]any{
		"cancelled_updates": pendingCount,
	}).Info("Cancelled pending updates")

	// Wait for in-flight work, then stop retries if the deadline hits first
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.cancel()
		w.logger.Info("All in-flight reconciliations completed")
		return nil
	case <-ctx.Done():
		w.cancel()
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}

// GetPendingCount returns the number of pending updates (used for monitoring/testing)
func (w *RatingWorker) GetPendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pendingUpdates)
}
