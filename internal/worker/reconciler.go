package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/pkg/metrics"
	"github.com/Pesokrava/storefront/internal/repository/postgres"
)

// Outcome of a reconciliation pass
const (
	OutcomeConsistent = "consistent"
	OutcomeRepaired   = "repaired"
	OutcomeSkipped    = "skipped"
)

// Reconciler checks a product's incrementally maintained rating aggregate
// against a full scan of its reviews and rewrites it when they disagree.
// It is a repair path only; review submission never scans.
type Reconciler struct {
	tx     *postgres.TxRunner
	logger *logger.Logger
}

// NewReconciler creates a new rating reconciler
func NewReconciler(tx *postgres.TxRunner, log *logger.Logger) *Reconciler {
	return &Reconciler{
		tx:     tx,
		logger: log,
	}
}

type scannedAggregate struct {
	Count   int             `db:"review_count"`
	Average sql.NullFloat64 `db:"average_rating"`
}

// Reconcile verifies one product under its row lock, so a concurrent
// submission cannot slip in between the read and the repair.
// A missing or deleted product is skipped.
func (r *Reconciler) Reconcile(ctx context.Context, productID uuid.UUID) (string, error) {
	var stored, actual domain.RatingAggregate
	var outcome string

	err := r.tx.Run(ctx, func(tx *sqlx.Tx) error {
		outcome = OutcomeConsistent

		err := tx.GetContext(ctx, &stored, `
			SELECT review_count, average_rating
			FROM products
			WHERE id = $1 AND deleted_at IS NULL
			FOR UPDATE
		`, productID)
		if errors.Is(err, sql.ErrNoRows) {
			outcome = OutcomeSkipped
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock product aggregate: %w", err)
		}

		var scan scannedAggregate
		err = tx.GetContext(ctx, &scan, `
			SELECT COUNT(*) AS review_count, AVG(rating)::float8 AS average_rating
			FROM reviews
			WHERE product_id = $1 AND deleted_at IS NULL
		`, productID)
		if err != nil {
			return fmt.Errorf("failed to scan reviews: %w", err)
		}
		actual = domain.RatingAggregate{Count: scan.Count, Average: scan.Average.Float64}

		if !stored.Drifted(actual) {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET review_count = $1, average_rating = $2
			WHERE id = $3
		`, actual.Count, actual.Average, productID)
		if err != nil {
			return fmt.Errorf("failed to repair product aggregate: %w", err)
		}
		outcome = OutcomeRepaired
		return nil
	})
	if err != nil {
		return "", err
	}

	switch outcome {
	case OutcomeRepaired:
		metrics.RatingDriftRepaired.Inc()
		r.logger.WithFields(map[string]any{
			"product_id":     productID.String(),
			"stored_count":   stored.Count,
			"stored_average": stored.Average,
			"actual_count":   actual.Count,
			"actual_average": actual.Average,
		}).Warn("Repaired drifted rating aggregate")
	case OutcomeSkipped:
		r.logger.WithFields(map[string]any{
			"product_id": productID.String(),
		}).Info("Product not found or deleted, skipping reconciliation")
	default:
		r.logger.WithFields(map[string]any{
			"product_id": productID.String(),
		}).Debug("Rating aggregate consistent")
	}

	return outcome, nil
}
