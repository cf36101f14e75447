package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/storefront/internal/domain"
)

const reviewColumns = `id, product_id, user_id, author, rating, review_text, created_at, deleted_at`

// ReviewRepository implements domain.ReviewStore for PostgreSQL
type ReviewRepository struct {
	db *sqlx.DB
	tx *TxRunner
}

// NewReviewRepository creates a new PostgreSQL review repository
func NewReviewRepository(db *sqlx.DB, tx *TxRunner) *ReviewRepository {
	return &ReviewRepository{db: db, tx: tx}
}

// RunInTx runs fn in a retried transaction with access to the submission operations
func (r *ReviewRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx domain.ReviewTx) error) error {
	return r.tx.Run(ctx, func(tx *sqlx.Tx) error {
		return fn(ctx, &reviewTx{tx: tx})
	})
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + `
		FROM reviews
		WHERE id = $1 AND deleted_at IS NULL
	`

	var review domain.Review
	err := r.db.GetContext(ctx, &review, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classifyError(err)
	}

	return &review, nil
}

// GetByProductID retrieves reviews for a product with pagination
func (r *ReviewRepository) GetByProductID(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.Review, error) {
	query := `SELECT ` + reviewColumns + `
		FROM reviews
		WHERE product_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	reviews := []*domain.Review{}
	err := r.db.SelectContext(ctx, &reviews, query, productID, limit, offset)
	if err != nil {
		return nil, classifyError(err)
	}

	return reviews, nil
}

// CountByProductID returns the total number of reviews for a product
func (r *ReviewRepository) CountByProductID(ctx context.Context, productID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM reviews WHERE product_id = $1 AND deleted_at IS NULL`

	var count int
	err := r.db.GetContext(ctx, &count, query, productID)
	if err != nil {
		return 0, classifyError(err)
	}

	return count, nil
}

type reviewTx struct {
	tx *sqlx.Tx
}

func (t *reviewTx) LockRatingAggregate(ctx context.Context, productID uuid.UUID) (domain.RatingAggregate, error) {
	query := `
		SELECT review_count, average_rating
		FROM products
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`

	var agg domain.RatingAggregate
	err := t.tx.GetContext(ctx, &agg, query, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RatingAggregate{}, domain.ErrNotFound
		}
		return domain.RatingAggregate{}, fmt.Errorf("failed to lock product %s: %w", productID, err)
	}

	return agg, nil
}

func (t *reviewTx) InsertReview(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, user_id, author, rating, review_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		review.ID,
		review.ProductID,
		review.UserID,
		review.Author,
		review.Rating,
		review.Text,
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}

	return nil
}

func (t *reviewTx) SaveRatingAggregate(ctx context.Context, productID uuid.UUID, agg domain.RatingAggregate) error {
	query := `
		UPDATE products
		SET review_count = $1, average_rating = $2
		WHERE id = $3
	`

	result, err := t.tx.ExecContext(ctx, query, agg.Count, agg.Average, productID)
	if err != nil {
		return fmt.Errorf("failed to save rating aggregate: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
