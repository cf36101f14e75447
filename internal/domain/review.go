package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Review represents a product review. Reviews are immutable once created.
type Review struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ProductID uuid.UUID  `json:"product_id" db:"product_id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Author    string     `json:"author" db:"author"`
	Rating    int        `json:"rating" db:"rating"`
	Text      string     `json:"text" db:"review_text"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ReviewInput is the payload of a review submission
type ReviewInput struct {
	Author string `json:"author" validate:"required,min=1,max=100"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Text   string `json:"text" validate:"required,min=1,max=5000"`
	UserID string `json:"user_id" validate:"required,min=1,max=128"`
}

// ReviewRepository defines the read side of review data access
type ReviewRepository interface {
	// GetByID retrieves a review by ID (excludes soft-deleted)
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)

	// GetByProductID retrieves reviews for a product with pagination, newest first
	GetByProductID(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*Review, error)

	// CountByProductID returns the total number of reviews for a product
	CountByProductID(ctx context.Context, productID uuid.UUID) (int, error)
}

// ReviewTx is the set of operations available inside a review submission transaction
type ReviewTx interface {
	// LockRatingAggregate reads the product aggregate and holds it until commit.
	// Returns ErrNotFound when the product does not exist.
	LockRatingAggregate(ctx context.Context, productID uuid.UUID) (RatingAggregate, error)

	// InsertReview stores a new review
	InsertReview(ctx context.Context, review *Review) error

	// SaveRatingAggregate writes the aggregate back to the product
	SaveRatingAggregate(ctx context.Context, productID uuid.UUID, agg RatingAggregate) error
}

// ReviewStore combines review reads with the transactional write path.
// RunInTx commits fn's writes together or not at all, and may run fn more
// than once when the store reports a serialization conflict.
type ReviewStore interface {
	ReviewRepository
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx ReviewTx) error) error
}
