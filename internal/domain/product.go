package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product represents a catalog product.
// ReviewCount and AverageRating are maintained by review submission only.
type Product struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	Name          string           `json:"name" db:"name" validate:"required,min=1,max=255"`
	Description   *string          `json:"description,omitempty" db:"description"`
	Price         decimal.Decimal  `json:"price" db:"price"`
	SalePrice     *decimal.Decimal `json:"sale_price,omitempty" db:"sale_price"`
	CategoryID    *uuid.UUID       `json:"category_id,omitempty" db:"category_id"`
	Images        pq.StringArray   `json:"images" db:"images" validate:"max=20,dive,url"`
	ReviewCount   int              `json:"review_count" db:"review_count"`
	AverageRating float64          `json:"average_rating" db:"average_rating"`
	Version       int              `json:"version" db:"version"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time       `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ValidatePricing checks the price fields that struct tags cannot express
func (p *Product) ValidatePricing() error {
	if p.Price.IsNegative() {
		return NewValidationError("price", "must not be negative")
	}
	if p.SalePrice != nil {
		if p.SalePrice.IsNegative() {
			return NewValidationError("sale_price", "must not be negative")
		}
		if !p.SalePrice.LessThan(p.Price) {
			return NewValidationError("sale_price", "must be lower than price")
		}
	}
	return nil
}

// ProductFilter narrows a product listing
type ProductFilter struct {
	CategoryID *uuid.UUID
	// Query is matched as a case-insensitive substring of the product name
	Query string
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	// Create creates a new product
	Create(ctx context.Context, product *Product) error

	// GetByID retrieves a product by ID (excludes soft-deleted)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// List retrieves a paginated list of products (excludes soft-deleted)
	List(ctx context.Context, filter ProductFilter, limit, offset int) ([]*Product, error)

	// Update updates the editable fields of an existing product.
	// Returns ErrConflict when the version does not match.
	Update(ctx context.Context, product *Product) error

	// DeleteWithReviews soft-deletes a product and all of its reviews atomically
	DeleteWithReviews(ctx context.Context, id uuid.UUID) error

	// Count returns the number of products matching the filter (excludes soft-deleted)
	Count(ctx context.Context, filter ProductFilter) (int, error)
}
