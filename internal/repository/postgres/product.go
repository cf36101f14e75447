package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Pesokrava/storefront/internal/domain"
)

const productColumns = `id, name, description, price, sale_price, category_id, images,
	review_count, average_rating, version, created_at, updated_at, deleted_at`

// ProductRepository implements domain.ProductRepository for PostgreSQL
type ProductRepository struct {
	db *sqlx.DB
	tx *TxRunner
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sqlx.DB, tx *TxRunner) *ProductRepository {
	return &ProductRepository{db: db, tx: tx}
}

// Create creates a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (name, description, price, sale_price, category_id, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, review_count, average_rating, version, created_at, updated_at
	`

	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.Images == nil {
		product.Images = pq.StringArray{}
	}

	err := r.db.QueryRowxContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.SalePrice,
		product.CategoryID,
		product.Images,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(
		&product.ID,
		&product.ReviewCount,
		&product.AverageRating,
		&product.Version,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return classifyError(err)
	}

	return nil
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE id = $1 AND deleted_at IS NULL
	`

	var product domain.Product
	err := r.db.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classifyError(err)
	}

	return &product, nil
}

// List retrieves a paginated list of products
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter, limit, offset int) ([]*domain.Product, error) {
	where, args := productWhere(filter)
	args = append(args, limit, offset)

	query := fmt.Sprintf(`SELECT %s
		FROM products
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, productColumns, where, len(args)-1, len(args))

	products := []*domain.Product{}
	err := r.db.SelectContext(ctx, &products, query, args...)
	if err != nil {
		return nil, classifyError(err)
	}

	return products, nil
}

// Update updates an existing product. Aggregate fields are never written here.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, sale_price = $4, category_id = $5,
			images = $6, updated_at = $7, version = version + 1
		WHERE id = $8 AND deleted_at IS NULL AND version = $9
		RETURNING version, updated_at, created_at, review_count, average_rating
	`

	product.UpdatedAt = time.Now().UTC()
	if product.Images == nil {
		product.Images = pq.StringArray{}
	}

	err := r.db.QueryRowxContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.SalePrice,
		product.CategoryID,
		product.Images,
		product.UpdatedAt,
		product.ID,
		product.Version,
	).Scan(&product.Version, &product.UpdatedAt, &product.CreatedAt, &product.ReviewCount, &product.AverageRating)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return classifyError(err)
	}

	// No row matched: either the product is gone or the version moved on
	var exists bool
	checkQuery := `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1 AND deleted_at IS NULL)`
	if err := r.db.GetContext(ctx, &exists, checkQuery, product.ID); err != nil {
		return classifyError(err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

// DeleteWithReviews soft-deletes a product together with its reviews
func (r *ProductRepository) DeleteWithReviews(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()

	return r.tx.Run(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE products SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
			now, id,
		)
		if err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return domain.ErrNotFound
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE reviews SET deleted_at = $1 WHERE product_id = $2 AND deleted_at IS NULL`,
			now, id,
		)
		if err != nil {
			return fmt.Errorf("failed to delete product reviews: %w", err)
		}

		return nil
	})
}

// Count returns the number of products matching the filter
func (r *ProductRepository) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	where, args := productWhere(filter)
	query := `SELECT COUNT(*) FROM products WHERE ` + where

	var count int
	err := r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		return 0, classifyError(err)
	}

	return count, nil
}

func productWhere(filter domain.ProductFilter) (string, []interface{}) {
	conds := []string{"deleted_at IS NULL"}
	var args []interface{}

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	return strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
