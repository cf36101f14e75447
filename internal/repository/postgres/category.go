package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Pesokrava/storefront/internal/domain"
)

const categoryColumns = `id, name, slug, parent_id, created_at, updated_at`

// categoryTreeLockKey serializes re-parenting so two concurrent moves cannot close a cycle
const categoryTreeLockKey = 0x63617467

// CategoryRepository implements domain.CategoryRepository for PostgreSQL
type CategoryRepository struct {
	db *sqlx.DB
	tx *TxRunner
}

// NewCategoryRepository creates a new PostgreSQL category repository
func NewCategoryRepository(db *sqlx.DB, tx *TxRunner) *CategoryRepository {
	return &CategoryRepository{db: db, tx: tx}
}

// Create inserts a category. The parent foreign key and the slug unique index
// surface as ErrNotFound and ErrAlreadyExists.
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	_, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		category.Slug,
		category.ParentID,
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		return classifyError(err)
	}

	return nil
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return r.getOne(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
}

// GetBySlug retrieves a category by slug
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return r.getOne(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug)
}

func (r *CategoryRepository) getOne(ctx context.Context, query string, arg interface{}) (*domain.Category, error) {
	var category domain.Category
	err := r.db.GetContext(ctx, &category, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classifyError(err)
	}
	return &category, nil
}

// ListAll returns every category ordered by name
func (r *CategoryRepository) ListAll(ctx context.Context) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY name, id`

	categories := []*domain.Category{}
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, classifyError(err)
	}

	return categories, nil
}

// Rename writes name and slug. parent_id is never part of the statement, so a
// concurrent Move is preserved.
func (r *CategoryRepository) Rename(ctx context.Context, id uuid.UUID, name, slug string) (*domain.Category, error) {
	query := `
		UPDATE categories
		SET name = $1, slug = $2, updated_at = $3
		WHERE id = $4
		RETURNING ` + categoryColumns

	var category domain.Category
	err := r.db.GetContext(ctx, &category, query, name, slug, time.Now().UTC(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classifyError(err)
	}

	return &category, nil
}

// Move writes parent_id under the tree lock. A parent that is the category
// itself or one of its descendants is rejected with a validation error.
func (r *CategoryRepository) Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) (*domain.Category, error) {
	var category domain.Category

	err := r.tx.Run(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, categoryTreeLockKey); err != nil {
			return fmt.Errorf("failed to lock category tree: %w", err)
		}

		if parentID != nil {
			cyclic, err := r.isAncestorOrSelf(ctx, tx, id, *parentID)
			if err != nil {
				return err
			}
			if cyclic {
				return domain.NewValidationError("parent_id", "must not be the category itself or one of its descendants")
			}
		}

		query := `
			UPDATE categories
			SET parent_id = $1, updated_at = $2
			WHERE id = $3
			RETURNING ` + categoryColumns
		err := tx.GetContext(ctx, &category, query, parentID, time.Now().UTC(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to move category: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &category, nil
}

// isAncestorOrSelf reports whether id appears on the ancestor chain starting at parentID
func (r *CategoryRepository) isAncestorOrSelf(ctx context.Context, tx *sqlx.Tx, id, parentID uuid.UUID) (bool, error) {
	query := `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_id FROM categories WHERE id = $1
			UNION ALL
			SELECT c.id, c.parent_id FROM categories c JOIN ancestors a ON c.id = a.parent_id
		)
		SELECT EXISTS(SELECT 1 FROM ancestors WHERE id = $2)
	`

	var found bool
	if err := tx.GetContext(ctx, &found, query, parentID, id); err != nil {
		return false, fmt.Errorf("failed to walk category ancestors: %w", err)
	}
	return found, nil
}

// DeleteLeaf deletes a category without subcategories. The row lock makes a
// concurrent child insert wait on the parent key, so it either sees the
// deletion and fails its foreign key check or commits first and blocks the delete.
func (r *CategoryRepository) DeleteLeaf(ctx context.Context, id uuid.UUID) error {
	return r.tx.Run(ctx, func(tx *sqlx.Tx) error {
		var locked uuid.UUID
		err := tx.GetContext(ctx, &locked, `SELECT id FROM categories WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to lock category: %w", err)
		}

		var hasChildren bool
		err = tx.GetContext(ctx, &hasChildren, `SELECT EXISTS(SELECT 1 FROM categories WHERE parent_id = $1)`, id)
		if err != nil {
			return fmt.Errorf("failed to check subcategories: %w", err)
		}
		if hasChildren {
			return domain.ErrHasChildren
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation {
				return domain.ErrHasChildren
			}
			return fmt.Errorf("failed to delete category: %w", err)
		}

		return nil
	})
}
