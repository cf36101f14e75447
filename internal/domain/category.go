package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Category is a node of the category forest. ParentID is nil for roots.
type Category struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Slug      string     `json:"slug" db:"slug"`
	ParentID  *uuid.UUID `json:"parent_id" db:"parent_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// CategoryNode is a category with its nested subcategories
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
	// Orphaned marks a node promoted to root because its parent is missing
	Orphaned bool `json:"orphaned,omitempty"`
}

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	// Create inserts a new category. Returns ErrAlreadyExists on a slug clash
	// and ErrNotFound when the parent does not exist.
	Create(ctx context.Context, category *Category) error

	// GetByID retrieves a category by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Category, error)

	// GetBySlug retrieves a category by slug
	GetBySlug(ctx context.Context, slug string) (*Category, error)

	// ListAll returns every category ordered by name
	ListAll(ctx context.Context) ([]*Category, error)

	// Rename writes name and slug only and returns the stored row.
	// Returns ErrAlreadyExists when the slug belongs to another category.
	Rename(ctx context.Context, id uuid.UUID, name, slug string) (*Category, error)

	// Move writes the parent only and returns the stored row. A parent that is
	// the category itself or one of its descendants is a validation error.
	Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) (*Category, error)

	// DeleteLeaf deletes a category that has no children.
	// Returns ErrHasChildren without deleting anything otherwise.
	DeleteLeaf(ctx context.Context, id uuid.UUID) error
}
