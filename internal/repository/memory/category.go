package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/storefront/internal/domain"
)

// CategoryRepository implements domain.CategoryRepository on top of a domain.Hierarchy
type CategoryRepository struct {
	s *Store
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.slugs[category.Slug]; taken {
		return domain.ErrAlreadyExists
	}
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	if err := r.s.categories.Add(*category); err != nil {
		return err
	}
	r.s.slugs[category.Slug] = category.ID
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.categories.Get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.slugs[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c, _ := r.s.categories.Get(id)
	return &c, nil
}

func (r *CategoryRepository) ListAll(ctx context.Context) ([]*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all := r.s.categories.Categories()
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	return all, nil
}

func (r *CategoryRepository) Rename(ctx context.Context, id uuid.UUID, name, slug string) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.categories.Get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if owner, taken := r.s.slugs[slug]; taken && owner != id {
		return nil, domain.ErrAlreadyExists
	}

	if err := r.s.categories.Rename(id, name, slug); err != nil {
		return nil, err
	}
	delete(r.s.slugs, stored.Slug)
	r.s.slugs[slug] = id

	return r.touch(id), nil
}

func (r *CategoryRepository) Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.categories.Move(id, parentID); err != nil {
		return nil, err
	}

	return r.touch(id), nil
}

// touch stamps the update time and returns a copy of the stored record. Callers hold the lock.
func (r *CategoryRepository) touch(id uuid.UUID) *domain.Category {
	r.s.categories.Touch(id, time.Now().UTC())
	c, _ := r.s.categories.Get(id)
	return &c
}

func (r *CategoryRepository) DeleteLeaf(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.categories.Get(id)
	if !ok {
		return domain.ErrNotFound
	}
	if err := r.s.categories.Remove(id); err != nil {
		return err
	}
	delete(r.s.slugs, stored.Slug)
	return nil
}
