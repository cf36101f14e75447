// Package memory provides process-local repositories with the same
// semantics as the PostgreSQL ones. A single mutex plays the role of the
// row locks, so transactions run one at a time.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Pesokrava/storefront/internal/domain"
)

// Store holds all catalog state
type Store struct {
	mu         sync.Mutex
	products   map[uuid.UUID]*domain.Product
	reviews    map[uuid.UUID]*domain.Review
	categories *domain.Hierarchy
	slugs      map[string]uuid.UUID
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		products:   make(map[uuid.UUID]*domain.Product),
		reviews:    make(map[uuid.UUID]*domain.Review),
		categories: domain.NewHierarchy(),
		slugs:      make(map[string]uuid.UUID),
	}
}

// Products returns the product repository view of the store
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{s: s}
}

// Reviews returns the review repository view of the store
func (s *Store) Reviews() *ReviewRepository {
	return &ReviewRepository{s: s}
}

// Categories returns the category repository view of the store
func (s *Store) Categories() *CategoryRepository {
	return &CategoryRepository{s: s}
}

func copyProduct(p *domain.Product) *domain.Product {
	c := *p
	c.Images = append(pq.StringArray{}, p.Images...)
	return &c
}

func copyReview(r *domain.Review) *domain.Review {
	c := *r
	return &c
}

// ProductRepository implements domain.ProductRepository in memory
type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if _, ok := r.s.products[product.ID]; ok {
		return domain.ErrAlreadyExists
	}

	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.Version = 1
	product.ReviewCount = 0
	product.AverageRating = 0
	if product.Images == nil {
		product.Images = pq.StringArray{}
	}

	r.s.products[product.ID] = copyProduct(product)
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok || p.DeletedAt != nil {
		return nil, domain.ErrNotFound
	}
	return copyProduct(p), nil
}

func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter, limit, offset int) ([]*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := r.match(filter)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	out := []*domain.Product{}
	for _, p := range page(len(matched), limit, offset) {
		out = append(out, copyProduct(matched[p]))
	}
	return out, nil
}

func (r *ProductRepository) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return len(r.match(filter)), nil
}

func (r *ProductRepository) match(filter domain.ProductFilter) []*domain.Product {
	q := strings.ToLower(strings.TrimSpace(filter.Query))

	var out []*domain.Product
	for _, p := range r.s.products {
		if p.DeletedAt != nil {
			continue
		}
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.products[product.ID]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrNotFound
	}
	if stored.Version != product.Version {
		return domain.ErrConflict
	}

	if product.Images == nil {
		product.Images = pq.StringArray{}
	}
	product.Version = stored.Version + 1
	product.UpdatedAt = time.Now().UTC()
	product.CreatedAt = stored.CreatedAt
	product.ReviewCount = stored.ReviewCount
	product.AverageRating = stored.AverageRating
	product.DeletedAt = nil

	r.s.products[product.ID] = copyProduct(product)
	return nil
}

func (r *ProductRepository) DeleteWithReviews(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok || p.DeletedAt != nil {
		return domain.ErrNotFound
	}

	now := time.Now().UTC()
	p.DeletedAt = &now
	for _, review := range r.s.reviews {
		if review.ProductID == id && review.DeletedAt == nil {
			deletedAt := now
			review.DeletedAt = &deletedAt
		}
	}
	return nil
}

// page returns the indexes of a limit/offset window over n items
func page(n, limit, offset int) []int {
	if offset < 0 {
		offset = 0
	}
	if offset >= n || limit <= 0 {
		return nil
	}
	end := offset + limit
	if end > n {
		end = n
	}
	idx := make([]int, 0, end-offset)
	for i := offset; i < end; i++ {
		idx = append(idx, i)
	}
	return idx
}
