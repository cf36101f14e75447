package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Pesokrava/storefront/internal/domain"
)

// ReviewRepository implements domain.ReviewStore in memory
type ReviewRepository struct {
	s *Store
}

// RunInTx holds the store lock for the whole of fn and applies its staged
// writes only when fn returns nil. fn must not call back into the store.
func (r *ReviewRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx domain.ReviewTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx := &reviewTx{s: r.s, aggregates: make(map[uuid.UUID]domain.RatingAggregate)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return tx.commit()
}

func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	review, ok := r.s.reviews[id]
	if !ok || review.DeletedAt != nil {
		return nil, domain.ErrNotFound
	}
	return copyReview(review), nil
}

func (r *ReviewRepository) GetByProductID(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := r.byProduct(productID)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	out := []*domain.Review{}
	for _, i := range page(len(matched), limit, offset) {
		out = append(out, copyReview(matched[i]))
	}
	return out, nil
}

func (r *ReviewRepository) CountByProductID(ctx context.Context, productID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return len(r.byProduct(productID)), nil
}

func (r *ReviewRepository) byProduct(productID uuid.UUID) []*domain.Review {
	var out []*domain.Review
	for _, review := range r.s.reviews {
		if review.ProductID == productID && review.DeletedAt == nil {
			out = append(out, review)
		}
	}
	return out
}

// reviewTx stages writes until commit. The caller holds the store lock.
type reviewTx struct {
	s          *Store
	inserts    []*domain.Review
	aggregates map[uuid.UUID]domain.RatingAggregate
}

func (t *reviewTx) LockRatingAggregate(ctx context.Context, productID uuid.UUID) (domain.RatingAggregate, error) {
	if agg, ok := t.aggregates[productID]; ok {
		return agg, nil
	}

	p, ok := t.s.products[productID]
	if !ok || p.DeletedAt != nil {
		return domain.RatingAggregate{}, domain.ErrNotFound
	}
	return domain.RatingAggregate{Count: p.ReviewCount, Average: p.AverageRating}, nil
}

func (t *reviewTx) InsertReview(ctx context.Context, review *domain.Review) error {
	if _, ok := t.s.reviews[review.ID]; ok {
		return domain.ErrAlreadyExists
	}
	for _, staged := range t.inserts {
		if staged.ID == review.ID {
			return domain.ErrAlreadyExists
		}
	}
	p, ok := t.s.products[review.ProductID]
	if !ok || p.DeletedAt != nil {
		return domain.ErrNotFound
	}

	t.inserts = append(t.inserts, copyReview(review))
	return nil
}

func (t *reviewTx) SaveRatingAggregate(ctx context.Context, productID uuid.UUID, agg domain.RatingAggregate) error {
	if _, ok := t.s.products[productID]; !ok {
		return domain.ErrNotFound
	}
	t.aggregates[productID] = agg
	return nil
}

func (t *reviewTx) commit() error {
	for _, review := range t.inserts {
		t.s.reviews[review.ID] = review
	}
	for productID, agg := range t.aggregates {
		p := t.s.products[productID]
		p.ReviewCount = agg.Count
		p.AverageRating = agg.Average
	}
	return nil
}
