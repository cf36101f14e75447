package category

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/pkg/metrics"
	"github.com/Pesokrava/storefront/internal/pkg/slug"
)

const (
	publishTimeout   = 5 * time.Second
	treeBuildTimeout = 10 * time.Second
	maxNameLength    = 100
	treeFlightKey    = "tree"
)

// Cache is the subset of the Redis cache the category service uses
type Cache interface {
	GetCategoryTree(ctx context.Context) ([]*domain.CategoryNode, error)
	SetCategoryTree(ctx context.Context, forest []*domain.CategoryNode) error
	InvalidateCategoryTree(ctx context.Context) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Service maintains the category forest
type Service struct {
	repo      domain.CategoryRepository
	cache     Cache
	publisher EventPublisher
	logger    *logger.Logger
	flight    singleflight.Group
	// treeGen counts committed mutations; tree builds compare it before caching
	treeGen atomic.Uint64
}

// NewService creates a new category service
func NewService(repo domain.CategoryRepository, cache Cache, publisher EventPublisher, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    log,
	}
}

// deriveSlug validates a display name and returns its slug
func deriveSlug(name string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", domain.NewValidationError("name", "is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", "", domain.NewValidationError("name", "must be at most 100 characters")
	}
	s := slug.Generate(name)
	if s == "" {
		return "", "", domain.NewValidationError("name", "must contain at least one latin letter or digit")
	}
	return name, s, nil
}

// Create adds a category under parentID, or as a root when parentID is nil
func (s *Service) Create(ctx context.Context, name string, parentID *uuid.UUID) (*domain.Category, error) {
	category, err := s.create(ctx, name, parentID)
	metrics.CategoryMutations.WithLabelValues("create", metrics.Outcome(err)).Inc()
	return category, err
}

func (s *Service) create(ctx context.Context, name string, parentID *uuid.UUID) (*domain.Category, error) {
	name, categorySlug, err := deriveSlug(name)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		if _, err := s.repo.GetByID(ctx, *parentID); err != nil {
			s.logger.Debugf("Parent category %s not found: %v", *parentID, err)
			return nil, err
		}
	}

	category := &domain.Category{
		Name:     name,
		Slug:     categorySlug,
		ParentID: parentID,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to create category", err)
		}
		return nil, err
	}

	s.changed(ctx, domain.EventCategoryCreated, category)

	s.logger.WithFields(map[string]interface{}{
		"category_id": category.ID,
		"slug":        category.Slug,
	}).Info("Category created")

	return category, nil
}

// Rename changes a category's name and slug. Its parent is left alone.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string) (*domain.Category, error) {
	category, err := s.rename(ctx, id, name)
	metrics.CategoryMutations.WithLabelValues("rename", metrics.Outcome(err)).Inc()
	return category, err
}

func (s *Service) rename(ctx context.Context, id uuid.UUID, name string) (*domain.Category, error) {
	name, categorySlug, err := deriveSlug(name)
	if err != nil {
		return nil, err
	}

	category, err := s.repo.Rename(ctx, id, name, categorySlug)
	if err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to rename category", err)
		}
		return nil, err
	}

	s.changed(ctx, domain.EventCategoryRenamed, category)
	return category, nil
}

// Move re-parents a category. A nil parentID makes it a root.
// The new parent may be neither the category itself nor one of its descendants.
func (s *Service) Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) (*domain.Category, error) {
	category, err := s.move(ctx, id, parentID)
	metrics.CategoryMutations.WithLabelValues("move", metrics.Outcome(err)).Inc()
	return category, err
}

func (s *Service) move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) (*domain.Category, error) {
	if parentID != nil && *parentID == id {
		return nil, domain.NewValidationError("parent_id", "must not be the category itself")
	}

	if parentID != nil {
		if _, err := s.repo.GetByID(ctx, *parentID); err != nil {
			return nil, err
		}
	}

	category, err := s.repo.Move(ctx, id, parentID)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidInput) && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to move category", err)
		}
		return nil, err
	}

	s.changed(ctx, domain.EventCategoryMoved, category)
	return category, nil
}

// Delete removes a category that has no subcategories. Products that point
// at it keep their reference.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.delete(ctx, id)
	metrics.CategoryMutations.WithLabelValues("delete", metrics.Outcome(err)).Inc()
	return err
}

func (s *Service) delete(ctx context.Context, id uuid.UUID) error {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteLeaf(ctx, id); err != nil {
		if errors.Is(err, domain.ErrHasChildren) {
			s.logger.Debugf("Refusing to delete category %s with subcategories", id)
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to delete category", err)
		}
		return err
	}

	s.changed(ctx, domain.EventCategoryDeleted, category)
	return nil
}

// GetByID retrieves a category by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBySlug retrieves a category by slug
func (s *Service) GetBySlug(ctx context.Context, categorySlug string) (*domain.Category, error) {
	return s.repo.GetBySlug(ctx, categorySlug)
}

// Tree returns the whole category forest, roots and siblings ordered by name.
// Concurrent cache misses share one store read.
func (s *Service) Tree(ctx context.Context) ([]*domain.CategoryNode, error) {
	forest, err := s.cache.GetCategoryTree(ctx)
	if err == nil {
		return forest, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warnf("Failed to read cached category tree: %v", err)
	}

	// Callers that arrive after a mutation start a fresh build under the next generation.
	gen := s.treeGen.Load()
	v, err, _ := s.flight.Do(treeFlightKey+":"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), treeBuildTimeout)
		defer cancel()
		return s.buildTree(buildCtx, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.CategoryNode), nil
}

// buildTree caches the forest only if no mutation landed since gen was read,
// so a slow build cannot overwrite a newer invalidation.
func (s *Service) buildTree(ctx context.Context, gen uint64) ([]*domain.CategoryNode, error) {
	flat, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list categories", err)
		return nil, err
	}

	forest := domain.BuildHierarchy(flat).Forest()
	for _, root := range forest {
		if root.Orphaned {
			s.logger.WithFields(map[string]interface{}{
				"category_id": root.ID,
				"parent_id":   root.ParentID,
			}).Warn("Category promoted to root because its parent is missing")
		}
	}

	if s.treeGen.Load() != gen {
		s.logger.Debug("Category tree changed during build, not caching")
		return forest, nil
	}
	if err := s.cache.SetCategoryTree(ctx, forest); err != nil {
		s.logger.Warnf("Failed to cache category tree: %v", err)
	}
	return forest, nil
}

// changed runs the post-commit side effects of a category mutation
func (s *Service) changed(ctx context.Context, eventType string, category *domain.Category) {
	s.treeGen.Add(1)
	if err := s.cache.InvalidateCategoryTree(ctx); err != nil {
		s.logger.Warnf("Failed to invalidate category tree: %v", err)
	}

	snapshot := *category
	data, err := json.Marshal(domain.CategoryEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Category:  &snapshot,
	})
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal %s event", eventType)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.publisher.Publish(ctx, domain.SubjectCategoryEvents, data); err != nil {
			s.logger.Errorf(err, "Failed to publish %s event", eventType)
		}
	}()
}
