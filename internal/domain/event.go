package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event subjects
const (
	SubjectReviewEvents   = "reviews.events"
	SubjectCategoryEvents = "catalog.categories"
)

// Event types
const (
	EventReviewCreated   = "review.created"
	EventProductDeleted  = "product.deleted"
	EventCategoryCreated = "category.created"
	EventCategoryRenamed = "category.renamed"
	EventCategoryMoved   = "category.moved"
	EventCategoryDeleted = "category.deleted"
)

// ReviewEvent is published on SubjectReviewEvents
type ReviewEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	ProductID uuid.UUID `json:"product_id"`
	Review    *Review   `json:"review,omitempty"`
}

// CategoryEvent is published on SubjectCategoryEvents
type CategoryEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Category  *Category `json:"category"`
}
