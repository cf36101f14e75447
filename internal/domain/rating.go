package domain

import "math"

const (
	MinRating = 1
	MaxRating = 5
)

// RatingAggregate is the running review summary stored on a product
type RatingAggregate struct {
	Count   int     `json:"review_count" db:"review_count"`
	Average float64 `json:"average_rating" db:"average_rating"`
}

// Add folds one more rating into the aggregate without re-summing history.
func (a RatingAggregate) Add(rating int) RatingAggregate {
	count := a.Count + 1
	return RatingAggregate{
		Count:   count,
		Average: (a.Average*float64(a.Count) + float64(rating)) / float64(count),
	}
}

// Drifted reports whether two aggregates disagree beyond float tolerance
func (a RatingAggregate) Drifted(other RatingAggregate) bool {
	return a.Count != other.Count || math.Abs(a.Average-other.Average) > 1e-9
}

// ValidRating reports whether r is an allowed star rating
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
