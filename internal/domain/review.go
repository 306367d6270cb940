package domain

import (
	"time"

	"github.com/google/uuid"
)

// Review rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// SessionReview is feedback on a completed tutoring session. At most one
// review exists per session (enforced by a unique constraint).
type SessionReview struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	TutorID   uuid.UUID
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// ValidRating reports whether a rating is within the 1-5 scale.
func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// AverageRating computes the arithmetic mean of all ratings for a tutor.
// Aggregates are recomputed from a full rescan of the tutor's reviews on
// every new review, never maintained incrementally.
func AverageRating(ratings []int32) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum int64
	for _, r := range ratings {
		sum += int64(r)
	}
	return float64(sum) / float64(len(ratings))
}
