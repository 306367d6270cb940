package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Tutor is the database row for a tutor. HourlyRate is stored in
// hundredths of a credit; Rating and TotalReviews are aggregates
// recomputed by the review service.
type Tutor struct {
	ID           uuid.UUID
	Name         string
	HourlyRate   int64
	Rating       float64
	TotalReviews int32
	CreatedAt    sql.NullTime
	UpdatedAt    sql.NullTime
}

const getTutor = `
SELECT id, name, hourly_rate, rating, total_reviews, created_at, updated_at
FROM tutors
WHERE id = $1
`

func (q *Queries) GetTutor(ctx context.Context, id uuid.UUID) (Tutor, error) {
	row := q.db.QueryRowContext(ctx, getTutor, id)
	var t Tutor
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.HourlyRate,
		&t.Rating,
		&t.TotalReviews,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

// UpdateTutorRatingParams are the inputs to the aggregate rating write.
type UpdateTutorRatingParams struct {
	ID           uuid.UUID
	Rating       float64
	TotalReviews int32
}

const updateTutorRating = `
UPDATE tutors
SET rating = $2, total_reviews = $3, updated_at = now()
WHERE id = $1
`

func (q *Queries) UpdateTutorRating(ctx context.Context, arg UpdateTutorRatingParams) error {
	_, err := q.db.ExecContext(ctx, updateTutorRating, arg.ID, arg.Rating, arg.TotalReviews)
	return err
}
