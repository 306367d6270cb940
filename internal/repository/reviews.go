package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// SessionReview is the database row for session feedback. A unique
// constraint on session_id keeps it one-to-one with its session.
type SessionReview struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	TutorID   uuid.UUID
	Rating    int32
	Comment   sql.NullString
	CreatedAt sql.NullTime
}

// CreateSessionReviewParams are the inputs for a new review row.
type CreateSessionReviewParams struct {
	SessionID uuid.UUID
	TutorID   uuid.UUID
	Rating    int32
	Comment   sql.NullString
}

const createSessionReview = `
INSERT INTO session_reviews (session_id, tutor_id, rating, comment)
VALUES ($1, $2, $3, $4)
RETURNING id, session_id, tutor_id, rating, comment, created_at
`

func (q *Queries) CreateSessionReview(ctx context.Context, arg CreateSessionReviewParams) (SessionReview, error) {
	row := q.db.QueryRowContext(ctx, createSessionReview,
		arg.SessionID,
		arg.TutorID,
		arg.Rating,
		arg.Comment,
	)
	var r SessionReview
	err := row.Scan(
		&r.ID,
		&r.SessionID,
		&r.TutorID,
		&r.Rating,
		&r.Comment,
		&r.CreatedAt,
	)
	return r, err
}

const listTutorRatings = `
SELECT rating
FROM session_reviews
WHERE tutor_id = $1
`

// ListTutorRatings returns every rating ever given to a tutor. The review
// service recomputes the aggregate from this full scan.
func (q *Queries) ListTutorRatings(ctx context.Context, tutorID uuid.UUID) ([]int32, error) {
	rows, err := q.db.QueryContext(ctx, listTutorRatings, tutorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []int32
	for rows.Next() {
		var rating int32
		if err := rows.Scan(&rating); err != nil {
			return nil, err
		}
		items = append(items, rating)
	}
	return items, rows.Err()
}
