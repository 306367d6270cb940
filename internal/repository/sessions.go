package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TutoringSession is the database row for a booking. Price is in
// hundredths of a credit, locked at request time.
type TutoringSession struct {
	ID        uuid.UUID
	StudentID uuid.UUID
	TutorID   uuid.UUID
	Subject   string
	StartTime time.Time
	EndTime   time.Time
	Status    string
	Price     int64
	Notes     sql.NullString
	CreatedAt sql.NullTime
	UpdatedAt sql.NullTime
}

// CreateSessionParams are the inputs for a new booking row.
type CreateSessionParams struct {
	StudentID uuid.UUID
	TutorID   uuid.UUID
	Subject   string
	StartTime time.Time
	EndTime   time.Time
	Status    string
	Price     int64
	Notes     sql.NullString
}

const createSession = `
INSERT INTO tutoring_sessions (student_id, tutor_id, subject, start_time, end_time, status, price, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, student_id, tutor_id, subject, start_time, end_time, status, price, notes, created_at, updated_at
`

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (TutoringSession, error) {
	row := q.db.QueryRowContext(ctx, createSession,
		arg.StudentID,
		arg.TutorID,
		arg.Subject,
		arg.StartTime,
		arg.EndTime,
		arg.Status,
		arg.Price,
		arg.Notes,
	)
	var s TutoringSession
	err := row.Scan(
		&s.ID,
		&s.StudentID,
		&s.TutorID,
		&s.Subject,
		&s.StartTime,
		&s.EndTime,
		&s.Status,
		&s.Price,
		&s.Notes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

const getSession = `
SELECT id, student_id, tutor_id, subject, start_time, end_time, status, price, notes, created_at, updated_at
FROM tutoring_sessions
WHERE id = $1
`

func (q *Queries) GetSession(ctx context.Context, id uuid.UUID) (TutoringSession, error) {
	row := q.db.QueryRowContext(ctx, getSession, id)
	var s TutoringSession
	err := row.Scan(
		&s.ID,
		&s.StudentID,
		&s.TutorID,
		&s.Subject,
		&s.StartTime,
		&s.EndTime,
		&s.Status,
		&s.Price,
		&s.Notes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

// UpdateSessionStatusIfCurrentParams guard a lifecycle transition: the
// write only applies when the row is still in FromStatus.
type UpdateSessionStatusIfCurrentParams struct {
	ID         uuid.UUID
	FromStatus string
	ToStatus   string
}

const updateSessionStatusIfCurrent = `
UPDATE tutoring_sessions
SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2
`

// UpdateSessionStatusIfCurrent applies a status-guarded transition and
// returns the number of rows affected. Zero means the session was not in
// FromStatus anymore (or does not exist); callers treat that as an
// invalid-state outcome, never as a silent success.
func (q *Queries) UpdateSessionStatusIfCurrent(ctx context.Context, arg UpdateSessionStatusIfCurrentParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateSessionStatusIfCurrent, arg.ID, arg.FromStatus, arg.ToStatus)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listSessionsByStudent = `
SELECT id, student_id, tutor_id, subject, start_time, end_time, status, price, notes, created_at, updated_at
FROM tutoring_sessions
WHERE student_id = $1
ORDER BY start_time DESC
`

func (q *Queries) ListSessionsByStudent(ctx context.Context, studentID uuid.UUID) ([]TutoringSession, error) {
	rows, err := q.db.QueryContext(ctx, listSessionsByStudent, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TutoringSession
	for rows.Next() {
		var s TutoringSession
		if err := rows.Scan(
			&s.ID,
			&s.StudentID,
			&s.TutorID,
			&s.Subject,
			&s.StartTime,
			&s.EndTime,
			&s.Status,
			&s.Price,
			&s.Notes,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
