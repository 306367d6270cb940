package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Student is the database row for a learner.
type Student struct {
	ID               uuid.UUID
	Name             string
	GradeLevel       sql.NullString
	ParentAccountID  uuid.NullUUID
	OrganizationID   uuid.NullUUID
	DailyAiRequests  int32
	DailyHomeworkGen int32
	LastQuotaReset   time.Time
	CreatedAt        sql.NullTime
	UpdatedAt        sql.NullTime
}

const getStudent = `
SELECT id, name, grade_level, parent_account_id, organization_id,
       daily_ai_requests, daily_homework_gen, last_quota_reset, created_at, updated_at
FROM students
WHERE id = $1
`

func (q *Queries) GetStudent(ctx context.Context, id uuid.UUID) (Student, error) {
	row := q.db.QueryRowContext(ctx, getStudent, id)
	var s Student
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.GradeLevel,
		&s.ParentAccountID,
		&s.OrganizationID,
		&s.DailyAiRequests,
		&s.DailyHomeworkGen,
		&s.LastQuotaReset,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

// GetStudentBillingRow resolves a student's billing context in one query:
// counters, owning parent's subscription status (if any) and the owning
// organization's billing model (if any).
type GetStudentBillingRow struct {
	ID                 uuid.UUID
	Name               string
	ParentAccountID    uuid.NullUUID
	SubscriptionStatus sql.NullString
	BillingModel       sql.NullString
	DailyAiRequests    int32
	DailyHomeworkGen   int32
	LastQuotaReset     time.Time
}

const getStudentBilling = `
SELECT s.id, s.name, s.parent_account_id, p.subscription_status, o.billing_model,
       s.daily_ai_requests, s.daily_homework_gen, s.last_quota_reset
FROM students s
LEFT JOIN parent_accounts p ON p.id = s.parent_account_id
LEFT JOIN organizations o ON o.id = s.organization_id
WHERE s.id = $1
`

func (q *Queries) GetStudentBilling(ctx context.Context, id uuid.UUID) (GetStudentBillingRow, error) {
	row := q.db.QueryRowContext(ctx, getStudentBilling, id)
	var r GetStudentBillingRow
	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.ParentAccountID,
		&r.SubscriptionStatus,
		&r.BillingModel,
		&r.DailyAiRequests,
		&r.DailyHomeworkGen,
		&r.LastQuotaReset,
	)
	return r, err
}

// ResetStudentDailyCountersParams are the inputs to the lazy daily reset.
type ResetStudentDailyCountersParams struct {
	ID             uuid.UUID
	LastQuotaReset time.Time
}

const resetStudentDailyCounters = `
UPDATE students
SET daily_ai_requests = 0, daily_homework_gen = 0, last_quota_reset = $2, updated_at = now()
WHERE id = $1
`

func (q *Queries) ResetStudentDailyCounters(ctx context.Context, arg ResetStudentDailyCountersParams) error {
	_, err := q.db.ExecContext(ctx, resetStudentDailyCounters, arg.ID, arg.LastQuotaReset)
	return err
}

const incrementStudentAiRequests = `
UPDATE students
SET daily_ai_requests = daily_ai_requests + 1, updated_at = now()
WHERE id = $1
`

func (q *Queries) IncrementStudentAiRequests(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, incrementStudentAiRequests, id)
	return err
}

const incrementStudentHomeworkGen = `
UPDATE students
SET daily_homework_gen = daily_homework_gen + 1, updated_at = now()
WHERE id = $1
`

func (q *Queries) IncrementStudentHomeworkGen(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, incrementStudentHomeworkGen, id)
	return err
}
