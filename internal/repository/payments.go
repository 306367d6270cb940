package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// PaymentFulfillment is the idempotency marker: one row per external
// payment reference that has been credited. The unique constraint on
// payment_ref is the anti-double-credit mechanism; a racing second insert
// fails with a uniqueness violation instead of crediting twice.
type PaymentFulfillment struct {
	ID              uuid.UUID
	PaymentRef      string
	ParentAccountID uuid.UUID
	Amount          int64
	PlanTag         string
	Metadata        pqtype.NullRawMessage
	CreatedAt       sql.NullTime
}

const getPaymentFulfillment = `
SELECT id, payment_ref, parent_account_id, amount, plan_tag, metadata, created_at
FROM payment_fulfillments
WHERE payment_ref = $1
`

func (q *Queries) GetPaymentFulfillment(ctx context.Context, paymentRef string) (PaymentFulfillment, error) {
	row := q.db.QueryRowContext(ctx, getPaymentFulfillment, paymentRef)
	var f PaymentFulfillment
	err := row.Scan(
		&f.ID,
		&f.PaymentRef,
		&f.ParentAccountID,
		&f.Amount,
		&f.PlanTag,
		&f.Metadata,
		&f.CreatedAt,
	)
	return f, err
}

// CreatePaymentFulfillmentParams are the inputs for a new marker row.
type CreatePaymentFulfillmentParams struct {
	PaymentRef      string
	ParentAccountID uuid.UUID
	Amount          int64
	PlanTag         string
	Metadata        pqtype.NullRawMessage
}

const createPaymentFulfillment = `
INSERT INTO payment_fulfillments (payment_ref, parent_account_id, amount, plan_tag, metadata)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, payment_ref, parent_account_id, amount, plan_tag, metadata, created_at
`

func (q *Queries) CreatePaymentFulfillment(ctx context.Context, arg CreatePaymentFulfillmentParams) (PaymentFulfillment, error) {
	row := q.db.QueryRowContext(ctx, createPaymentFulfillment,
		arg.PaymentRef,
		arg.ParentAccountID,
		arg.Amount,
		arg.PlanTag,
		arg.Metadata,
	)
	var f PaymentFulfillment
	err := row.Scan(
		&f.ID,
		&f.PaymentRef,
		&f.ParentAccountID,
		&f.Amount,
		&f.PlanTag,
		&f.Metadata,
		&f.CreatedAt,
	)
	return f, err
}
