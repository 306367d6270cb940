package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// ParentAccount is the database row for a paying guardian. HoursBalance is
// stored in hundredths of a credit.
type ParentAccount struct {
	ID                 uuid.UUID
	Email              string
	Name               string
	HoursBalance       int64
	SubscriptionStatus string
	CreatedAt          sql.NullTime
	UpdatedAt          sql.NullTime
}

const getParentAccount = `
SELECT id, email, name, hours_balance, subscription_status, created_at, updated_at
FROM parent_accounts
WHERE id = $1
`

func (q *Queries) GetParentAccount(ctx context.Context, id uuid.UUID) (ParentAccount, error) {
	row := q.db.QueryRowContext(ctx, getParentAccount, id)
	var a ParentAccount
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Name,
		&a.HoursBalance,
		&a.SubscriptionStatus,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

// DebitParentBalanceParams are the inputs to the conditional debit.
type DebitParentBalanceParams struct {
	ID     uuid.UUID
	Amount int64
}

// The balance guard lives in the WHERE clause: two concurrent debits can
// never both observe a stale sufficient balance, because the decrement only
// applies when the row still covers the amount at write time. A zero-row
// result (sql.ErrNoRows) means either the account is missing or the balance
// is insufficient; callers disambiguate with GetParentAccount.
const debitParentBalance = `
UPDATE parent_accounts
SET hours_balance = hours_balance - $2, updated_at = now()
WHERE id = $1 AND hours_balance >= $2
RETURNING hours_balance
`

func (q *Queries) DebitParentBalance(ctx context.Context, arg DebitParentBalanceParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, debitParentBalance, arg.ID, arg.Amount)
	var balance int64
	err := row.Scan(&balance)
	return balance, err
}

// CreditParentBalanceParams are the inputs to the unconditional credit.
type CreditParentBalanceParams struct {
	ID     uuid.UUID
	Amount int64
}

const creditParentBalance = `
UPDATE parent_accounts
SET hours_balance = hours_balance + $2, updated_at = now()
WHERE id = $1
RETURNING hours_balance
`

func (q *Queries) CreditParentBalance(ctx context.Context, arg CreditParentBalanceParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, creditParentBalance, arg.ID, arg.Amount)
	var balance int64
	err := row.Scan(&balance)
	return balance, err
}

// UpdateParentSubscriptionStatusParams are the inputs to the status flip.
type UpdateParentSubscriptionStatusParams struct {
	ID                 uuid.UUID
	SubscriptionStatus string
}

const updateParentSubscriptionStatus = `
UPDATE parent_accounts
SET subscription_status = $2, updated_at = now()
WHERE id = $1
`

func (q *Queries) UpdateParentSubscriptionStatus(ctx context.Context, arg UpdateParentSubscriptionStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateParentSubscriptionStatus, arg.ID, arg.SubscriptionStatus)
	return err
}
