// Package service contains the business logic layer.
//
// This file implements the credit ledger: the only sanctioned mutator of a
// parent account's spendable balance. Every other component that moves
// credits (booking confirmation, refunds, payment fulfillment) does so
// through this service, usually over a transaction-scoped store.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tutorhive/tutorhive/internal/domain"
	"github.com/tutorhive/tutorhive/internal/metrics"
	"github.com/tutorhive/tutorhive/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// LedgerService defines the atomic balance operations.
type LedgerService interface {
	// Debit removes amount from the account's balance. It fails with an
	// EPAYMENT error naming the shortfall when the balance does not cover
	// the amount, and performs no mutation in that case. The balance can
	// never go negative: the check and the decrement are one conditional
	// database write.
	Debit(ctx context.Context, parentAccountID uuid.UUID, amount domain.Credits) (domain.Credits, error)

	// Credit adds amount to the account's balance unconditionally. At-most
	// -once semantics per external payment are the fulfillment service's
	// responsibility, not the ledger's.
	Credit(ctx context.Context, parentAccountID uuid.UUID, amount domain.Credits) (domain.Credits, error)

	// Balance returns the current spendable balance.
	Balance(ctx context.Context, parentAccountID uuid.UUID) (domain.Credits, error)
}

// LedgerStore is the data access the ledger needs. *repository.Queries
// satisfies it, both over the pool and transaction-scoped via WithTx.
type LedgerStore interface {
	GetParentAccount(ctx context.Context, id uuid.UUID) (repository.ParentAccount, error)
	DebitParentBalance(ctx context.Context, arg repository.DebitParentBalanceParams) (int64, error)
	CreditParentBalance(ctx context.Context, arg repository.CreditParentBalanceParams) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type ledgerService struct {
	store  LedgerStore
	logger *slog.Logger
}

// NewLedgerService creates a new LedgerService over the given store. Pass a
// transaction-scoped Queries to compose a debit or credit with other writes.
func NewLedgerService(store LedgerStore, logger *slog.Logger) LedgerService {
	return &ledgerService{
		store:  store,
		logger: logger,
	}
}

func (s *ledgerService) Debit(ctx context.Context, parentAccountID uuid.UUID, amount domain.Credits) (domain.Credits, error) {
	const op = "ledger.debit"

	// A non-positive amount is a bug in the caller, not an insufficient
	// funds condition.
	if amount <= 0 {
		return 0, domain.Invalid(op, "debit amount must be positive")
	}

	balance, err := s.store.DebitParentBalance(ctx, repository.DebitParentBalanceParams{
		ID:     parentAccountID,
		Amount: int64(amount),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the account doesn't exist or the balance didn't cover
			// the amount; re-read to tell them apart.
			account, getErr := s.store.GetParentAccount(ctx, parentAccountID)
			if getErr != nil {
				if errors.Is(getErr, sql.ErrNoRows) {
					return 0, domain.NotFound(op, "parent account", parentAccountID.String())
				}
				return 0, domain.Internal(getErr, op, "failed to load parent account")
			}
			return 0, domain.InsufficientFunds(op, amount, domain.Credits(account.HoursBalance))
		}
		return 0, domain.Internal(err, op, "failed to debit balance")
	}

	metrics.CreditsDebited.Add(amount.Float64())
	s.logger.Info("balance debited",
		"parent_account_id", parentAccountID,
		"amount", amount.String(),
		"new_balance", domain.Credits(balance).String(),
	)

	return domain.Credits(balance), nil
}

func (s *ledgerService) Credit(ctx context.Context, parentAccountID uuid.UUID, amount domain.Credits) (domain.Credits, error) {
	const op = "ledger.credit"

	if amount <= 0 {
		return 0, domain.Invalid(op, "credit amount must be positive")
	}

	balance, err := s.store.CreditParentBalance(ctx, repository.CreditParentBalanceParams{
		ID:     parentAccountID,
		Amount: int64(amount),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NotFound(op, "parent account", parentAccountID.String())
		}
		return 0, domain.Internal(err, op, "failed to credit balance")
	}

	metrics.CreditsCredited.Add(amount.Float64())
	s.logger.Info("balance credited",
		"parent_account_id", parentAccountID,
		"amount", amount.String(),
		"new_balance", domain.Credits(balance).String(),
	)

	return domain.Credits(balance), nil
}

func (s *ledgerService) Balance(ctx context.Context, parentAccountID uuid.UUID) (domain.Credits, error) {
	const op = "ledger.balance"

	account, err := s.store.GetParentAccount(ctx, parentAccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NotFound(op, "parent account", parentAccountID.String())
		}
		return 0, domain.Internal(err, op, "failed to load parent account")
	}
	return domain.Credits(account.HoursBalance), nil
}
