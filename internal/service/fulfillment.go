// Package service contains the business logic layer.
//
// This file implements idempotent payment fulfillment: converting a
// verified external payment confirmation into a one-time balance credit.
// Two independent entry points (the processor's webhook and the success
// redirect verification) may both deliver the same confirmation, possibly
// concurrently; the fulfillment marker's unique constraint plus a single
// transaction guarantee exactly one credit per payment reference.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/sqlc-dev/pqtype"
	"github.com/tutorhive/tutorhive/internal/domain"
	"github.com/tutorhive/tutorhive/internal/metrics"
	"github.com/tutorhive/tutorhive/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// FulfillmentResult is the outcome of a fulfillment attempt.
// AlreadyProcessed is a benign signal, not an error: the payment was
// credited by an earlier (or concurrent) delivery.
type FulfillmentResult struct {
	AlreadyProcessed bool
	NewBalance       domain.Credits
}

// FulfillmentService converts verified payment confirmations into credits.
type FulfillmentService interface {
	Fulfill(ctx context.Context, grant domain.CreditGrant) (*FulfillmentResult, error)
}

// FulfillmentStore opens transaction-scoped stores for fulfillment.
type FulfillmentStore interface {
	Begin(ctx context.Context) (FulfillmentTx, error)
}

// FulfillmentTx is the transaction-scoped data access one fulfillment
// needs. Writes take effect only on Commit.
type FulfillmentTx interface {
	LedgerStore
	GetPaymentFulfillment(ctx context.Context, paymentRef string) (repository.PaymentFulfillment, error)
	CreatePaymentFulfillment(ctx context.Context, arg repository.CreatePaymentFulfillmentParams) (repository.PaymentFulfillment, error)
	UpdateParentSubscriptionStatus(ctx context.Context, arg repository.UpdateParentSubscriptionStatusParams) error
	Commit() error
	Rollback() error
}

// =============================================================================
// Implementation
// =============================================================================

type fulfillmentService struct {
	store  FulfillmentStore
	logger *slog.Logger
}

type sqlFulfillmentStore struct {
	db      *sql.DB
	queries *repository.Queries
}

func (s *sqlFulfillmentStore) Begin(ctx context.Context) (FulfillmentTx, error) {
	return beginTxQueries(ctx, s.db, s.queries)
}

// NewFulfillmentService creates a new FulfillmentService.
func NewFulfillmentService(db *sql.DB, queries *repository.Queries, logger *slog.Logger) FulfillmentService {
	return &fulfillmentService{
		store:  &sqlFulfillmentStore{db: db, queries: queries},
		logger: logger,
	}
}

func (s *fulfillmentService) Fulfill(ctx context.Context, grant domain.CreditGrant) (*FulfillmentResult, error) {
	const op = "fulfillment.fulfill"

	if grant.PaymentRef == "" {
		return nil, domain.Invalid(op, "payment reference is required")
	}
	if grant.Amount <= 0 {
		return nil, domain.Invalid(op, "credit amount must be positive")
	}

	qtx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to begin transaction")
	}
	defer qtx.Rollback()

	// Idempotency check before any mutation. The marker is the sole
	// anti-double-credit mechanism.
	_, err = qtx.GetPaymentFulfillment(ctx, grant.PaymentRef)
	if err == nil {
		metrics.PaymentsDuplicate.Inc()
		s.logger.Info("payment already fulfilled", "payment_ref", grant.PaymentRef)
		return &FulfillmentResult{AlreadyProcessed: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "failed to check fulfillment marker")
	}

	ledger := NewLedgerService(qtx, s.logger)
	newBalance, err := ledger.Credit(ctx, grant.ParentAccountID, grant.Amount)
	if err != nil {
		return nil, err
	}

	// A subscription purchase also activates the parent's plan, which
	// flips the billing precedence for all their students.
	if grant.PlanTag == domain.PlanTagSubscription {
		if err := qtx.UpdateParentSubscriptionStatus(ctx, repository.UpdateParentSubscriptionStatusParams{
			ID:                 grant.ParentAccountID,
			SubscriptionStatus: string(domain.SubscriptionStatusActive),
		}); err != nil {
			return nil, domain.Internal(err, op, "failed to activate subscription")
		}
	}

	_, err = qtx.CreatePaymentFulfillment(ctx, repository.CreatePaymentFulfillmentParams{
		PaymentRef:      grant.PaymentRef,
		ParentAccountID: grant.ParentAccountID,
		Amount:          int64(grant.Amount),
		PlanTag:         string(grant.PlanTag),
		Metadata:        rawMetadata(grant.RawMetadata),
	})
	if err != nil {
		// A concurrent delivery of the same confirmation won the race
		// between our marker check and our insert. Nothing was credited
		// by us: the rollback undoes this transaction entirely.
		if isUniqueViolation(err) {
			metrics.PaymentsDuplicate.Inc()
			s.logger.Info("payment fulfilled concurrently by other entry point", "payment_ref", grant.PaymentRef)
			return &FulfillmentResult{AlreadyProcessed: true}, nil
		}
		return nil, domain.Internal(err, op, "failed to write fulfillment marker")
	}

	if err := qtx.Commit(); err != nil {
		return nil, domain.Internal(err, op, "failed to commit fulfillment")
	}

	metrics.PaymentsFulfilled.Inc()
	s.logger.Info("payment fulfilled",
		"payment_ref", grant.PaymentRef,
		"parent_account_id", grant.ParentAccountID,
		"amount", grant.Amount.String(),
		"plan_tag", grant.PlanTag,
	)

	return &FulfillmentResult{NewBalance: newBalance}, nil
}

func rawMetadata(raw []byte) pqtype.NullRawMessage {
	if len(raw) == 0 {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}
}
