// Package service contains the business logic layer.
//
// This file implements the session lifecycle state machine. The transitions
// that move money (confirm debits the locked price, late cancel refunds it)
// compose a status-guarded UPDATE with the ledger operation inside one
// database transaction, so a session can never end up scheduled without the
// matching debit or debited twice on a retried confirm.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tutorhive/tutorhive/internal/domain"
	"github.com/tutorhive/tutorhive/internal/messaging"
	"github.com/tutorhive/tutorhive/internal/metrics"
	"github.com/tutorhive/tutorhive/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// CreateSessionResult is the outcome of a booking request. Affordable
// reflects the non-binding pre-check against the parent's balance; a
// request that fails it is still created (the binding check happens at
// confirmation) but the caller can warn the user.
type CreateSessionResult struct {
	Session    *domain.TutoringSession
	Affordable bool
}

// BookingService owns the tutoring session state machine.
type BookingService interface {
	// Create records a new booking in REQUESTED state with the price
	// locked in from the tutor's current hourly rate.
	Create(ctx context.Context, params domain.CreateSessionParams) (*CreateSessionResult, error)

	// Confirm transitions REQUESTED -> SCHEDULED and debits the locked
	// price from the owning parent account. On insufficient funds the
	// session stays REQUESTED and the EPAYMENT error names the shortfall.
	Confirm(ctx context.Context, sessionID uuid.UUID) (*domain.TutoringSession, error)

	// Complete transitions SCHEDULED -> COMPLETED. Triggered by the
	// scheduling collaborator when the session has taken place; no ledger
	// interaction (money was captured at Confirm).
	Complete(ctx context.Context, sessionID uuid.UUID) (*domain.TutoringSession, error)

	// Cancel moves a REQUESTED or SCHEDULED session to CANCELLED. A
	// cancelled SCHEDULED session is refunded its locked price.
	Cancel(ctx context.Context, sessionID uuid.UUID) (*domain.TutoringSession, error)

	// Get returns a session by ID.
	Get(ctx context.Context, sessionID uuid.UUID) (*domain.TutoringSession, error)

	// ListForStudent returns the student's sessions, newest first.
	ListForStudent(ctx context.Context, studentID uuid.UUID) ([]domain.TutoringSession, error)
}

// BookingStore is the data access the booking service needs. Confirm and
// cancel compose their writes in a transaction opened through Begin.
type BookingStore interface {
	GetTutor(ctx context.Context, id uuid.UUID) (repository.Tutor, error)
	GetStudentBilling(ctx context.Context, id uuid.UUID) (repository.GetStudentBillingRow, error)
	GetParentAccount(ctx context.Context, id uuid.UUID) (repository.ParentAccount, error)
	CreateSession(ctx context.Context, arg repository.CreateSessionParams) (repository.TutoringSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (repository.TutoringSession, error)
	ListSessionsByStudent(ctx context.Context, studentID uuid.UUID) ([]repository.TutoringSession, error)
	UpdateSessionStatusIfCurrent(ctx context.Context, arg repository.UpdateSessionStatusIfCurrentParams) (int64, error)
	Begin(ctx context.Context) (BookingTx, error)
}

// BookingTx is the transaction-scoped data access for the lifecycle
// transitions that move money. Writes take effect only on Commit.
type BookingTx interface {
	LedgerStore
	GetSession(ctx context.Context, id uuid.UUID) (repository.TutoringSession, error)
	GetStudentBilling(ctx context.Context, id uuid.UUID) (repository.GetStudentBillingRow, error)
	UpdateSessionStatusIfCurrent(ctx context.Context, arg repository.UpdateSessionStatusIfCurrentParams) (int64, error)
	Commit() error
	Rollback() error
}

// =============================================================================
// Implementation
// =============================================================================

type bookingService struct {
	store     BookingStore
	messenger messaging.Service
	logger    *slog.Logger
}

type sqlBookingStore struct {
	*repository.Queries
	db *sql.DB
}

func (s *sqlBookingStore) Begin(ctx context.Context) (BookingTx, error) {
	return beginTxQueries(ctx, s.db, s.Queries)
}

// NewBookingService creates a new BookingService. The *sql.DB handle is
// needed because confirm and cancel run transactions.
func NewBookingService(db *sql.DB, queries *repository.Queries, messenger messaging.Service, logger *slog.Logger) BookingService {
	return &bookingService{
		store:     &sqlBookingStore{Queries: queries, db: db},
		messenger: messenger,
		logger:    logger,
	}
}

// =============================================================================
// Create
// =============================================================================

func (s *bookingService) Create(ctx context.Context, params domain.CreateSessionParams) (*CreateSessionResult, error) {
	const op = "booking.create"

	if err := validateCreateSessionParams(params); err != nil {
		return nil, err
	}

	tutor, err := s.store.GetTutor(ctx, params.TutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "tutor", params.TutorID.String())
		}
		return nil, domain.Internal(err, op, "failed to load tutor")
	}

	billing, err := s.store.GetStudentBilling(ctx, params.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "student", params.StudentID.String())
		}
		return nil, domain.Internal(err, op, "failed to load student")
	}

	price := domain.EstimatePrice(domain.Credits(tutor.HourlyRate), params.Duration)

	// Non-binding affordability pre-check. The binding check is the
	// conditional debit at Confirm; this one only flags requests the
	// parent visibly cannot afford right now. School-funded students skip
	// it entirely.
	affordable := true
	if !schoolFunded(billing) {
		if !billing.ParentAccountID.Valid {
			return nil, domain.Invalid(op, "student has no billing account for tutoring sessions")
		}
		account, err := s.store.GetParentAccount(ctx, billing.ParentAccountID.UUID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.NotFound(op, "parent account", billing.ParentAccountID.UUID.String())
			}
			return nil, domain.Internal(err, op, "failed to load parent account")
		}
		if account.HoursBalance < int64(price) {
			affordable = false
			s.logger.Warn("booking requested with insufficient balance",
				"student_id", params.StudentID,
				"price", price.String(),
				"balance", domain.Credits(account.HoursBalance).String(),
			)
		}
	}

	row, err := s.store.CreateSession(ctx, repository.CreateSessionParams{
		StudentID: params.StudentID,
		TutorID:   params.TutorID,
		Subject:   params.Subject,
		StartTime: params.StartTime,
		EndTime:   params.StartTime.Add(params.Duration),
		Status:    string(domain.SessionStatusRequested),
		Price:     int64(price),
		Notes:     toNullString(params.Notes),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create session")
	}

	session := rowToSession(row)
	metrics.SessionsCreated.Inc()
	s.logger.Info("session requested",
		"session_id", session.ID,
		"student_id", params.StudentID,
		"tutor_id", params.TutorID,
		"price", price.String(),
	)

	// Open a conversation channel with the tutor. Messaging is a
	// collaborator; its failure must never fail the booking.
	if err := s.messenger.OpenConversation(ctx, messaging.ConversationParams{
		SessionID:   session.ID,
		StudentID:   params.StudentID,
		StudentName: billing.Name,
		TutorID:     params.TutorID,
		TutorName:   tutor.Name,
		Subject:     params.Subject,
		StartTime:   params.StartTime,
	}); err != nil {
		s.logger.Warn("failed to open tutor conversation", "error", err, "session_id", session.ID)
	}

	return &CreateSessionResult{Session: session, Affordable: affordable}, nil
}

func validateCreateSessionParams(params domain.CreateSessionParams) error {
	const op = "booking.validate"

	if strings.TrimSpace(params.Subject) == "" {
		return domain.Invalid(op, "subject is required")
	}
	if params.StartTime.IsZero() {
		return domain.Invalid(op, "start time is required")
	}
	if params.Duration < 15*time.Minute || params.Duration > 8*time.Hour {
		return domain.Invalid(op, "session length must be between 15 minutes and 8 hours")
	}
	return nil
}

// =============================================================================
// Confirm
// =============================================================================

func (s *bookingService) Confirm(ctx context.Context, sessionID uuid.UUID) (*domain.TutoringSession, error) {
	const op = "booking.confirm"

	qtx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to begin transaction")
	}
	defer qtx.Rollback()

	session, err := s.getSessionTx(ctx, op, qtx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusRequested {
		return nil, domain.InvalidTransition(op, session.Status)
	}

	billing, err := qtx.GetStudentBilling(ctx, session.StudentID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load student billing")
	}

	// Debit the locked price unless a school funds the student. The
	// ledger's conditional write re-validates the balance at this moment;
	// the balance may have changed since the request was created.
	if !schoolFunded(billing) {
		if !billing.ParentAccountID.Valid {
			return nil, domain.Invalid(op, "student has no billing account for tutoring sessions")
		}
		ledger := NewLedgerService(qtx, s.logger)
		if _, err := ledger.Debit(ctx, billing.ParentAccountID.UUID, session.Price); err != nil {
			if domain.ErrorCode(err) == domain.EPAYMENT {
				metrics.InsufficientFundsTotal.Inc()
			}
			return nil, err
		}
	}

	affected, err := qtx.UpdateSessionStatusIfCurrent(ctx, repository.UpdateSessionStatusIfCurrentParams{
		ID:         sessionID,
		FromStatus: string(domain.SessionStatusRequested),
		ToStatus:   string(domain.SessionStatusScheduled),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to update session status")
	}
	if affected == 0 {
		// A concurrent confirm or cancel got there first; rolling back
		// also undoes the debit above.
		return nil, domain.InvalidTransition(op, session.Status)
	}

	if err := qtx.Commit(); err != nil {
		return nil, domain.Internal(err, op, "failed to commit confirmation")
	}

	session.Status = domain.SessionStatusScheduled
	metrics.SessionTransitions.WithLabelValues(string(domain.SessionStatusScheduled)).Inc()
	s.logger.Info("session confirmed",
		"session_id", sessionID,
		"price", session.Price.String(),
	)

	return session, nil
}

// =============================================================================
// Complete
// =============================================================================

func (s *bookingService) Complete(ctx context.Context, sessionID uuid.UUID) (*domain.TutoringSession, error) {
	const op = "booking.complete"

	affected, err := s.store.UpdateSessionStatusIfCurrent(ctx, repository.UpdateSessionStatusIfCurrentParams{
		ID:         sessionID,
		FromStatus: string(domain.SessionStatusScheduled),
		ToStatus:   string(domain.SessionStatusCompleted),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to update session status")
	}
	if affected == 0 {
		session, err := s.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return nil, domain.InvalidTransition(op, session.Status)
	}

	metrics.SessionTransitions.WithLabelValues(string(domain.SessionStatusCompleted)).Inc()
	s.logger.Info("session completed", "session_id", sessionID)

	return s.Get(ctx, sessionID)
}

// =============================================================================
// Cancel
// =============================================================================

func (s *bookingService) Cancel(ctx context.Context, sessionID uuid.UUID) (*domain.TutoringSession, error) {
	const op = "booking.cancel"

	qtx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to begin transaction")
	}
	defer qtx.Rollback()

	session, err := s.getSessionTx(ctx, op, qtx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanTransitionTo(domain.SessionStatusCancelled) {
		return nil, domain.InvalidTransition(op, session.Status)
	}

	wasScheduled := session.Status == domain.SessionStatusScheduled

	affected, err := qtx.UpdateSessionStatusIfCurrent(ctx, repository.UpdateSessionStatusIfCurrentParams{
		ID:         sessionID,
		FromStatus: string(session.Status),
		ToStatus:   string(domain.SessionStatusCancelled),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to update session status")
	}
	if affected == 0 {
		return nil, domain.InvalidTransition(op, session.Status)
	}

	// A scheduled session was already paid for; cancelling it refunds the
	// locked price in the same transaction as the status change.
	if wasScheduled {
		billing, err := qtx.GetStudentBilling(ctx, session.StudentID)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to load student billing")
		}
		if !schoolFunded(billing) && billing.ParentAccountID.Valid {
			ledger := NewLedgerService(qtx, s.logger)
			if _, err := ledger.Credit(ctx, billing.ParentAccountID.UUID, session.Price); err != nil {
				return nil, err
			}
		}
	}

	if err := qtx.Commit(); err != nil {
		return nil, domain.Internal(err, op, "failed to commit cancellation")
	}

	session.Status = domain.SessionStatusCancelled
	metrics.SessionTransitions.WithLabelValues(string(domain.SessionStatusCancelled)).Inc()
	s.logger.Info("session cancelled",
		"session_id", sessionID,
		"refunded", wasScheduled,
	)

	return session, nil
}

// =============================================================================
// Reads
// =============================================================================

func (s *bookingService) Get(ctx context.Context, sessionID uuid.UUID) (*domain.TutoringSession, error) {
	const op = "booking.get"
	return s.getSessionTx(ctx, op, s.store, sessionID)
}

func (s *bookingService) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]domain.TutoringSession, error) {
	const op = "booking.list"

	rows, err := s.store.ListSessionsByStudent(ctx, studentID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list sessions")
	}

	sessions := make([]domain.TutoringSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, *rowToSession(row))
	}
	return sessions, nil
}

type sessionReader interface {
	GetSession(ctx context.Context, id uuid.UUID) (repository.TutoringSession, error)
}

func (s *bookingService) getSessionTx(ctx context.Context, op string, q sessionReader, sessionID uuid.UUID) (*domain.TutoringSession, error) {
	row, err := q.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "session", sessionID.String())
		}
		return nil, domain.Internal(err, op, "failed to load session")
	}
	return rowToSession(row), nil
}

// =============================================================================
// Helper Functions
// =============================================================================

func schoolFunded(billing repository.GetStudentBillingRow) bool {
	return billing.BillingModel.Valid &&
		domain.BillingModel(billing.BillingModel.String) == domain.BillingModelSchoolPays
}

func rowToSession(row repository.TutoringSession) *domain.TutoringSession {
	session := &domain.TutoringSession{
		ID:        row.ID,
		StudentID: row.StudentID,
		TutorID:   row.TutorID,
		Subject:   row.Subject,
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		Status:    domain.SessionStatus(row.Status),
		Price:     domain.Credits(row.Price),
	}
	if row.Notes.Valid {
		session.Notes = row.Notes.String
	}
	if row.CreatedAt.Valid {
		session.CreatedAt = row.CreatedAt.Time
	}
	if row.UpdatedAt.Valid {
		session.UpdatedAt = row.UpdatedAt.Time
	}
	return session
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
