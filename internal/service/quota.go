// Package service contains the business logic layer.
//
// This file implements the quota gate for AI-backed features. A check and
// the corresponding usage commit are deliberately two calls: a caller that
// decides not to proceed after a successful check consumes no quota.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tutorhive/tutorhive/internal/domain"
	"github.com/tutorhive/tutorhive/internal/metrics"
	"github.com/tutorhive/tutorhive/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService decides whether a student may consume one unit of an
// AI-backed feature today.
type QuotaService interface {
	// CheckAndReserve evaluates the billing precedence for the student.
	// The decision is returned, never an error, for the deny case; errors
	// are reserved for missing students and infrastructure failures.
	CheckAndReserve(ctx context.Context, studentID uuid.UUID, kind domain.FeatureKind) (*domain.QuotaDecision, error)

	// CommitUsage records one unit of consumed usage once the gated action
	// actually executed.
	CommitUsage(ctx context.Context, studentID uuid.UUID, kind domain.FeatureKind) error

	// Usage returns the student's current counters and limits for display.
	Usage(ctx context.Context, studentID uuid.UUID) (*domain.StudentBilling, error)
}

// QuotaStore is the data access the quota gate needs.
type QuotaStore interface {
	GetStudentBilling(ctx context.Context, id uuid.UUID) (repository.GetStudentBillingRow, error)
	ResetStudentDailyCounters(ctx context.Context, arg repository.ResetStudentDailyCountersParams) error
	IncrementStudentAiRequests(ctx context.Context, id uuid.UUID) error
	IncrementStudentHomeworkGen(ctx context.Context, id uuid.UUID) error
}

// QuotaConfig carries the free-tier ceilings and the reference time zone
// for the daily reset.
type QuotaConfig struct {
	Limits   domain.FreeTierLimits
	Location *time.Location

	// now is overridable in tests.
	now func() time.Time
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	store  QuotaStore
	config QuotaConfig
	logger *slog.Logger
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(store QuotaStore, config QuotaConfig, logger *slog.Logger) QuotaService {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.now == nil {
		config.now = time.Now
	}
	return &quotaService{
		store:  store,
		config: config,
		logger: logger,
	}
}

func (s *quotaService) CheckAndReserve(ctx context.Context, studentID uuid.UUID, kind domain.FeatureKind) (*domain.QuotaDecision, error) {
	const op = "quota.check"

	if !kind.Valid() {
		return nil, domain.Invalid(op, "unknown feature kind")
	}

	billing, err := s.loadBilling(ctx, op, studentID)
	if err != nil {
		return nil, err
	}

	decision := domain.DecideQuota(*billing, kind, s.config.Limits)

	outcome := "allowed"
	if !decision.Allowed {
		outcome = "denied"
		s.logger.Info("quota exceeded",
			"student_id", studentID,
			"feature", kind,
			"used", decision.Used,
			"limit", decision.Limit,
		)
	}
	metrics.QuotaChecks.WithLabelValues(string(kind), outcome).Inc()

	return &decision, nil
}

func (s *quotaService) CommitUsage(ctx context.Context, studentID uuid.UUID, kind domain.FeatureKind) error {
	const op = "quota.commit"

	switch kind {
	case domain.FeatureChat:
		if err := s.store.IncrementStudentAiRequests(ctx, studentID); err != nil {
			return domain.Internal(err, op, "failed to record usage")
		}
	case domain.FeatureHomework:
		if err := s.store.IncrementStudentHomeworkGen(ctx, studentID); err != nil {
			return domain.Internal(err, op, "failed to record usage")
		}
	default:
		return domain.Invalid(op, "unknown feature kind")
	}
	return nil
}

func (s *quotaService) Usage(ctx context.Context, studentID uuid.UUID) (*domain.StudentBilling, error) {
	const op = "quota.usage"
	return s.loadBilling(ctx, op, studentID)
}

// loadBilling fetches the student's billing context and applies the lazy
// daily reset. The reset runs before precedence is evaluated and also when
// a school or subscription rule would short-circuit the check, so counters
// stay meaningful if the student loses coverage mid-day.
func (s *quotaService) loadBilling(ctx context.Context, op string, studentID uuid.UUID) (*domain.StudentBilling, error) {
	row, err := s.store.GetStudentBilling(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "student", studentID.String())
		}
		return nil, domain.Internal(err, op, "failed to load student billing")
	}

	billing := &domain.StudentBilling{
		StudentID:        row.ID,
		ParentAccountID:  row.ParentAccountID,
		DailyAIRequests:  int(row.DailyAiRequests),
		DailyHomeworkGen: int(row.DailyHomeworkGen),
		LastQuotaReset:   row.LastQuotaReset,
	}
	if row.SubscriptionStatus.Valid {
		billing.ParentStatus = domain.SubscriptionStatus(row.SubscriptionStatus.String)
	}
	if row.BillingModel.Valid {
		billing.OrgBillingModel = domain.BillingModel(row.BillingModel.String)
	}

	now := s.config.now()
	if domain.NeedsDailyReset(billing.LastQuotaReset, now, s.config.Location) {
		if err := s.store.ResetStudentDailyCounters(ctx, repository.ResetStudentDailyCountersParams{
			ID:             studentID,
			LastQuotaReset: now,
		}); err != nil {
			return nil, domain.Internal(err, op, "failed to reset daily counters")
		}
		billing.DailyAIRequests = 0
		billing.DailyHomeworkGen = 0
		billing.LastQuotaReset = now
	}

	return billing, nil
}
