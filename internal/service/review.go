// Package service contains the business logic layer.
//
// This file implements review submission for completed sessions and the
// recomputation of tutor aggregate ratings.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tutorhive/tutorhive/internal/domain"
	"github.com/tutorhive/tutorhive/internal/metrics"
	"github.com/tutorhive/tutorhive/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// SubmitReviewParams are the validated inputs for a review.
type SubmitReviewParams struct {
	SessionID uuid.UUID
	Rating    int
	Comment   string
}

// ReviewService handles session reviews.
type ReviewService interface {
	// Submit creates the review for a completed session and recomputes
	// the tutor's aggregate rating. A session can be reviewed exactly
	// once; a second submission is rejected as a conflict.
	Submit(ctx context.Context, params SubmitReviewParams) (*domain.SessionReview, error)
}

// ReviewStore is the data access review submission needs.
type ReviewStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (repository.TutoringSession, error)
	CreateSessionReview(ctx context.Context, arg repository.CreateSessionReviewParams) (repository.SessionReview, error)
	ListTutorRatings(ctx context.Context, tutorID uuid.UUID) ([]int32, error)
	UpdateTutorRating(ctx context.Context, arg repository.UpdateTutorRatingParams) error
}

// =============================================================================
// Implementation
// =============================================================================

type reviewService struct {
	store  ReviewStore
	logger *slog.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(store ReviewStore, logger *slog.Logger) ReviewService {
	return &reviewService{
		store:  store,
		logger: logger,
	}
}

func (s *reviewService) Submit(ctx context.Context, params SubmitReviewParams) (*domain.SessionReview, error) {
	const op = "review.submit"

	if !domain.ValidRating(params.Rating) {
		return nil, domain.Invalid(op, "rating must be between 1 and 5")
	}

	session, err := s.store.GetSession(ctx, params.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "session", params.SessionID.String())
		}
		return nil, domain.Internal(err, op, "failed to load session")
	}

	if domain.SessionStatus(session.Status) != domain.SessionStatusCompleted {
		return nil, domain.Invalid(op, "only completed sessions can be reviewed")
	}

	row, err := s.store.CreateSessionReview(ctx, repository.CreateSessionReviewParams{
		SessionID: params.SessionID,
		TutorID:   session.TutorID,
		Rating:    int32(params.Rating),
		Comment:   toNullString(params.Comment),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict(op, "This session has already been reviewed.")
		}
		return nil, domain.Internal(err, op, "failed to create review")
	}

	// Recompute the tutor aggregate from a full rescan of their reviews.
	// A running average would accumulate floating-point drift; the rescan
	// cannot.
	ratings, err := s.store.ListTutorRatings(ctx, session.TutorID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list tutor ratings")
	}
	if err := s.store.UpdateTutorRating(ctx, repository.UpdateTutorRatingParams{
		ID:           session.TutorID,
		Rating:       domain.AverageRating(ratings),
		TotalReviews: int32(len(ratings)),
	}); err != nil {
		return nil, domain.Internal(err, op, "failed to update tutor rating")
	}

	review := &domain.SessionReview{
		ID:        row.ID,
		SessionID: row.SessionID,
		TutorID:   row.TutorID,
		Rating:    int(row.Rating),
	}
	if row.Comment.Valid {
		review.Comment = row.Comment.String
	}
	if row.CreatedAt.Valid {
		review.CreatedAt = row.CreatedAt.Time
	}

	metrics.ReviewsSubmitted.Inc()
	s.logger.Info("review submitted",
		"session_id", params.SessionID,
		"tutor_id", session.TutorID,
		"rating", params.Rating,
		"tutor_reviews", len(ratings),
	)

	return review, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
