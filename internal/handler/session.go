// Package handler contains the HTTP handlers for the TutorHive API.
//
// This file implements the session booking endpoints.
//
// Routes:
//   - POST /api/sessions                  -> CreateSession
//   - GET  /api/sessions/{id}             -> GetSession
//   - POST /api/sessions/{id}/confirm     -> ConfirmSession
//   - POST /api/sessions/{id}/complete    -> CompleteSession
//   - POST /api/sessions/{id}/cancel      -> CancelSession
//   - POST /api/sessions/{id}/review      -> ReviewSession
//   - GET  /api/students/{id}/sessions    -> ListStudentSessions
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tutorhive/tutorhive/internal/domain"
	"github.com/tutorhive/tutorhive/internal/service"
)

// SessionHandler handles session lifecycle requests.
type SessionHandler struct {
	booking service.BookingService
	reviews service.ReviewService
	logger  *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(booking service.BookingService, reviews service.ReviewService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		booking: booking,
		reviews: reviews,
		logger:  logger,
	}
}

// RegisterRoutes registers session routes on the provided mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.CreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.GetSession)
	mux.HandleFunc("POST /api/sessions/{id}/confirm", h.ConfirmSession)
	mux.HandleFunc("POST /api/sessions/{id}/complete", h.CompleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/cancel", h.CancelSession)
	mux.HandleFunc("POST /api/sessions/{id}/review", h.ReviewSession)
	mux.HandleFunc("GET /api/students/{id}/sessions", h.ListStudentSessions)
}

// createSessionRequest is the request payload for a new booking.
type createSessionRequest struct {
	StudentID       string `json:"student_id"`
	TutorID         string `json:"tutor_id"`
	Subject         string `json:"subject"`
	StartTime       string `json:"start_time"` // RFC 3339
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes,omitempty"`
}

// sessionResponse is the JSON shape of a tutoring session.
type sessionResponse struct {
	ID        uuid.UUID `json:"id"`
	StudentID uuid.UUID `json:"student_id"`
	TutorID   uuid.UUID `json:"tutor_id"`
	Subject   string    `json:"subject"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
	Price     string    `json:"price"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toSessionResponse(s *domain.TutoringSession) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		StudentID: s.StudentID,
		TutorID:   s.TutorID,
		Subject:   s.Subject,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Status:    string(s.Status),
		Price:     s.Price.String(),
		Notes:     s.Notes,
		CreatedAt: s.CreatedAt,
	}
}

// CreateSession books a new session in the requested state.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.create_session", "invalid request body"))
		return
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.create_session", "invalid student_id"))
		return
	}
	tutorID, err := uuid.Parse(req.TutorID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.create_session", "invalid tutor_id"))
		return
	}
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.create_session", "start_time must be RFC 3339"))
		return
	}

	result, err := h.booking.Create(r.Context(), domain.CreateSessionParams{
		StudentID: studentID,
		TutorID:   tutorID,
		Subject:   req.Subject,
		StartTime: startTime,
		Duration:  time.Duration(req.DurationMinutes) * time.Minute,
		Notes:     req.Notes,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	type createResponse struct {
		Session    sessionResponse `json:"session"`
		Affordable bool            `json:"affordable"`
	}
	respondJSON(w, http.StatusCreated, createResponse{
		Session:    toSessionResponse(result.Session),
		Affordable: result.Affordable,
	})
}

// GetSession returns a single session.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.get_session", "invalid session id"))
		return
	}

	session, err := h.booking.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(session))
}

// ConfirmSession schedules a requested session, debiting the locked price.
func (h *SessionHandler) ConfirmSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "handler.confirm_session", h.booking.Confirm)
}

// CompleteSession marks a scheduled session as having taken place.
func (h *SessionHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "handler.complete_session", h.booking.Complete)
}

// CancelSession cancels a requested or scheduled session.
func (h *SessionHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "handler.cancel_session", h.booking.Cancel)
}

// transition runs one of the lifecycle operations that take only the
// session ID.
func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, id uuid.UUID) (*domain.TutoringSession, error)) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid session id"))
		return
	}

	session, err := fn(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(session))
}

// reviewRequest is the request payload for a session review.
type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// reviewResponse is the JSON shape of a submitted review.
type reviewResponse struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	TutorID   uuid.UUID `json:"tutor_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewSession submits a review for a completed session.
func (h *SessionHandler) ReviewSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.review_session", "invalid session id"))
		return
	}

	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.review_session", "invalid request body"))
		return
	}

	review, err := h.reviews.Submit(r.Context(), service.SubmitReviewParams{
		SessionID: id,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, reviewResponse{
		ID:        review.ID,
		SessionID: review.SessionID,
		TutorID:   review.TutorID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	})
}

// ListStudentSessions returns the student's sessions, newest first.
func (h *SessionHandler) ListStudentSessions(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.list_sessions", "invalid student id"))
		return
	}

	sessions, err := h.booking.ListForStudent(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionResponse(&sessions[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": out})
}
