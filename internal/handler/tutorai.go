// Package handler contains the HTTP handlers for the TutorHive API.
//
// This file implements the AI tutoring endpoints. Every request passes the
// quota gate before it reaches the provider, and usage is committed only
// after the provider call succeeds, so a failed generation never burns a
// unit of the student's daily allowance.
//
// Routes:
//   - POST /api/ai/chat     -> Chat
//   - POST /api/ai/homework -> GenerateHomework
package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tutorhive/tutorhive/internal/domain"
	"github.com/tutorhive/tutorhive/internal/service"
	"github.com/tutorhive/tutorhive/internal/tutorai"
)

// TutorAIHandler handles AI tutoring requests.
type TutorAIHandler struct {
	provider tutorai.Provider
	quota    service.QuotaService
	logger   *slog.Logger
}

// NewTutorAIHandler creates a new TutorAIHandler.
func NewTutorAIHandler(provider tutorai.Provider, quota service.QuotaService, logger *slog.Logger) *TutorAIHandler {
	return &TutorAIHandler{
		provider: provider,
		quota:    quota,
		logger:   logger,
	}
}

// RegisterRoutes registers AI tutoring routes on the provided mux.
func (h *TutorAIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ai/chat", h.Chat)
	mux.HandleFunc("POST /api/ai/homework", h.GenerateHomework)
}

// chatRequest is the request payload for a chat turn.
type chatRequest struct {
	StudentID string     `json:"student_id"`
	Subject   string     `json:"subject,omitempty"`
	Question  string     `json:"question"`
	History   []chatTurn `json:"history,omitempty"`
}

type chatTurn struct {
	Role    string `json:"role"` // "student" or "tutor"
	Content string `json:"content"`
}

// Chat answers a student's study question, gated by the daily chat quota.
func (h *TutorAIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	const op = "handler.ai_chat"

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid request body"))
		return
	}
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid student_id"))
		return
	}
	if req.Question == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "question is required"))
		return
	}

	decision, err := h.quota.CheckAndReserve(r.Context(), studentID, domain.FeatureChat)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if !decision.Allowed {
		h.denied(w, r, op, studentID, domain.FeatureChat, decision)
		return
	}

	history := make([]tutorai.Turn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, tutorai.Turn{Role: turn.Role, Content: turn.Content})
	}

	result, err := h.provider.Chat(r.Context(), tutorai.ChatParams{
		StudentID: studentID,
		Subject:   req.Subject,
		Question:  req.Question,
		History:   history,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, mapProviderError(op, err))
		return
	}

	// The unit is consumed only now that the provider delivered.
	if err := h.quota.CommitUsage(r.Context(), studentID, domain.FeatureChat); err != nil {
		h.logger.Error("failed to commit quota usage", "error", err, "student_id", studentID)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"answer": result.Answer,
		"quota": map[string]any{
			"source": string(decision.Source),
			"used":   decision.Used,
			"limit":  decision.Limit,
		},
	})
}

// homeworkRequest is the request payload for homework generation.
type homeworkRequest struct {
	StudentID  string `json:"student_id"`
	Subject    string `json:"subject"`
	Topic      string `json:"topic,omitempty"`
	GradeLevel string `json:"grade_level,omitempty"`
	Count      int    `json:"count,omitempty"`
}

// GenerateHomework produces a practice problem set, gated by the daily
// homework quota.
func (h *TutorAIHandler) GenerateHomework(w http.ResponseWriter, r *http.Request) {
	const op = "handler.ai_homework"

	var req homeworkRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid request body"))
		return
	}
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid student_id"))
		return
	}
	if req.Subject == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "subject is required"))
		return
	}

	decision, err := h.quota.CheckAndReserve(r.Context(), studentID, domain.FeatureHomework)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if !decision.Allowed {
		h.denied(w, r, op, studentID, domain.FeatureHomework, decision)
		return
	}

	result, err := h.provider.GenerateHomework(r.Context(), tutorai.HomeworkParams{
		StudentID:  studentID,
		Subject:    req.Subject,
		Topic:      req.Topic,
		GradeLevel: req.GradeLevel,
		Count:      req.Count,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, mapProviderError(op, err))
		return
	}

	if err := h.quota.CommitUsage(r.Context(), studentID, domain.FeatureHomework); err != nil {
		h.logger.Error("failed to commit quota usage", "error", err, "student_id", studentID)
	}

	type problemResponse struct {
		Prompt string `json:"prompt"`
		Answer string `json:"answer"`
		Hint   string `json:"hint,omitempty"`
	}
	problems := make([]problemResponse, 0, len(result.Problems))
	for _, p := range result.Problems {
		problems = append(problems, problemResponse{Prompt: p.Prompt, Answer: p.Answer, Hint: p.Hint})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"title":    result.Title,
		"problems": problems,
		"quota": map[string]any{
			"source": string(decision.Source),
			"used":   decision.Used,
			"limit":  decision.Limit,
		},
	})
}

// denied writes the quota denial. The decision's message is displayable
// as-is and names the ceiling and the reset time.
func (h *TutorAIHandler) denied(w http.ResponseWriter, r *http.Request, op string, studentID uuid.UUID, kind domain.FeatureKind, decision *domain.QuotaDecision) {
	h.logger.Info("quota denied",
		"student_id", studentID,
		"feature", string(kind),
		"used", decision.Used,
		"limit", decision.Limit,
	)
	ErrorResponse(w, r, h.logger, domain.QuotaExceeded(op, kind, decision.Used, decision.Limit))
}

// mapProviderError converts provider errors into domain errors with
// user-safe messages.
func mapProviderError(op string, err error) error {
	switch {
	case tutorai.IsRetryable(err):
		return domain.Internal(err, op, "The AI tutor is busy right now. Please try again in a moment.")
	default:
		return domain.Internal(err, op, "The AI tutor could not handle this request.")
	}
}
