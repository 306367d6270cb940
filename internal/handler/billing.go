// Package handler contains the HTTP handlers for the TutorHive API.
//
// This file implements the billing endpoints: checkout initiation, the
// success-redirect pull verification, and balance/usage reads.
//
// Routes:
//   - POST /api/billing/checkout          -> CreateCheckout
//   - GET  /api/billing/success           -> CheckoutSuccess
//   - GET  /api/accounts/{id}/balance     -> GetBalance
//   - GET  /api/students/{id}/usage       -> GetUsage
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tutorhive/tutorhive/internal/domain"
	"github.com/tutorhive/tutorhive/internal/payments"
	"github.com/tutorhive/tutorhive/internal/service"
)

// BillingHandler handles credit purchase and balance HTTP requests.
type BillingHandler struct {
	processor        payments.Service
	fulfillment      service.FulfillmentService
	ledger           service.LedgerService
	quota            service.QuotaService
	plans            map[string]payments.Plan
	baseURL          string
	processorTimeout time.Duration
	logger           *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
// processor may be nil when the payment processor is not configured
// (development mode); checkout and success then refuse requests.
func NewBillingHandler(
	processor payments.Service,
	fulfillment service.FulfillmentService,
	ledger service.LedgerService,
	quota service.QuotaService,
	plans map[string]payments.Plan,
	baseURL string,
	processorTimeout time.Duration,
	logger *slog.Logger,
) *BillingHandler {
	return &BillingHandler{
		processor:        processor,
		fulfillment:      fulfillment,
		ledger:           ledger,
		quota:            quota,
		plans:            plans,
		baseURL:          baseURL,
		processorTimeout: processorTimeout,
		logger:           logger,
	}
}

// RegisterRoutes registers billing routes on the provided mux.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/billing/checkout", h.CreateCheckout)
	mux.HandleFunc("GET /api/billing/success", h.CheckoutSuccess)
	mux.HandleFunc("GET /api/accounts/{id}/balance", h.GetBalance)
	mux.HandleFunc("GET /api/students/{id}/usage", h.GetUsage)
}

// checkoutRequest is the request payload for starting a checkout.
type checkoutRequest struct {
	AccountID string `json:"account_id"`
	Plan      string `json:"plan"` // "credits_small", "credits_large" or "subscription"
}

// CreateCheckout starts a processor checkout for a credit pack or
// subscription and returns the redirect URL.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "handler.create_checkout"

	if h.processor == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINTERNAL, op, "payments are not configured"))
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid request body"))
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid account_id"))
		return
	}
	plan, ok := h.plans[req.Plan]
	if !ok {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "unknown plan"))
		return
	}

	// Verify the account exists before sending the user to the processor.
	if _, err := h.ledger.Balance(r.Context(), accountID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	url, err := h.processor.CreateCheckout(payments.CheckoutParams{
		ParentAccountID: accountID,
		Plan:            plan,
		SuccessURL:      h.baseURL + "/api/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       h.baseURL + "/api/billing/cancelled",
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to start checkout"))
		return
	}

	h.logger.Info("checkout started", "account_id", accountID, "plan", req.Plan)
	respondJSON(w, http.StatusOK, map[string]string{"checkout_url": url})
}

// CheckoutSuccess handles the processor's success redirect. The session
// reference from the query string is verified against the processor
// directly; the redirect itself proves nothing. Fulfillment races with the
// webhook path and the idempotency marker makes the race harmless.
func (h *BillingHandler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	const op = "handler.checkout_success"

	if h.processor == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINTERNAL, op, "payments are not configured"))
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "session_id is required"))
		return
	}

	// Bound the processor round-trip so a slow processor cannot hold the
	// redirect open indefinitely.
	ctx, cancel := context.WithTimeout(r.Context(), h.processorTimeout)
	defer cancel()

	sess, err := h.processor.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to verify payment"))
		return
	}

	grant, err := payments.GrantFromCheckoutSession(sess)
	if err != nil {
		h.logger.Warn("checkout session not fulfillable", "error", err, "session_id", sessionID)
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "This payment could not be verified."))
		return
	}

	result, err := h.fulfillment.Fulfill(r.Context(), grant)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"fulfilled":         true,
		"already_processed": result.AlreadyProcessed,
		"balance":           result.NewBalance.String(),
	})
}

// GetBalance returns a parent account's current credit balance.
func (h *BillingHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.get_balance", "invalid account id"))
		return
	}

	balance, err := h.ledger.Balance(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"balance": balance.String()})
}

// GetUsage returns a student's daily AI usage counters and billing context.
func (h *BillingHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.get_usage", "invalid student id"))
		return
	}

	billing, err := h.quota.Usage(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"student_id":         billing.StudentID,
		"school_funded":      billing.SchoolFunded(),
		"daily_ai_requests":  billing.DailyAIRequests,
		"daily_homework_gen": billing.DailyHomeworkGen,
		"last_quota_reset":   billing.LastQuotaReset,
	})
}
