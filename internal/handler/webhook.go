// Package handler contains the HTTP handlers for the TutorHive API.
//
// This file implements the payment processor webhook handler.
//
// Route:
//   - POST /webhooks/payments -> HandlePaymentWebhook
//
// This route is PUBLIC (no auth middleware) because the processor calls it
// directly. Authentication is via the webhook signature verification.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v79"
	"github.com/tutorhive/tutorhive/internal/payments"
	"github.com/tutorhive/tutorhive/internal/service"
)

// WebhookHandler handles incoming webhook events from the payment processor.
type WebhookHandler struct {
	processor   payments.Service
	fulfillment service.FulfillmentService
	logger      *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// processor may be nil when payments are not configured.
func NewWebhookHandler(processor payments.Service, fulfillment service.FulfillmentService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor:   processor,
		fulfillment: fulfillment,
		logger:      logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are PUBLIC, no auth middleware.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/payments", h.HandlePaymentWebhook)
}

// HandlePaymentWebhook processes incoming processor webhook events.
func (h *WebhookHandler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if h.processor == nil {
		h.logger.Warn("payment webhook received but payments are not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	// Read body (limit to 64KB)
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Verify signature. A delivery that fails this check is rejected with
	// no side effects.
	signature := r.Header.Get("Stripe-Signature")
	event, err := h.processor.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("payment webhook received", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "checkout.session.completed":
		// A fulfillment failure (store unavailable, commit failure) must
		// surface as 5xx: the processor only redelivers unacknowledged
		// events, and the idempotency marker makes redelivery safe. A
		// structurally bad event (unpaid, malformed metadata) is
		// acknowledged; redelivering it cannot succeed.
		if err := h.handleCheckoutCompleted(event); err != nil {
			h.logger.Error("failed to fulfill payment", "error", err, "event_id", event.ID)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleCheckoutCompleted(event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("failed to parse checkout session", "error", err)
		return nil
	}

	grant, err := payments.GrantFromCheckoutSession(&sess)
	if err != nil {
		h.logger.Warn("checkout session not fulfillable", "error", err, "session_id", sess.ID)
		return nil
	}

	result, err := h.fulfillment.Fulfill(webhookCtx(), grant)
	if err != nil {
		return err
	}

	if result.AlreadyProcessed {
		h.logger.Info("payment already fulfilled", "payment_ref", grant.PaymentRef)
		return nil
	}
	h.logger.Info("payment fulfilled",
		"payment_ref", grant.PaymentRef,
		"account_id", grant.ParentAccountID,
		"amount", grant.Amount.String(),
	)
	return nil
}

// webhookCtx returns a background context for webhook processing. Webhook
// deliveries are async events and carry no user request context.
func webhookCtx() context.Context {
	return context.Background()
}
