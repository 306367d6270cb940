// Package payments integrates the external payment processor (Stripe).
//
// Two independent confirmation paths exist for every payment: the
// processor pushes a signed webhook event, and the success redirect pulls
// the checkout session back from the processor to verify it. Both resolve
// into the same domain.CreditGrant and race on the fulfillment service's
// idempotency marker.
package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/tutorhive/tutorhive/internal/domain"
)

// Service defines the interface for payment processor operations.
type Service interface {
	// CreateCheckout creates a Checkout session for a purchasable plan
	// and returns the URL to redirect the payer to. The typed payment
	// metadata is attached so the confirmation round-trips it.
	CreateCheckout(params CheckoutParams) (string, error)

	// VerifyWebhookSignature verifies the webhook's shared-secret
	// signature and returns the event. A delivery that fails this check
	// is rejected with no side effects.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)

	// GetCheckoutSession re-fetches a checkout session from the processor
	// by its reference. Used by the success redirect path, which must not
	// trust a client-supplied "it succeeded" flag. The call is bounded by
	// the context's deadline.
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}

// Plan describes a purchasable product.
type Plan struct {
	PriceID string
	Credits domain.Credits
	Tag     domain.PlanTag
}

// CheckoutParams are the inputs for starting a checkout.
type CheckoutParams struct {
	ParentAccountID uuid.UUID
	Plan            Plan
	SuccessURL      string
	CancelURL       string
}

// stripeService is the concrete implementation of Service.
type stripeService struct {
	webhookSecret string
}

// NewStripeService creates a new Stripe payments service.
//
// The secretKey authenticates Stripe API calls; the webhookSecret verifies
// incoming webhook signatures.
func NewStripeService(secretKey, webhookSecret string) Service {
	stripe.Key = secretKey

	return &stripeService{
		webhookSecret: webhookSecret,
	}
}

func (s *stripeService) CreateCheckout(params CheckoutParams) (string, error) {
	mode := stripe.CheckoutSessionModePayment
	if params.Plan.Tag == domain.PlanTagSubscription {
		mode = stripe.CheckoutSessionModeSubscription
	}

	sessParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.Plan.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	sessParams.Metadata = domain.MetadataForCheckout(params.ParentAccountID, params.Plan.Credits, params.Plan.Tag)

	sess, err := checkoutsession.New(sessParams)
	if err != nil {
		return "", fmt.Errorf("stripe create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}

func (s *stripeService) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := checkoutsession.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get checkout session: %w", err)
	}
	return sess, nil
}

// GrantFromCheckoutSession resolves a paid checkout session into a credit
// grant. It refuses sessions the processor does not report as paid and
// validates the attached metadata before anything reaches the core.
func GrantFromCheckoutSession(sess *stripe.CheckoutSession) (domain.CreditGrant, error) {
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return domain.CreditGrant{}, fmt.Errorf("checkout session %q is not paid (status %q)", sess.ID, sess.PaymentStatus)
	}
	return domain.ParsePaymentMetadata(sess.ID, sess.Metadata)
}
