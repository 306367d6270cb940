// Package domain contains core business types and interfaces.
//
// This file defines the structured payment metadata attached to processor
// checkouts and the credit grant a verified payment resolves to. Metadata
// arrives as loose string key/values from the processor; it is validated
// into a typed, versioned struct at the boundary before the core touches
// it.
package domain

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// PlanTag classifies what a payment purchased.
type PlanTag string

const (
	// PlanTagCredits marks a one-time credit pack purchase.
	PlanTagCredits PlanTag = "credits"
	// PlanTagSubscription marks a subscription purchase; fulfillment also
	// flips the parent's subscription status to active.
	PlanTagSubscription PlanTag = "subscription"
)

// PaymentMetadata is the versioned, typed shape of the metadata we attach
// to a checkout and read back from the processor's confirmation.
type PaymentMetadata struct {
	Version      string `json:"version" validate:"required,eq=1"`
	AccountID    string `json:"account_id" validate:"required,uuid"`
	CreditAmount string `json:"credit_amount" validate:"required"`
	PlanTag      string `json:"plan_tag" validate:"required,oneof=credits subscription"`
}

// CreditGrant is a validated, ready-to-fulfill payment confirmation.
type CreditGrant struct {
	PaymentRef      string // the processor's checkout/payment identifier
	ParentAccountID uuid.UUID
	Amount          Credits
	PlanTag         PlanTag
	RawMetadata     []byte // original metadata, kept on the fulfillment marker
}

var metadataValidate = validator.New(validator.WithRequiredStructEnabled())

// ParsePaymentMetadata validates raw processor metadata and resolves it
// into a CreditGrant for the given payment reference. It rejects anything
// malformed before any core component sees it.
func ParsePaymentMetadata(paymentRef string, raw map[string]string) (CreditGrant, error) {
	meta := PaymentMetadata{
		Version:      raw["version"],
		AccountID:    raw["account_id"],
		CreditAmount: raw["credit_amount"],
		PlanTag:      raw["plan_tag"],
	}
	if err := metadataValidate.Struct(meta); err != nil {
		return CreditGrant{}, fmt.Errorf("payment metadata for %q is invalid: %w", paymentRef, err)
	}

	accountID, err := uuid.Parse(meta.AccountID)
	if err != nil {
		return CreditGrant{}, fmt.Errorf("payment metadata for %q: bad account id: %w", paymentRef, err)
	}
	amount, err := ParseCredits(meta.CreditAmount)
	if err != nil {
		return CreditGrant{}, fmt.Errorf("payment metadata for %q: %w", paymentRef, err)
	}
	if amount <= 0 {
		return CreditGrant{}, fmt.Errorf("payment metadata for %q: credit amount must be positive, got %s", paymentRef, amount)
	}

	rawJSON, err := json.Marshal(meta)
	if err != nil {
		return CreditGrant{}, fmt.Errorf("payment metadata for %q: %w", paymentRef, err)
	}

	return CreditGrant{
		PaymentRef:      paymentRef,
		ParentAccountID: accountID,
		Amount:          amount,
		PlanTag:         PlanTag(meta.PlanTag),
		RawMetadata:     rawJSON,
	}, nil
}

// MetadataForCheckout builds the metadata map attached to a new checkout so
// the confirmation round-trips the same typed fields.
func MetadataForCheckout(accountID uuid.UUID, amount Credits, tag PlanTag) map[string]string {
	return map[string]string{
		"version":       "1",
		"account_id":    accountID.String(),
		"credit_amount": amount.String(),
		"plan_tag":      string(tag),
	}
}
