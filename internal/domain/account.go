// Package domain contains core business types and interfaces.
//
// This file defines the ParentAccount domain type. The account's
// HoursBalance is the central invariant of the billing subsystem: it is
// mutated only through the ledger service and never goes negative.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the possible states of a parent's
// AI-tutoring subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusNone    SubscriptionStatus = "none"
	SubscriptionStatusTrial   SubscriptionStatus = "trial"
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// Valid reports whether the status is one of the known values.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusNone, SubscriptionStatusTrial, SubscriptionStatusActive, SubscriptionStatusExpired:
		return true
	default:
		return false
	}
}

// CoversAI reports whether the subscription grants unlimited AI feature
// usage (rule 2 of the billing precedence).
func (s SubscriptionStatus) CoversAI() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrial
}

// ParentAccount is the identity of a paying guardian.
//
// HoursBalance is semantically "spendable credits", not wall-clock hours;
// the name is historical. It is only ever written through the ledger
// service's Debit/Credit operations.
type ParentAccount struct {
	ID                 uuid.UUID
	Email              string
	Name               string
	HoursBalance       Credits
	SubscriptionStatus SubscriptionStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
