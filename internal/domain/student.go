// Package domain contains core business types and interfaces.
//
// This file defines students and the organizations that may fund them.
// A student belongs to exactly one parent account or to one organization;
// billing ownership is mutually exclusive.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// BillingModel determines whether an organization's students bypass the
// credit ledger and quota checks entirely.
type BillingModel string

const (
	BillingModelSchoolPays BillingModel = "school_pays"
	BillingModelParentPays BillingModel = "parent_pays"
)

// Organization is a school or similar institution with enrolled students.
type Organization struct {
	ID           uuid.UUID
	Name         string
	BillingModel BillingModel
	CreatedAt    time.Time
}

// StudentProfile is a learner. Daily counters track free-tier AI usage and
// are reset lazily once per calendar day (see the quota service).
type StudentProfile struct {
	ID               uuid.UUID
	Name             string
	GradeLevel       string
	ParentAccountID  uuid.NullUUID
	OrganizationID   uuid.NullUUID
	DailyAIRequests  int
	DailyHomeworkGen int
	LastQuotaReset   time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StudentBilling is the billing context a single query resolves for a
// student: who funds them and where their counters stand. It is the input
// to the quota precedence decision and to session affordability checks.
type StudentBilling struct {
	StudentID        uuid.UUID
	ParentAccountID  uuid.NullUUID
	ParentStatus     SubscriptionStatus // zero value when no parent account
	OrgBillingModel  BillingModel       // zero value when no organization
	DailyAIRequests  int
	DailyHomeworkGen int
	LastQuotaReset   time.Time
}

// SchoolFunded reports whether the student's organization pays for usage
// (rule 1 of the billing precedence). School-funded students bypass both
// the ledger and the quota counters.
func (b StudentBilling) SchoolFunded() bool {
	return b.OrgBillingModel == BillingModelSchoolPays
}
