// Package domain contains core business types and interfaces.
//
// This file defines the quota gate's decision logic: the billing precedence
// that determines whether a student may consume one unit of an AI-backed
// feature today. The decision itself is a pure function so it can be tested
// exhaustively; the quota service supplies the data and persists counters.
package domain

import "time"

// FeatureKind identifies a quota-gated AI feature.
type FeatureKind string

const (
	FeatureChat     FeatureKind = "chat"
	FeatureHomework FeatureKind = "homework"
)

// Valid reports whether the feature kind is known.
func (k FeatureKind) Valid() bool {
	return k == FeatureChat || k == FeatureHomework
}

// Label returns the human-readable name used in denial messages.
func (k FeatureKind) Label() string {
	switch k {
	case FeatureChat:
		return "AI chat"
	case FeatureHomework:
		return "homework generation"
	default:
		return string(k)
	}
}

// FreeTierLimits are the per-day ceilings applied to students with no
// organization coverage and no active subscription.
type FreeTierLimits struct {
	ChatPerDay     int
	HomeworkPerDay int
}

// Limit returns the ceiling for a feature kind.
func (l FreeTierLimits) Limit(kind FeatureKind) int {
	if kind == FeatureHomework {
		return l.HomeworkPerDay
	}
	return l.ChatPerDay
}

// QuotaSource records which precedence rule produced a decision.
type QuotaSource string

const (
	QuotaSourceSchool       QuotaSource = "school"
	QuotaSourceSubscription QuotaSource = "subscription"
	QuotaSourceFreeTier     QuotaSource = "free_tier"
)

// QuotaDecision is the outcome of a quota check. When Allowed is false,
// Message is suitable for direct display to the user.
type QuotaDecision struct {
	Allowed bool
	Source  QuotaSource
	Used    int
	Limit   int
	Message string
}

// NeedsDailyReset reports whether the student's counters belong to an
// earlier calendar day than now, in the system's reference time zone.
func NeedsDailyReset(lastReset, now time.Time, loc *time.Location) bool {
	y1, m1, d1 := lastReset.In(loc).Date()
	y2, m2, d2 := now.In(loc).Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// DecideQuota evaluates the billing precedence for one unit of usage.
// Rules are evaluated in order; the first match wins:
//
//  1. organization with school_pays billing: allowed, counters untouched
//  2. parent subscription active or trialing: allowed
//  3. free tier: allowed while strictly under the daily ceiling
//
// Callers must have applied the lazy daily reset to billing's counters
// before calling; this function only reads them.
func DecideQuota(billing StudentBilling, kind FeatureKind, limits FreeTierLimits) QuotaDecision {
	if billing.SchoolFunded() {
		return QuotaDecision{Allowed: true, Source: QuotaSourceSchool}
	}
	if billing.ParentStatus.CoversAI() {
		return QuotaDecision{Allowed: true, Source: QuotaSourceSubscription}
	}

	used := billing.DailyAIRequests
	if kind == FeatureHomework {
		used = billing.DailyHomeworkGen
	}
	limit := limits.Limit(kind)

	if used < limit {
		return QuotaDecision{Allowed: true, Source: QuotaSourceFreeTier, Used: used, Limit: limit}
	}
	return QuotaDecision{
		Allowed: false,
		Source:  QuotaSourceFreeTier,
		Used:    used,
		Limit:   limit,
		Message: QuotaExceeded("quota.check", kind, used, limit).Message,
	}
}
