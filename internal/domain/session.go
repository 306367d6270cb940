// Package domain contains core business types and interfaces.
//
// This file defines the tutoring session booking unit and its status state
// machine, plus the price quantization rule applied when a booking request
// locks in its price.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the finite state machine of a tutoring session.
//
//	REQUESTED -> SCHEDULED -> COMPLETED
//	REQUESTED -> CANCELLED
//	SCHEDULED -> CANCELLED
//
// REQUESTED and SCHEDULED are the only states from which money is still at
// risk; COMPLETED and CANCELLED are terminal.
type SessionStatus string

const (
	SessionStatusRequested SessionStatus = "requested"
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusRequested, SessionStatusScheduled, SessionStatusCompleted, SessionStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next. All lifecycle writes are guarded by this check and, in the
// database, by a status-conditioned UPDATE.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionStatusRequested:
		return next == SessionStatusScheduled || next == SessionStatusCancelled
	case SessionStatusScheduled:
		return next == SessionStatusCompleted || next == SessionStatusCancelled
	default:
		return false
	}
}

// Tutor is the bookable side of a session. Rating and TotalReviews are
// aggregates recomputed from session reviews.
type Tutor struct {
	ID           uuid.UUID
	Name         string
	HourlyRate   Credits
	Rating       float64
	TotalReviews int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TutoringSession is the booking unit. Price is locked in at request time
// from the tutor's then-current hourly rate and is never recomputed.
type TutoringSession struct {
	ID        uuid.UUID
	StudentID uuid.UUID
	TutorID   uuid.UUID
	Subject   string
	StartTime time.Time
	EndTime   time.Time
	Status    SessionStatus
	Price     Credits
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EstimatePrice computes the cost of a session of the given length at the
// given hourly rate, quantized to the nearest hundredth of a credit
// (half-up). This is the price-quantization rule: the result is stored as
// the session's locked price.
func EstimatePrice(hourlyRate Credits, duration time.Duration) Credits {
	if hourlyRate <= 0 || duration <= 0 {
		return 0
	}
	minutes := int64(duration / time.Minute)
	// hourlyRate is already in hundredths, so this rounds to a hundredth.
	return Credits((int64(hourlyRate)*minutes + 30) / 60)
}

// CreateSessionParams contains the validated inputs of a booking request.
type CreateSessionParams struct {
	StudentID uuid.UUID
	TutorID   uuid.UUID
	Subject   string
	StartTime time.Time
	Duration  time.Duration
	Notes     string
}
