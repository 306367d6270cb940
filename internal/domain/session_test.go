package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from SessionStatus
		to   SessionStatus
		want bool
	}{
		{name: "requested to scheduled", from: SessionStatusRequested, to: SessionStatusScheduled, want: true},
		{name: "requested to cancelled", from: SessionStatusRequested, to: SessionStatusCancelled, want: true},
		{name: "requested to completed skips confirmation", from: SessionStatusRequested, to: SessionStatusCompleted, want: false},
		{name: "scheduled to completed", from: SessionStatusScheduled, to: SessionStatusCompleted, want: true},
		{name: "scheduled to cancelled", from: SessionStatusScheduled, to: SessionStatusCancelled, want: true},
		{name: "scheduled back to requested", from: SessionStatusScheduled, to: SessionStatusRequested, want: false},
		{name: "completed is terminal", from: SessionStatusCompleted, to: SessionStatusCancelled, want: false},
		{name: "cancelled is terminal", from: SessionStatusCancelled, to: SessionStatusScheduled, want: false},
		{name: "double confirm", from: SessionStatusScheduled, to: SessionStatusScheduled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	assert.False(t, SessionStatusRequested.Terminal())
	assert.False(t, SessionStatusScheduled.Terminal())
	assert.True(t, SessionStatusCompleted.Terminal())
	assert.True(t, SessionStatusCancelled.Terminal())
}

func TestEstimatePrice(t *testing.T) {
	tests := []struct {
		name     string
		rate     Credits
		duration time.Duration
		want     Credits
	}{
		{name: "hour at 45/hr", rate: 4500, duration: time.Hour, want: 4500},
		{name: "half hour at 45/hr", rate: 4500, duration: 30 * time.Minute, want: 2250},
		{name: "90 minutes at 40/hr", rate: 4000, duration: 90 * time.Minute, want: 6000},
		{name: "45 minutes at 30/hr", rate: 3000, duration: 45 * time.Minute, want: 2250},
		{name: "rounds half up", rate: 1, duration: 30 * time.Minute, want: 1}, // 0.005 credits -> 0.01
		{name: "20 minutes at 50/hr", rate: 5000, duration: 20 * time.Minute, want: 1667},
		{name: "zero duration", rate: 4500, duration: 0, want: 0},
		{name: "zero rate", rate: 0, duration: time.Hour, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimatePrice(tt.rate, tt.duration))
		})
	}
}

func TestEstimatePriceIsLockedAtRequestTime(t *testing.T) {
	// The estimate is a pure function of the inputs the booking captured;
	// changing the tutor's live rate afterwards must not affect a stored
	// price. This is a documentation test of that property.
	price := EstimatePrice(4500, time.Hour)
	assert.Equal(t, Credits(4500), price)
	assert.Equal(t, Credits(6000), EstimatePrice(6000, time.Hour))
	assert.Equal(t, Credits(4500), price) // unchanged
}
