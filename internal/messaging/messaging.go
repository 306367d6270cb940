// Package messaging opens conversation channels between students and
// tutors when a booking is requested. Delivery is a collaborator concern:
// callers log and swallow failures, a booking never fails because the
// conversation could not be opened.
package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ConversationParams describe the booking a conversation is opened for.
type ConversationParams struct {
	SessionID   uuid.UUID
	StudentID   uuid.UUID
	StudentName string
	TutorID     uuid.UUID
	TutorName   string
	Subject     string
	StartTime   time.Time
}

// Service defines the conversation-opening operation.
//
// Implementations:
// - ConsoleService: logs the opener, for development and tests
type Service interface {
	// OpenConversation creates a message thread between the student and
	// the tutor, seeded with an opener describing the requested session.
	OpenConversation(ctx context.Context, params ConversationParams) error
}
