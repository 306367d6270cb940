// Package tutorai defines the AI tutoring provider interface.
//
// The provider is a metered collaborator: every call that reaches it has
// already passed the quota gate, and the caller commits the usage counter
// only after the provider returns successfully.
package tutorai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Provider defines the interface for AI-powered tutoring features.
type Provider interface {
	// Chat answers a student's study question.
	Chat(ctx context.Context, params ChatParams) (*ChatResult, error)

	// GenerateHomework produces a practice problem set for a subject.
	GenerateHomework(ctx context.Context, params HomeworkParams) (*HomeworkResult, error)
}

// ChatParams contains parameters for a chat turn.
type ChatParams struct {
	StudentID uuid.UUID // Student ID for usage tracking
	Subject   string    // Optional subject the question relates to
	Question  string    // The student's question
	History   []Turn    // Prior turns of the conversation, oldest first
}

// Turn is a single prior exchange in a chat conversation.
type Turn struct {
	Role    string // "student" or "tutor"
	Content string
}

// ChatResult contains the tutor's reply.
type ChatResult struct {
	Answer string    // The reply text
	Usage  UsageInfo // Token usage information
}

// HomeworkParams contains parameters for homework generation.
type HomeworkParams struct {
	StudentID  uuid.UUID // Student ID for usage tracking
	Subject    string    // Subject to generate problems for
	Topic      string    // Optional narrower topic within the subject
	GradeLevel string    // Optional grade level (e.g. "8th grade")
	Count      int       // Number of problems to generate
}

// HomeworkResult contains a generated problem set.
type HomeworkResult struct {
	Title    string    // Worksheet title
	Problems []Problem // Generated problems
	Usage    UsageInfo // Token usage information
}

// Problem is a single generated practice problem.
type Problem struct {
	Prompt string // The problem statement
	Answer string // The expected answer
	Hint   string // Optional hint for the student
}

// UsageInfo tracks provider usage for monitoring.
type UsageInfo struct {
	Model        string        // AI model used
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	Duration     time.Duration // Request duration
}

// ProviderConfig contains common configuration for providers.
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for provider operations.
var (
	// ErrRateLimit indicates the provider's rate limit has been exceeded
	ErrRateLimit = errors.New("ai provider rate limit exceeded")

	// ErrInvalidInput indicates the request content was rejected
	ErrInvalidInput = errors.New("invalid request content")

	// ErrTimeout indicates the request timed out
	ErrTimeout = errors.New("ai request timed out")

	// ErrUnavailable indicates the provider is temporarily unavailable
	ErrUnavailable = errors.New("ai service temporarily unavailable")

	// ErrUnauthorized indicates invalid API credentials
	ErrUnauthorized = errors.New("ai provider authentication failed")
)

// IsRetryable returns true if the error is transient and can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnavailable)
}

// WrapError wraps an error with context about the provider operation.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("tutorai %s: %w", operation, err)
}
