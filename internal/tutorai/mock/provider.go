package mock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tutorhive/tutorhive/internal/tutorai"
)

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	ChatResponse     *tutorai.ChatResult
	ChatError        error
	HomeworkResponse *tutorai.HomeworkResult
	HomeworkError    error

	// Call tracking for testing
	ChatCalls     int
	HomeworkCalls int
}

// New creates a new mock provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// Chat returns a canned tutoring reply
func (p *Provider) Chat(ctx context.Context, params tutorai.ChatParams) (*tutorai.ChatResult, error) {
	p.ChatCalls++

	// If a custom response or error is set, use it
	if p.ChatError != nil {
		return nil, p.ChatError
	}
	if p.ChatResponse != nil {
		return p.ChatResponse, nil
	}

	subject := params.Subject
	if subject == "" {
		subject = "your question"
	}

	return &tutorai.ChatResult{
		Answer: fmt.Sprintf("Good question about %s! Let's break it down step by step. First, what do you already know about this? Start by writing down what the problem gives you and what it asks for.", subject),
		Usage: tutorai.UsageInfo{
			Model:        "mock-tutor-v1",
			InputTokens:  320,
			OutputTokens: 85,
			Duration:     150 * time.Millisecond,
		},
	}, nil
}

// GenerateHomework returns a canned problem set
func (p *Provider) GenerateHomework(ctx context.Context, params tutorai.HomeworkParams) (*tutorai.HomeworkResult, error) {
	p.HomeworkCalls++

	// If a custom response or error is set, use it
	if p.HomeworkError != nil {
		return nil, p.HomeworkError
	}
	if p.HomeworkResponse != nil {
		return p.HomeworkResponse, nil
	}

	count := params.Count
	if count <= 0 {
		count = 5
	}

	problems := make([]tutorai.Problem, 0, count)
	for i := 1; i <= count; i++ {
		problems = append(problems, tutorai.Problem{
			Prompt: fmt.Sprintf("Practice problem %d for %s: solve for x where %dx + %d = %d.", i, params.Subject, i, i*2, i*5),
			Answer: "x = 3",
			Hint:   "Move the constant to the other side first, then divide.",
		})
	}

	return &tutorai.HomeworkResult{
		Title:    fmt.Sprintf("%s Practice Set", params.Subject),
		Problems: problems,
		Usage: tutorai.UsageInfo{
			Model:        "mock-tutor-v1",
			InputTokens:  280,
			OutputTokens: 640,
			Duration:     200 * time.Millisecond,
		},
	}, nil
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.ChatCalls = 0
	p.HomeworkCalls = 0
	p.ChatResponse = nil
	p.ChatError = nil
	p.HomeworkResponse = nil
	p.HomeworkError = nil
}
