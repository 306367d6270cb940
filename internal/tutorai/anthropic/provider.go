package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tutorhive/tutorhive/internal/tutorai"
)

const (
	// APIBaseURL is the base URL for the Anthropic API
	APIBaseURL = "https://api.anthropic.com/v1/messages"

	// APIVersion is the Anthropic API version
	APIVersion = "2023-06-01"

	// DefaultModel is the default Claude model to use
	DefaultModel = "claude-3-5-sonnet-20241022"

	// MaxQuestionLength bounds a single chat question in bytes
	MaxQuestionLength = 8 * 1024

	// MaxHomeworkProblems bounds how many problems one request may ask for
	MaxHomeworkProblems = 20
)

// Config contains configuration for the Anthropic provider
type Config struct {
	APIKey         string
	Model          string
	ProviderConfig tutorai.ProviderConfig
}

// Provider implements the tutorai.Provider interface using Anthropic's Claude API
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Anthropic provider
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	// Set defaults
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.ProviderConfig.MaxRetries == 0 {
		config.ProviderConfig.MaxRetries = 3
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 60 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		logger: logger,
	}, nil
}

// Chat answers a student's question using Claude
func (p *Provider) Chat(ctx context.Context, params tutorai.ChatParams) (*tutorai.ChatResult, error) {
	startTime := time.Now()

	if params.Question == "" {
		return nil, tutorai.WrapError("chat", tutorai.ErrInvalidInput)
	}
	if len(params.Question) > MaxQuestionLength {
		return nil, tutorai.WrapError("chat",
			fmt.Errorf("%w: question length %d exceeds maximum %d", tutorai.ErrInvalidInput, len(params.Question), MaxQuestionLength))
	}

	messages := make([]apiMessage, 0, len(params.History)+1)
	for _, turn := range params.History {
		role := "user"
		if turn.Role == "tutor" {
			role = "assistant"
		}
		messages = append(messages, apiMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, apiMessage{Role: "user", Content: params.Question})

	reqBody := apiRequest{
		Model:     p.config.Model,
		MaxTokens: 2048,
		System:    buildChatSystemPrompt(params.Subject),
		Messages:  messages,
	}

	resp, err := p.send(ctx, reqBody)
	if err != nil {
		return nil, tutorai.WrapError("chat", err)
	}

	answer := textContent(resp)
	if answer == "" {
		return nil, tutorai.WrapError("chat", fmt.Errorf("empty response content"))
	}

	return &tutorai.ChatResult{
		Answer: answer,
		Usage: tutorai.UsageInfo{
			Model:        p.config.Model,
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			Duration:     time.Since(startTime),
		},
	}, nil
}

// GenerateHomework produces a practice problem set using Claude
func (p *Provider) GenerateHomework(ctx context.Context, params tutorai.HomeworkParams) (*tutorai.HomeworkResult, error) {
	startTime := time.Now()

	if params.Subject == "" {
		return nil, tutorai.WrapError("generate homework", tutorai.ErrInvalidInput)
	}
	count := params.Count
	if count <= 0 {
		count = 5
	}
	if count > MaxHomeworkProblems {
		return nil, tutorai.WrapError("generate homework",
			fmt.Errorf("%w: %d problems requested, maximum is %d", tutorai.ErrInvalidInput, count, MaxHomeworkProblems))
	}

	reqBody := apiRequest{
		Model:     p.config.Model,
		MaxTokens: 4096,
		Messages: []apiMessage{
			{Role: "user", Content: buildHomeworkPrompt(params.Subject, params.Topic, params.GradeLevel, count)},
		},
	}

	resp, err := p.send(ctx, reqBody)
	if err != nil {
		return nil, tutorai.WrapError("generate homework", err)
	}

	result, err := parseHomeworkResponse(resp)
	if err != nil {
		return nil, tutorai.WrapError("parse response", err)
	}

	result.Usage = tutorai.UsageInfo{
		Model:        p.config.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Duration:     time.Since(startTime),
	}
	return result, nil
}

// send marshals the request body and executes it with retry
func (p *Provider) send(ctx context.Context, reqBody apiRequest) (*apiResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return p.executeWithRetry(ctx, bodyBytes)
}

// executeWithRetry executes the request with exponential backoff retry
func (p *Provider) executeWithRetry(ctx context.Context, body []byte) (*apiResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= p.config.ProviderConfig.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", APIBaseURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", p.config.APIKey)
		req.Header.Set("anthropic-version", APIVersion)

		resp, err := p.executeRequest(req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		// Only retry on retryable errors
		if !tutorai.IsRetryable(err) {
			return nil, err
		}

		// Don't retry if we've exhausted attempts
		if attempt >= p.config.ProviderConfig.MaxRetries {
			break
		}

		// Exponential backoff: base * 2^(attempt-1)
		delay := p.config.ProviderConfig.RetryBaseDelay * time.Duration(1<<(attempt-1))
		p.logger.Info("Retrying AI request", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
			// Continue to next attempt
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// executeRequest executes a single HTTP request
func (p *Provider) executeRequest(req *http.Request) (*apiResponse, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		// Network errors are typically retryable
		return nil, tutorai.ErrUnavailable
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.mapHTTPError(resp.StatusCode, bodyBytes)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &apiResp, nil
}

// mapHTTPError maps HTTP status codes to provider errors
func (p *Provider) mapHTTPError(statusCode int, body []byte) error {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	switch statusCode {
	case http.StatusUnauthorized:
		return tutorai.ErrUnauthorized
	case http.StatusTooManyRequests:
		return tutorai.ErrRateLimit
	case http.StatusRequestTimeout:
		return tutorai.ErrTimeout
	case http.StatusBadRequest:
		if errResp.Error.Type == "invalid_request_error" {
			return tutorai.ErrInvalidInput
		}
		return fmt.Errorf("bad request: %s", errResp.Error.Message)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return tutorai.ErrUnavailable
	default:
		return fmt.Errorf("API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}

// textContent extracts the first text block from a response
func textContent(resp *apiResponse) string {
	for _, content := range resp.Content {
		if content.Type == "text" {
			return content.Text
		}
	}
	return ""
}

// parseHomeworkResponse parses the JSON worksheet Claude returns
func parseHomeworkResponse(resp *apiResponse) (*tutorai.HomeworkResult, error) {
	text := textContent(resp)
	if text == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	var output homeworkOutput
	if err := json.Unmarshal([]byte(text), &output); err != nil {
		return nil, fmt.Errorf("parse homework output: %w", err)
	}
	if len(output.Problems) == 0 {
		return nil, fmt.Errorf("homework output contains no problems")
	}

	result := &tutorai.HomeworkResult{
		Title:    output.Title,
		Problems: make([]tutorai.Problem, 0, len(output.Problems)),
	}
	for _, prob := range output.Problems {
		result.Problems = append(result.Problems, tutorai.Problem{
			Prompt: prob.Prompt,
			Answer: prob.Answer,
			Hint:   prob.Hint,
		})
	}
	return result, nil
}

// API request/response types

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []apiContentOutput `json:"content"`
	Model   string             `json:"model"`
	Usage   apiUsage           `json:"usage"`
}

type apiContentOutput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiErrorResponse struct {
	Type  string   `json:"type"`
	Error apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// homeworkOutput represents the JSON structure returned by Claude
type homeworkOutput struct {
	Title    string          `json:"title"`
	Problems []outputProblem `json:"problems"`
}

type outputProblem struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
	Hint   string `json:"hint"`
}
