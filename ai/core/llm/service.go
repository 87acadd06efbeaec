package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// CallStats represents statistics for a single LLM call.
type CallStats struct {
	// PromptTokens is the number of tokens in the input prompt.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the generated response.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the sum of prompt and completion tokens.
	TotalTokens int `json:"total_tokens"`

	// TotalDurationMs is the total wall-clock time for the request.
	TotalDurationMs int64 `json:"total_duration_ms"`
}

// Service is the LLM service interface.
type Service interface {
	// Chat performs synchronous chat. Returns content, statistics, and error.
	Chat(ctx context.Context, messages []Message) (string, *CallStats, error)

	// ClassifyJSON performs a structured judgment call. The model is asked
	// for a JSON object response and the result is decoded into out.
	// A response that cannot be decoded returns ErrUnparseable.
	ClassifyJSON(ctx context.Context, messages []Message, out any) error

	// Warmup sends a lightweight ping request to establish and warm up the
	// LLM connection.
	Warmup(ctx context.Context)
}

// ErrUnparseable indicates the model returned output that does not decode
// into the requested structure. Callers apply their own defaults.
var ErrUnparseable = errors.New("unparseable model output")

// Config represents LLM service configuration.
type Config struct {
	Provider    string // openai, deepseek, siliconflow, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
	Timeout     int     // Request timeout in seconds (default: 120)

	// MaxCallsPerSecond bounds the client-side request rate. Zero disables
	// the limiter.
	MaxCallsPerSecond float64

	// OnStats, when set, receives per-call usage statistics. Must be fast
	// and non-blocking; it runs on the request path.
	OnStats func(model string, stats *CallStats)
}

type service struct {
	client      *openai.Client
	limiter     *rate.Limiter
	model       string
	provider    string
	maxTokens   int
	temperature float32
	timeout     int
	onStats     func(model string, stats *CallStats)
}

// transientRetries is the fixed per-call retry cap for timeouts and rate
// limits. Independent of any orchestration-level retry budget.
const transientRetries = 2

// NewService creates a new LLM Service.
func NewService(cfg *Config) (Service, error) {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	var limiter *rate.Limiter
	if cfg.MaxCallsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxCallsPerSecond), 1)
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		limiter:     limiter,
		model:       cfg.Model,
		provider:    cfg.Provider,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		onStats:     cfg.OnStats,
	}, nil
}

func (s *service) Chat(ctx context.Context, messages []Message) (string, *CallStats, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Messages:    convertMessages(messages),
	}
	return s.complete(ctx, req)
}

func (s *service) ClassifyJSON(ctx context.Context, messages []Message, out any) error {
	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: 0, // structured judgments must be as deterministic as the model allows
		Messages:    convertMessages(messages),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	content, _, err := s.complete(ctx, req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(extractJSON(content)), out); err != nil {
		slog.Warn("LLM: classification output did not decode",
			"model", s.model,
			"content_length", len(content),
			"error", err,
		)
		return fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return nil
}

// complete runs a chat completion with per-call timeout, client-side rate
// limiting, and a small retry loop for transient failures.
func (s *service) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, *CallStats, error) {
	var lastErr error
	for attempt := 0; attempt <= transientRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return "", nil, ctx.Err()
			case <-time.After(backoff):
			}
			slog.Debug("LLM: retrying transient failure",
				"model", s.model,
				"attempt", attempt,
				"error", lastErr,
			)
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return "", nil, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
		startTime := time.Now()
		resp, err := s.client.CreateChatCompletion(callCtx, req)
		cancel()

		if err != nil {
			lastErr = err
			if isTransient(err) && ctx.Err() == nil {
				continue
			}
			slog.Error("LLM: chat request failed", "model", s.model, "error", err)
			return "", nil, fmt.Errorf("LLM chat failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			slog.Warn("LLM: empty response", "model", s.model)
			return "", nil, fmt.Errorf("empty response from LLM")
		}

		totalDuration := time.Since(startTime)
		stats := &CallStats{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			TotalDurationMs:  totalDuration.Milliseconds(),
		}

		if s.onStats != nil {
			s.onStats(s.model, stats)
		}

		slog.Debug("LLM: chat response received",
			"model", s.model,
			"content_length", len(resp.Choices[0].Message.Content),
			"total_tokens", stats.TotalTokens,
			"duration_ms", stats.TotalDurationMs,
		)
		return resp.Choices[0].Message.Content, stats, nil
	}

	return "", nil, fmt.Errorf("LLM chat failed after %d retries: %w", transientRetries, lastErr)
}

func (s *service) Warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	startTime := time.Now()
	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   1,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hi"},
		},
	}
	_, err := s.client.CreateChatCompletion(warmupCtx, req)
	if err != nil {
		slog.Warn("LLM: warmup ping failed (service will still work, first request may be slower)",
			"provider", s.provider,
			"model", s.model,
			"error", err,
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
		return
	}
	slog.Info("LLM: connection warmed up",
		"provider", s.provider,
		"model", s.model,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
}

// isTransient reports whether an error is worth an immediate in-call retry.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"timeout",
		"deadline exceeded",
		"rate limit",
		"429",
		"connection reset",
		"connection refused",
		"temporary failure",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// extractJSON strips markdown code fences some models wrap around JSON-mode
// output.
func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		llmMessages[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return llmMessages
}

// newHTTPClient builds the shared transport. No client-level timeout: each
// call carries its own deadline via context.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}
