package ai

import (
	"errors"

	"github.com/clare-ai/clare/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	LLM       LLMConfig
	FastLLM   LLMConfig
	Embedding EmbeddingConfig
	WebSearch WebSearchConfig
	Tutor     TutorConfig
	Enabled   bool
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string // openai, deepseek, siliconflow, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
	Timeout     int     // seconds, default: 120
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// WebSearchConfig represents web search fallback configuration.
type WebSearchConfig struct {
	APIKey     string
	BaseURL    string
	MaxResults int
	Enabled    bool
}

// TutorConfig tunes the question-answering pipeline.
type TutorConfig struct {
	// MaxRetries bounds rewrite cycles per question.
	MaxRetries int

	// QueryVariants is the number of paraphrased queries per retrieval pass.
	QueryVariants int
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}

	if !cfg.Enabled {
		return cfg
	}

	cfg.LLM = LLMConfig{
		Provider:    p.LLMProvider,
		Model:       p.LLMModel,
		APIKey:      p.LLMAPIKey,
		BaseURL:     p.LLMBaseURL,
		MaxTokens:   2048,
		Temperature: 0.7,
		Timeout:     p.LLMTimeout,
	}

	// Classification calls (routing, grading, answer checking) run on a
	// lighter model when one is configured.
	cfg.FastLLM = cfg.LLM
	if p.FastLLMModel != "" {
		cfg.FastLLM.Model = p.FastLLMModel
	}
	cfg.FastLLM.Temperature = 0
	cfg.FastLLM.MaxTokens = 512

	cfg.Embedding = EmbeddingConfig{
		Provider:   p.EmbeddingProvider,
		Model:      p.EmbeddingModel,
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingBaseURL,
		Dimensions: p.EmbeddingDimensions,
	}

	cfg.WebSearch = WebSearchConfig{
		Enabled:    p.IsWebSearchEnabled(),
		APIKey:     p.WebSearchAPIKey,
		BaseURL:    p.WebSearchBaseURL,
		MaxResults: p.WebSearchMaxResults,
	}

	cfg.Tutor = TutorConfig{
		MaxRetries:    p.MaxRetries,
		QueryVariants: p.QueryVariants,
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}
	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}

	if c.Embedding.Provider == "" {
		return errors.New("embedding provider is required")
	}
	if c.Embedding.Provider != "ollama" && c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}

	if c.WebSearch.Enabled && c.WebSearch.BaseURL == "" {
		return errors.New("web search base URL is required when web search is enabled")
	}

	if c.Tutor.MaxRetries < 0 {
		return errors.New("tutor max retries must be non-negative")
	}

	return nil
}
