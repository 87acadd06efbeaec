package profile

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol).
	// All providers (openai, deepseek, siliconflow, ollama) use the same config.
	LLMProvider string // Provider identifier: openai, deepseek, siliconflow, ollama
	LLMAPIKey   string
	LLMBaseURL  string // Optional, has default per provider
	LLMModel    string
	LLMTimeout  int // LLM request timeout in seconds (default: 120)

	// Fast LLM used for classification-style calls (routing, grading,
	// checking). Falls back to the main LLM model when unset.
	FastLLMModel string

	// Embedding configuration
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Web search configuration
	WebSearchAPIKey     string
	WebSearchBaseURL    string
	WebSearchMaxResults int

	// Orchestration tuning
	MaxRetries    int // rewrite cycles per question (default: 2)
	QueryVariants int // paraphrased queries per retrieval (default: 4)

	// Server configuration
	Mode        string
	Addr        string
	Port        int
	DSN         string
	InstanceURL string
	Version     string
}

// Provider default configurations for the LLM.
// Used when CLARE_AI_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// IsWebSearchEnabled returns true if a web search API key is configured.
func (p *Profile) IsWebSearchEnabled() bool {
	return p.WebSearchAPIKey != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("CLARE_AI_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("CLARE_AI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("CLARE_AI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("CLARE_AI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("CLARE_AI_LLM_TIMEOUT_SECONDS", 120)
	p.FastLLMModel = getEnvOrDefault("CLARE_AI_LLM_FAST_MODEL", "")

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("unknown LLM provider, using default: openai", "provider", p.LLMProvider)
		p.LLMProvider = "openai"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.EmbeddingProvider = getEnvOrDefault("CLARE_AI_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingModel = getEnvOrDefault("CLARE_AI_EMBEDDING_MODEL", "text-embedding-3-large")
	p.EmbeddingAPIKey = getEnvOrDefault("CLARE_AI_EMBEDDING_API_KEY", p.LLMAPIKey)
	p.EmbeddingBaseURL = getEnvOrDefault("CLARE_AI_EMBEDDING_BASE_URL", "")
	p.EmbeddingDimensions = getEnvOrDefaultInt("CLARE_AI_EMBEDDING_DIMENSIONS", 1024)

	p.WebSearchAPIKey = getEnvOrDefault("CLARE_WEBSEARCH_API_KEY", "")
	p.WebSearchBaseURL = getEnvOrDefault("CLARE_WEBSEARCH_BASE_URL", "https://api.tavily.com")
	p.WebSearchMaxResults = getEnvOrDefaultInt("CLARE_WEBSEARCH_MAX_RESULTS", 5)

	p.MaxRetries = getEnvOrDefaultInt("CLARE_MAX_RETRIES", 2)
	p.QueryVariants = getEnvOrDefaultInt("CLARE_QUERY_VARIANTS", 4)
}

// Validate normalizes and checks the profile.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port: %d", p.Port)
	}
	if p.DSN == "" {
		return errors.New("database DSN is required (set CLARE_DSN or --dsn)")
	}
	if p.MaxRetries < 0 {
		return errors.Errorf("max retries must be non-negative, got %d", p.MaxRetries)
	}
	if p.QueryVariants < 1 {
		p.QueryVariants = 1
	}
	return nil
}
