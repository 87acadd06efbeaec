// Package websearch provides live web lookup through a Tavily-compatible
// search API.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Snippet is a single normalized web search result.
type Snippet struct {
	Title   string
	URL     string
	Content string
}

// Service is the web search service interface.
type Service interface {
	// Search performs a web lookup. A disabled service returns an empty
	// slice without error.
	Search(ctx context.Context, query string) ([]Snippet, error)

	// IsEnabled returns whether the service is configured.
	IsEnabled() bool
}

// Config represents web search service configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	MaxResults int
	Depth      string // "basic" or "advanced"
}

type service struct {
	client     *http.Client
	apiKey     string
	baseURL    string
	maxResults int
	depth      string
}

// NewService creates a new web search Service.
func NewService(cfg *Config) Service {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	depth := cfg.Depth
	if depth == "" {
		depth = "advanced"
	}
	return &service{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxResults: maxResults,
		depth:      depth,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (s *service) IsEnabled() bool {
	return s.apiKey != ""
}

func (s *service) Search(ctx context.Context, query string) ([]Snippet, error) {
	if !s.IsEnabled() {
		return nil, nil
	}

	reqBody := map[string]any{
		"api_key":      s.apiKey,
		"query":        query,
		"max_results":  s.maxResults,
		"search_depth": s.depth,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // cleanup

	if resp.StatusCode != http.StatusOK {
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			return nil, fmt.Errorf("web search API error: HTTP %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("web search API error: HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var result struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode web search response: %w", err)
	}

	snippets := make([]Snippet, 0, len(result.Results))
	for _, r := range result.Results {
		if r.Content == "" {
			continue
		}
		snippets = append(snippets, Snippet{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
		})
	}
	return snippets, nil
}
