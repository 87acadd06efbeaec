// Package v1 implements the HTTP API.
package v1

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/clare-ai/clare/ai"
	"github.com/clare-ai/clare/ai/core/embedding"
	"github.com/clare-ai/clare/ai/core/llm"
	"github.com/clare-ai/clare/ai/core/websearch"
	"github.com/clare-ai/clare/ai/learner"
	"github.com/clare-ai/clare/ai/metrics"
	"github.com/clare-ai/clare/ai/tutor"
	"github.com/clare-ai/clare/internal/profile"
	"github.com/clare-ai/clare/store"
)

// APIV1Service wires the QA pipeline and learner profiles behind the HTTP
// API.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Metrics *metrics.PrometheusExporter

	orchestrator *tutor.Orchestrator
	analyzer     *learner.Analyzer
	embedder     embedding.Service
}

// NewAPIV1Service builds the AI services from the profile and assembles the
// API surface. AI must be enabled; the server refuses to start without it.
func NewAPIV1Service(instanceProfile *profile.Profile, st *store.Store, exporter *metrics.PrometheusExporter) (*APIV1Service, error) {
	aiConfig := ai.NewConfigFromProfile(instanceProfile)
	if !aiConfig.Enabled {
		return nil, errors.New("AI is not configured; set CLARE_AI_LLM_API_KEY")
	}
	if err := aiConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI configuration")
	}

	onStats := func(model string, stats *llm.CallStats) {
		exporter.RecordLLMTokens(model, "prompt", stats.PromptTokens)
		exporter.RecordLLMTokens(model, "completion", stats.CompletionTokens)
		exporter.RecordLLMLatency(model, time.Duration(stats.TotalDurationMs)*time.Millisecond)
	}

	llmService, err := llm.NewService(&llm.Config{
		Provider:    aiConfig.LLM.Provider,
		Model:       aiConfig.LLM.Model,
		APIKey:      aiConfig.LLM.APIKey,
		BaseURL:     aiConfig.LLM.BaseURL,
		MaxTokens:   aiConfig.LLM.MaxTokens,
		Temperature: aiConfig.LLM.Temperature,
		Timeout:     aiConfig.LLM.Timeout,
		OnStats:     onStats,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create LLM service")
	}

	fastLLM, err := llm.NewService(&llm.Config{
		Provider:    aiConfig.FastLLM.Provider,
		Model:       aiConfig.FastLLM.Model,
		APIKey:      aiConfig.FastLLM.APIKey,
		BaseURL:     aiConfig.FastLLM.BaseURL,
		MaxTokens:   aiConfig.FastLLM.MaxTokens,
		Temperature: aiConfig.FastLLM.Temperature,
		Timeout:     aiConfig.FastLLM.Timeout,
		OnStats:     onStats,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create classification LLM service")
	}

	embedder, err := embedding.NewService(&embedding.Config{
		Provider:   aiConfig.Embedding.Provider,
		Model:      aiConfig.Embedding.Model,
		APIKey:     aiConfig.Embedding.APIKey,
		BaseURL:    aiConfig.Embedding.BaseURL,
		Dimensions: aiConfig.Embedding.Dimensions,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedding service")
	}

	webService := websearch.NewService(&websearch.Config{
		APIKey:     aiConfig.WebSearch.APIKey,
		BaseURL:    aiConfig.WebSearch.BaseURL,
		MaxResults: aiConfig.WebSearch.MaxResults,
	})
	if !webService.IsEnabled() {
		slog.Warn("web search is not configured; fallback searches will return nothing")
	}

	searcher := tutor.NewKnowledgeSearcher(embedder, st)
	orchestrator := tutor.NewOrchestrator(tutor.Deps{
		Router:    tutor.NewQueryRouter(fastLLM),
		Retriever: tutor.NewDocumentRetriever(llmService, searcher, tutor.RetrieverConfig{QueryVariants: aiConfig.Tutor.QueryVariants}),
		Grader:    tutor.NewRelevanceGrader(fastLLM),
		Web:       tutor.NewWebSearcher(webService),
		Generator: tutor.NewAnswerGenerator(llmService),
		Checker:   tutor.NewHallucinationChecker(fastLLM),
		Verifier:  tutor.NewAnswerVerifier(fastLLM),
		Rewriter:  tutor.NewQueryRewriter(llmService),
		ChitChat:  tutor.NewChitChatHandler(llmService),
		Metrics:   exporter,
	}, tutor.OrchestratorConfig{MaxRetries: aiConfig.Tutor.MaxRetries})

	// Warm up the chat connection in the background; best effort.
	go func() {
		warmupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		llmService.Warmup(warmupCtx)
	}()

	return &APIV1Service{
		Profile:      instanceProfile,
		Store:        st,
		Metrics:      exporter,
		orchestrator: orchestrator,
		analyzer:     learner.NewAnalyzer(fastLLM, st, exporter),
		embedder:     embedder,
	}, nil
}

// RegisterRoutes attaches the API routes to the echo group.
func (s *APIV1Service) RegisterRoutes(g *echo.Group) {
	g.POST("/ask", s.Ask)

	g.GET("/students/:studentId/profile", s.GetLearnerProfile)
	g.POST("/students/:studentId/evidence", s.SubmitEvidence)
	g.GET("/students/:studentId/messages", s.ListChatHistory)
	g.POST("/profiles/refresh", s.RefreshProfiles)

	g.POST("/courses/:courseId/chunks", s.IngestChunks)
	g.DELETE("/courses/:courseId/chunks", s.DeleteChunks)
}
