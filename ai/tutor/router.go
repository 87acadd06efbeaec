package tutor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clare-ai/clare/ai/core/llm"
)

// RouteDecision is the router's output. Degraded marks a fallback
// classification after an unusable model response.
type RouteDecision struct {
	Route     Route
	Rationale string
	Degraded  bool
}

// QueryRouter classifies a question into an answering strategy.
type QueryRouter interface {
	Route(ctx context.Context, question string) (RouteDecision, error)
}

type queryRouter struct {
	llm llm.Service
}

// NewQueryRouter creates a QueryRouter backed by a classification model.
func NewQueryRouter(llmService llm.Service) QueryRouter {
	return &queryRouter{llm: llmService}
}

func (r *queryRouter) Route(ctx context.Context, question string) (RouteDecision, error) {
	var out struct {
		Route     string `json:"route"`
		Rationale string `json:"rationale"`
	}

	messages := []llm.Message{
		llm.SystemPrompt(routerPrompt),
		llm.UserMessage(fmt.Sprintf("Question: %s", question)),
	}

	err := r.llm.ClassifyJSON(ctx, messages, &out)
	if err != nil {
		if ctx.Err() != nil {
			return RouteDecision{}, ctx.Err()
		}
		// Retrieval is the safest default: it is retryable and feeds the
		// fallback chain, while a misrouted chitchat answer is terminal.
		slog.Warn("router: classification failed, defaulting to retrieval", "error", err)
		return RouteDecision{Route: RouteRetrieval, Degraded: true}, nil
	}

	route, ok := ParseRoute(out.Route)
	if !ok {
		slog.Warn("router: unparseable route label, defaulting to retrieval", "label", out.Route)
		return RouteDecision{Route: RouteRetrieval, Degraded: true}, nil
	}

	slog.Debug("router: question classified", "route", route, "rationale", out.Rationale)
	return RouteDecision{Route: route, Rationale: out.Rationale}, nil
}
