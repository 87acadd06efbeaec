package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clare-ai/clare/ai/core/llm"
)

// QueryRewriter reformulates the working question after a failed attempt.
type QueryRewriter interface {
	Rewrite(ctx context.Context, original, working string, reason FailureReason) (string, error)
}

type queryRewriter struct {
	llm llm.Service
}

// NewQueryRewriter creates a QueryRewriter.
func NewQueryRewriter(llmService llm.Service) QueryRewriter {
	return &queryRewriter{llm: llmService}
}

// Rewrite branches on the failure reason: empty retrieval gets a simpler,
// broader question so the next search can match anything at all, while a
// rejected answer gets a more specific one. The two directions must never
// swap, otherwise empty retrieval spirals into ever-narrower queries.
func (r *queryRewriter) Rewrite(ctx context.Context, original, working string, reason FailureReason) (string, error) {
	var prompt string
	switch reason {
	case FailureRetrievalEmpty:
		prompt = fmt.Sprintf(rewriteSimplifyPrompt, original, working)
	case FailureNotGrounded:
		prompt = fmt.Sprintf(rewriteSpecificPrompt, "the answer was not supported by the retrieved material", original, working)
	default:
		prompt = fmt.Sprintf(rewriteSpecificPrompt, "the answer did not address the question", original, working)
	}

	rewritten, _, err := r.llm.Chat(ctx, []llm.Message{llm.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("query rewrite failed: %w", err)
	}

	rewritten = strings.TrimSpace(strings.Trim(strings.TrimSpace(rewritten), `"`))
	if rewritten == "" {
		// A blank rewrite would violate the non-empty working question
		// invariant; keep the current question and let the budget bound
		// the loop.
		slog.Warn("rewriter: model returned empty rewrite, keeping working question")
		return working, nil
	}

	slog.Debug("rewriter: question rewritten", "reason", reason, "rewritten", rewritten)
	return rewritten, nil
}
