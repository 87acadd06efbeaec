package tutor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clare-ai/clare/ai/core/llm"
)

// HallucinationChecker judges whether an answer is grounded in its context.
type HallucinationChecker interface {
	Grounded(ctx context.Context, answer string, docs []Document) (bool, error)
}

// AnswerVerifier judges whether an answer addresses the original question.
// Independent of grounding: an answer can be grounded yet off-target.
type AnswerVerifier interface {
	Addresses(ctx context.Context, question, answer string) (bool, error)
}

type hallucinationChecker struct {
	llm llm.Service
}

// NewHallucinationChecker creates a HallucinationChecker.
func NewHallucinationChecker(llmService llm.Service) HallucinationChecker {
	return &hallucinationChecker{llm: llmService}
}

// Grounded fails closed: a failed judgment call reports false rather than
// letting an unverified answer ship.
func (c *hallucinationChecker) Grounded(ctx context.Context, answer string, docs []Document) (bool, error) {
	if len(docs) == 0 {
		// Nothing to ground against.
		return false, nil
	}

	var out struct {
		Grounded bool `json:"grounded"`
	}
	err := c.llm.ClassifyJSON(ctx, []llm.Message{
		llm.UserMessage(fmt.Sprintf(groundingPrompt, formatContext(docs), answer)),
	}, &out)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		slog.Warn("checker: grounding judgment failed, treating as ungrounded", "error", err)
		return false, nil
	}
	return out.Grounded, nil
}

type answerVerifier struct {
	llm llm.Service
}

// NewAnswerVerifier creates an AnswerVerifier.
func NewAnswerVerifier(llmService llm.Service) AnswerVerifier {
	return &answerVerifier{llm: llmService}
}

// Addresses fails closed like the grounding check.
func (v *answerVerifier) Addresses(ctx context.Context, question, answer string) (bool, error) {
	var out struct {
		Addresses bool `json:"addresses"`
	}
	err := v.llm.ClassifyJSON(ctx, []llm.Message{
		llm.UserMessage(fmt.Sprintf(verifierPrompt, question, answer)),
	}, &out)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		slog.Warn("checker: verification judgment failed, treating as off-target", "error", err)
		return false, nil
	}
	return out.Addresses, nil
}
