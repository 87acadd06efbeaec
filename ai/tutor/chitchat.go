package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/clare-ai/clare/ai/core/llm"
)

// ChitChatHandler answers conversational input and simple logistics lookups
// directly, without retrieval or answer checking.
type ChitChatHandler interface {
	Answer(ctx context.Context, question string) (string, error)
}

type chitChatHandler struct {
	llm   llm.Service
	facts string
}

// NewChitChatHandler creates a ChitChatHandler with the embedded course
// logistics facts.
func NewChitChatHandler(llmService llm.Service) ChitChatHandler {
	return &chitChatHandler{llm: llmService, facts: chitChatFacts}
}

// Answer has no fallback of its own: a generation failure here is fatal to
// the request.
func (h *chitChatHandler) Answer(ctx context.Context, question string) (string, error) {
	answer, _, err := h.llm.Chat(ctx, []llm.Message{
		llm.UserMessage(fmt.Sprintf(chitChatPrompt, h.facts, question)),
	})
	if err != nil {
		return "", fmt.Errorf("chitchat generation failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
