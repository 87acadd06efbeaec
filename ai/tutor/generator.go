package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/clare-ai/clare/ai/core/llm"
	"github.com/clare-ai/clare/ai/internal/strutil"
)

// maxContextChars caps each document's contribution to a prompt.
const maxContextChars = 4000

// noContextAnswer is returned without a model call when no usable context
// survived retrieval and fallback. Fabricating an answer here is the one
// thing the generator must never do.
const noContextAnswer = "I couldn't find anything in the course materials or on the web to answer that. Could you rephrase the question, or ask about a specific course topic?"

// AnswerGenerator produces a candidate answer from question and context.
type AnswerGenerator interface {
	Generate(ctx context.Context, question string, docs []Document, style *LearnerStyle) (string, error)
}

type answerGenerator struct {
	llm llm.Service
}

// NewAnswerGenerator creates an AnswerGenerator.
func NewAnswerGenerator(llmService llm.Service) AnswerGenerator {
	return &answerGenerator{llm: llmService}
}

func (g *answerGenerator) Generate(ctx context.Context, question string, docs []Document, style *LearnerStyle) (string, error) {
	if len(docs) == 0 {
		return noContextAnswer, nil
	}

	prompt := fmt.Sprintf(generatorPrompt, styleHint(style), formatContext(docs), question)
	answer, _, err := g.llm.Chat(ctx, []llm.Message{llm.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func styleHint(style *LearnerStyle) string {
	if style == nil {
		return ""
	}
	var hints []string
	if style.AIStrategy != "" {
		hints = append(hints, "Teaching approach for this student: "+style.AIStrategy)
	}
	if style.CognitiveProfile != "" {
		hints = append(hints, "Student's learning characteristics: "+style.CognitiveProfile)
	}
	if len(hints) == 0 {
		return ""
	}
	return "\nAdapt tone, depth, and scaffolding to this student.\n" + strings.Join(hints, "\n")
}

func formatContext(docs []Document) string {
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, strutil.Truncate(doc.Content, maxContextChars))
	}
	return b.String()
}
