package tutor

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/clare-ai/clare/ai/core/llm"
)

// RelevanceGrader filters documents to those relevant to the question.
type RelevanceGrader interface {
	Grade(ctx context.Context, question string, docs []Document) ([]Document, error)
}

type relevanceGrader struct {
	llm llm.Service
	// maxConcurrent bounds parallel judgment calls.
	maxConcurrent int
}

// NewRelevanceGrader creates a RelevanceGrader backed by a classification
// model.
func NewRelevanceGrader(llmService llm.Service) RelevanceGrader {
	return &relevanceGrader{llm: llmService, maxConcurrent: 4}
}

// Grade judges each document independently and concurrently, then filters
// preserving the input order. A failed judgment marks its document
// irrelevant: an unverifiable document must not reach the generator. An
// all-irrelevant outcome is a valid result, not an error.
func (g *relevanceGrader) Grade(ctx context.Context, question string, docs []Document) ([]Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	verdicts := make([]bool, len(docs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.maxConcurrent)

	for i, doc := range docs {
		eg.Go(func() error {
			var out struct {
				Relevant bool `json:"relevant"`
			}
			err := g.llm.ClassifyJSON(gctx, []llm.Message{
				llm.UserMessage(fmt.Sprintf(graderPrompt, question, doc.Content)),
			}, &out)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("grader: judgment failed, treating as irrelevant",
					"source_id", doc.SourceID,
					"error", err,
				)
				return nil
			}
			verdicts[i] = out.Relevant
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	graded := make([]Document, 0, len(docs))
	for i, doc := range docs {
		relevant := verdicts[i]
		doc.Relevant = &relevant
		if relevant {
			graded = append(graded, doc)
		}
	}

	slog.Debug("grader: documents graded", "candidates", len(docs), "relevant", len(graded))
	return graded, nil
}
