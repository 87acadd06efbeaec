package tutor

import (
	"context"
	"log/slog"

	"github.com/clare-ai/clare/ai/core/websearch"
)

// WebSearcher is the web lookup fallback, producing documents in the same
// shape as retrieval so the generator is indifferent to the source.
type WebSearcher interface {
	Search(ctx context.Context, question string) []Document
}

type webSearcher struct {
	service websearch.Service
}

// NewWebSearcher creates a WebSearcher over the configured search provider.
func NewWebSearcher(service websearch.Service) WebSearcher {
	return &webSearcher{service: service}
}

// Search normalizes web snippets into documents with the URL as SourceID.
// Provider errors and a disabled provider both yield an empty set; the
// generator handles missing context explicitly.
func (w *webSearcher) Search(ctx context.Context, question string) []Document {
	snippets, err := w.service.Search(ctx, question)
	if err != nil {
		slog.Warn("websearch: provider lookup failed", "error", err)
		return nil
	}

	docs := make([]Document, 0, len(snippets))
	for i, snippet := range snippets {
		docs = append(docs, Document{
			Content:       snippet.Content,
			SourceID:      snippet.URL,
			RetrievalRank: i + 1,
		})
	}
	return docs
}
