package tutor

import (
	"context"

	"github.com/pkg/errors"

	"github.com/clare-ai/clare/ai/core/embedding"
	"github.com/clare-ai/clare/store"
)

// KnowledgeSearcher is similarity search over the indexed course material.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

type storeSearcher struct {
	embedder embedding.Service
	store    *store.Store
}

// NewKnowledgeSearcher creates a KnowledgeSearcher over the course chunk
// store, embedding queries with the configured embedding service.
func NewKnowledgeSearcher(embedder embedding.Service, st *store.Store) KnowledgeSearcher {
	return &storeSearcher{embedder: embedder, store: st}
}

func (s *storeSearcher) Search(ctx context.Context, query string, k int) ([]Document, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}

	hits, err := s.store.ChunkVectorSearch(ctx, &store.ChunkVectorSearchOptions{
		Vector: vector,
		Limit:  k,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search course chunks")
	}

	docs := make([]Document, 0, len(hits))
	for _, hit := range hits {
		docs = append(docs, Document{
			Content:  hit.Chunk.Content,
			SourceID: hit.Chunk.UID,
		})
	}
	return docs, nil
}
