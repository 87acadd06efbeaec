package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/clare-ai/clare/ai/core/llm"
)

// rrfSmoothing is the smoothing constant of reciprocal rank fusion. Larger
// values flatten the score difference between adjacent ranks.
const rrfSmoothing = 60

// DocumentRetriever turns a question into a fused, diversified document set.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, question string) ([]Document, error)
}

// RetrieverConfig tunes multi-query retrieval.
type RetrieverConfig struct {
	// QueryVariants is the number of paraphrased queries, original included.
	QueryVariants int
	// SearchK is the per-variant similarity search depth.
	SearchK int
	// MaxDocuments caps the final document set.
	MaxDocuments int
	// MMRLambda in [0,1] trades fused score (1) against diversity (0).
	MMRLambda float64
}

type documentRetriever struct {
	llm      llm.Service
	searcher KnowledgeSearcher
	cfg      RetrieverConfig
}

// NewDocumentRetriever creates a DocumentRetriever.
func NewDocumentRetriever(llmService llm.Service, searcher KnowledgeSearcher, cfg RetrieverConfig) DocumentRetriever {
	if cfg.QueryVariants < 1 {
		cfg.QueryVariants = 4
	}
	if cfg.SearchK <= 0 {
		cfg.SearchK = 10
	}
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = 8
	}
	if cfg.MMRLambda <= 0 || cfg.MMRLambda > 1 {
		cfg.MMRLambda = 0.5
	}
	return &documentRetriever{llm: llmService, searcher: searcher, cfg: cfg}
}

// Retrieve expands the question into variants, searches each variant
// concurrently, fuses the ranked lists, and diversifies the result.
// A search backend failure yields an empty set, never an error: empty
// retrieval is a routing signal, not a fault.
func (r *documentRetriever) Retrieve(ctx context.Context, question string) ([]Document, error) {
	variants := r.expandQuery(ctx, question)

	lists := make([][]Document, len(variants))
	g, gctx := errgroup.WithContext(ctx)
	for i, variant := range variants {
		g.Go(func() error {
			docs, err := r.searcher.Search(gctx, variant, r.cfg.SearchK)
			if err != nil {
				// One failed variant degrades recall, it does not abort
				// the pass. The remaining lists still fuse.
				slog.Warn("retriever: variant search failed", "variant", i, "error", err)
				return nil
			}
			lists[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fused := rrfFuse(lists)
	selected := mmrSelect(fused, r.cfg.MMRLambda, r.cfg.MaxDocuments)

	docs := make([]Document, len(selected))
	for i, f := range selected {
		docs[i] = f.doc
		docs[i].RetrievalRank = i + 1
	}

	slog.Debug("retriever: retrieval pass complete",
		"variants", len(variants),
		"fused", len(fused),
		"selected", len(docs),
	)
	return docs, nil
}

// expandQuery asks the model for paraphrased search queries. The original
// question is always the first variant; an expansion failure degrades to
// single-query retrieval.
func (r *documentRetriever) expandQuery(ctx context.Context, question string) []string {
	variants := []string{question}
	extra := r.cfg.QueryVariants - 1
	if extra <= 0 {
		return variants
	}

	content, _, err := r.llm.Chat(ctx, []llm.Message{
		llm.UserMessage(fmt.Sprintf(variantPrompt, extra, question)),
	})
	if err != nil {
		slog.Warn("retriever: query expansion failed, using original only", "error", err)
		return variants
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, question) {
			continue
		}
		variants = append(variants, line)
		if len(variants) == r.cfg.QueryVariants {
			break
		}
	}
	return variants
}

type fusedDoc struct {
	doc   Document
	score float64
}

// rrfFuse combines ranked lists with reciprocal rank fusion: each document
// scores the sum of 1/(rank+C) over the lists it appears in. Duplicates are
// identified by SourceID. Ties break on SourceID so repeated runs over
// identical lists produce identical rankings.
func rrfFuse(lists [][]Document) []fusedDoc {
	scores := map[string]float64{}
	byID := map[string]Document{}

	for _, list := range lists {
		for rank, doc := range list {
			scores[doc.SourceID] += 1.0 / float64(rank+1+rrfSmoothing)
			if _, seen := byID[doc.SourceID]; !seen {
				byID[doc.SourceID] = doc
			}
		}
	}

	fused := make([]fusedDoc, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, fusedDoc{doc: byID[id], score: score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].doc.SourceID < fused[j].doc.SourceID
	})
	return fused
}

// mmrSelect applies maximal marginal relevance over the fused list: each
// pick maximizes lambda*fusedScore - (1-lambda)*maxSimilarityToSelected.
// Similarity is lexical cosine over term sets, which keeps selection
// deterministic and avoids extra embedding calls. Ties keep fused order.
func mmrSelect(fused []fusedDoc, lambda float64, max int) []fusedDoc {
	if max <= 0 {
		return nil
	}
	if len(fused) <= 1 {
		return fused
	}

	terms := make([]map[string]struct{}, len(fused))
	for i, f := range fused {
		terms[i] = termSet(f.doc.Content)
	}

	selected := make([]fusedDoc, 0, max)
	selectedTerms := make([]map[string]struct{}, 0, max)
	remaining := make([]int, len(fused))
	for i := range fused {
		remaining[i] = i
	}

	for len(selected) < max && len(remaining) > 0 {
		bestPos, bestScore := 0, math.Inf(-1)
		for pos, idx := range remaining {
			maxSim := 0.0
			for _, sel := range selectedTerms {
				if sim := cosineOverlap(terms[idx], sel); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*fused[idx].score - (1-lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}

		idx := remaining[bestPos]
		selected = append(selected, fused[idx])
		selectedTerms = append(selectedTerms, terms[idx])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}
	return selected
}

func termSet(content string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, word := range strings.Fields(strings.ToLower(content)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if len(word) > 2 {
			set[word] = struct{}{}
		}
	}
	return set
}

func cosineOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for term := range a {
		if _, ok := b[term]; ok {
			shared++
		}
	}
	return float64(shared) / math.Sqrt(float64(len(a))*float64(len(b)))
}
