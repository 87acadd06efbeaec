package tutor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docList(ids ...string) []Document {
	docs := make([]Document, len(ids))
	for i, id := range ids {
		docs[i] = Document{SourceID: id, Content: "content of " + id}
	}
	return docs
}

func TestRRFFuseRanksSharedDocumentsFirst(t *testing.T) {
	lists := [][]Document{
		docList("a", "b", "c"),
		docList("b", "d"),
		docList("b", "a"),
	}

	fused := rrfFuse(lists)
	require.Len(t, fused, 4)
	// b appears in all three lists at high ranks.
	assert.Equal(t, "b", fused[0].doc.SourceID)
	assert.Equal(t, "a", fused[1].doc.SourceID)
}

func TestRRFFuseDeterministic(t *testing.T) {
	lists := [][]Document{
		docList("x", "y", "z"),
		docList("z", "y", "x"),
	}

	first := rrfFuse(lists)
	for range 10 {
		again := rrfFuse(lists)
		require.Len(t, again, len(first))
		for i := range first {
			assert.Equal(t, first[i].doc.SourceID, again[i].doc.SourceID)
			assert.InDelta(t, first[i].score, again[i].score, 1e-12)
		}
	}
}

func TestRRFFuseTieBreaksOnSourceID(t *testing.T) {
	// p and q hold identical ranks in every list, so their scores tie.
	lists := [][]Document{
		{{SourceID: "q"}, {SourceID: "p"}},
		{{SourceID: "p"}, {SourceID: "q"}},
	}

	fused := rrfFuse(lists)
	require.Len(t, fused, 2)
	assert.Equal(t, "p", fused[0].doc.SourceID)
	assert.Equal(t, "q", fused[1].doc.SourceID)
}

func TestMMRSelectPenalizesNearDuplicates(t *testing.T) {
	fused := []fusedDoc{
		{doc: Document{SourceID: "a", Content: "gradient descent optimizes model weights using loss derivatives"}, score: 0.05},
		{doc: Document{SourceID: "b", Content: "gradient descent optimizes model weights using loss derivatives today"}, score: 0.049},
		{doc: Document{SourceID: "c", Content: "transformers rely entirely upon attention mechanisms for sequence modeling"}, score: 0.03},
	}

	selected := mmrSelect(fused, 0.5, 2)
	require.Len(t, selected, 2)
	assert.Equal(t, "a", selected[0].doc.SourceID)
	// b is a near-duplicate of a; the diverse c wins the second slot.
	assert.Equal(t, "c", selected[1].doc.SourceID)
}

func TestMMRSelectCapsOutput(t *testing.T) {
	fused := []fusedDoc{
		{doc: Document{SourceID: "a", Content: "alpha"}, score: 3},
		{doc: Document{SourceID: "b", Content: "beta"}, score: 2},
		{doc: Document{SourceID: "c", Content: "gamma"}, score: 1},
	}

	assert.Len(t, mmrSelect(fused, 0.5, 2), 2)
	assert.Len(t, mmrSelect(fused, 0.5, 10), 3)
	assert.Empty(t, mmrSelect(nil, 0.5, 5))
}

func TestMMRSelectNonPositiveBudget(t *testing.T) {
	fused := []fusedDoc{
		{doc: Document{SourceID: "a", Content: "alpha"}, score: 3},
		{doc: Document{SourceID: "b", Content: "beta"}, score: 2},
	}

	assert.Nil(t, mmrSelect(fused, 0.5, 0))
	assert.Nil(t, mmrSelect(fused, 0.5, -1))
}

func TestCosineOverlap(t *testing.T) {
	a := termSet("gradient descent optimizes weights")
	b := termSet("gradient descent updates weights")
	c := termSet("completely unrelated sentence here")

	assert.Greater(t, cosineOverlap(a, b), cosineOverlap(a, c))
	assert.InDelta(t, 1.0, cosineOverlap(a, a), 1e-9)
	assert.Zero(t, cosineOverlap(a, map[string]struct{}{}))
}

func TestNewDocumentRetrieverDefaults(t *testing.T) {
	r := NewDocumentRetriever(nil, nil, RetrieverConfig{}).(*documentRetriever)
	assert.Equal(t, 4, r.cfg.QueryVariants)
	assert.Equal(t, 10, r.cfg.SearchK)
	assert.Equal(t, 8, r.cfg.MaxDocuments)
	assert.InDelta(t, 0.5, r.cfg.MMRLambda, 1e-9)
}
