package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clare-ai/clare/ai/core/llm"
)

// gradeByContent scripts one verdict per document, keyed by a substring of
// the document content embedded in the judgment prompt.
func gradeByContent(verdicts map[string]bool, failOn string) func([]llm.Message, any) error {
	return func(messages []llm.Message, out any) error {
		prompt := messages[len(messages)-1].Content
		if failOn != "" && strings.Contains(prompt, failOn) {
			return errors.New("judgment call failed")
		}
		for key, relevant := range verdicts {
			if strings.Contains(prompt, key) {
				payload := `{"relevant": false}`
				if relevant {
					payload = `{"relevant": true}`
				}
				return json.Unmarshal([]byte(payload), out)
			}
		}
		return json.Unmarshal([]byte(`{"relevant": false}`), out)
	}
}

func TestGradeFiltersPreservingOrder(t *testing.T) {
	grader := NewRelevanceGrader(&stubLLM{classify: gradeByContent(map[string]bool{
		"doc-one":   true,
		"doc-two":   false,
		"doc-three": true,
	}, "")})

	docs := []Document{
		{SourceID: "1", Content: "doc-one"},
		{SourceID: "2", Content: "doc-two"},
		{SourceID: "3", Content: "doc-three"},
	}

	graded, err := grader.Grade(context.Background(), "question", docs)
	require.NoError(t, err)
	require.Len(t, graded, 2)
	assert.Equal(t, "1", graded[0].SourceID)
	assert.Equal(t, "3", graded[1].SourceID)
}

func TestGradeFailedJudgmentDropsDocument(t *testing.T) {
	grader := NewRelevanceGrader(&stubLLM{classify: gradeByContent(map[string]bool{
		"doc-one":   true,
		"doc-three": true,
	}, "doc-two")})

	docs := []Document{
		{SourceID: "1", Content: "doc-one"},
		{SourceID: "2", Content: "doc-two"},
		{SourceID: "3", Content: "doc-three"},
	}

	// The failed judgment removes only its own document; survivors keep
	// candidate order.
	graded, err := grader.Grade(context.Background(), "question", docs)
	require.NoError(t, err)
	require.Len(t, graded, 2)
	assert.Equal(t, "1", graded[0].SourceID)
	assert.Equal(t, "3", graded[1].SourceID)
}

func TestGradeAllJudgmentsFailedYieldsEmptyNotError(t *testing.T) {
	grader := NewRelevanceGrader(&stubLLM{classify: classifyError(errors.New("model unavailable"))})

	graded, err := grader.Grade(context.Background(), "question", docList("a", "b"))
	require.NoError(t, err)
	assert.Empty(t, graded)
}

func TestGradeEmptyInput(t *testing.T) {
	grader := NewRelevanceGrader(&stubLLM{classify: classifyError(errors.New("must not be called"))})

	graded, err := grader.Grade(context.Background(), "question", nil)
	require.NoError(t, err)
	assert.Nil(t, graded)
}

func TestGradePropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	grader := NewRelevanceGrader(&stubLLM{classify: classifyError(context.Canceled)})

	_, err := grader.Grade(ctx, "question", docList("a"))
	require.Error(t, err)
}
