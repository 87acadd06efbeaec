package tutor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroundedJudgment(t *testing.T) {
	checker := NewHallucinationChecker(&stubLLM{classify: classifyPayload(`{"grounded": true}`)})

	grounded, err := checker.Grounded(context.Background(), "answer", docList("a"))
	require.NoError(t, err)
	assert.True(t, grounded)
}

func TestGroundedFailsClosedOnCallError(t *testing.T) {
	checker := NewHallucinationChecker(&stubLLM{classify: classifyError(errors.New("model unavailable"))})

	grounded, err := checker.Grounded(context.Background(), "answer", docList("a"))
	require.NoError(t, err)
	assert.False(t, grounded)
}

func TestGroundedEmptyContextIsUngrounded(t *testing.T) {
	checker := NewHallucinationChecker(&stubLLM{classify: classifyError(errors.New("must not be called"))})

	grounded, err := checker.Grounded(context.Background(), "answer", nil)
	require.NoError(t, err)
	assert.False(t, grounded)
}

func TestGroundedPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker := NewHallucinationChecker(&stubLLM{classify: classifyError(context.Canceled)})

	_, err := checker.Grounded(ctx, "answer", docList("a"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestAddressesJudgment(t *testing.T) {
	verifier := NewAnswerVerifier(&stubLLM{classify: classifyPayload(`{"addresses": true}`)})

	addresses, err := verifier.Addresses(context.Background(), "question", "answer")
	require.NoError(t, err)
	assert.True(t, addresses)
}

func TestAddressesFailsClosedOnCallError(t *testing.T) {
	verifier := NewAnswerVerifier(&stubLLM{classify: classifyError(errors.New("model unavailable"))})

	addresses, err := verifier.Addresses(context.Background(), "question", "answer")
	require.NoError(t, err)
	assert.False(t, addresses)
}

func TestAddressesPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	verifier := NewAnswerVerifier(&stubLLM{classify: classifyError(context.Canceled)})

	_, err := verifier.Addresses(ctx, "question", "answer")
	require.ErrorIs(t, err, context.Canceled)
}
