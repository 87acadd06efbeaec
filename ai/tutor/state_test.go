package tutor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoute(t *testing.T) {
	tests := []struct {
		label string
		want  Route
		ok    bool
	}{
		{"retrieval", RouteRetrieval, true},
		{"vectorstore", RouteRetrieval, true},
		{"websearch", RouteWebSearch, true},
		{"web_search", RouteWebSearch, true},
		{"chitchat", RouteChitChat, true},
		{"banana", RouteUnknown, false},
		{"", RouteUnknown, false},
	}

	for _, tt := range tests {
		got, ok := ParseRoute(tt.label)
		assert.Equal(t, tt.want, got, tt.label)
		assert.Equal(t, tt.ok, ok, tt.label)
	}
}

func TestTransitionsDoNotMutateOriginal(t *testing.T) {
	state := newConversationState("what is attention?")

	next := state.withRoute(RouteRetrieval).
		withCandidates(docList("a", "b")).
		withState(StateGrading)

	assert.Equal(t, StateRouted, state.State)
	assert.Empty(t, state.Candidates)
	assert.Equal(t, RouteUnknown, state.Route)

	assert.Equal(t, StateGrading, next.State)
	assert.Len(t, next.Candidates, 2)
}

func TestWithRewriteResetsDerivedFields(t *testing.T) {
	state := newConversationState("q").
		withCandidates(docList("a")).
		withGraded(docList("a")).
		withAnswer("partial").
		withChecks(false, true)

	next := state.withRewrite("q but sharper")

	assert.Equal(t, "q", next.OriginalQuestion)
	assert.Equal(t, "q but sharper", next.WorkingQuestion)
	assert.Equal(t, 1, next.RetryCount)
	assert.Empty(t, next.Candidates)
	assert.Empty(t, next.Graded)
	assert.Empty(t, next.Answer)
	assert.Nil(t, next.Grounded)
	assert.Nil(t, next.Addresses)
}

func TestPassedAndFailureReason(t *testing.T) {
	state := newConversationState("q")
	assert.False(t, state.passed())

	require.True(t, state.withChecks(true, true).passed())
	assert.False(t, state.withChecks(true, false).passed())
	assert.False(t, state.withChecks(false, true).passed())

	assert.Equal(t, FailureNotGrounded, state.withChecks(false, false).failureReason())
	assert.Equal(t, FailureNotAddressed, state.withChecks(true, false).failureReason())
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateChecking.Terminal())
	assert.False(t, StateRouted.Terminal())
}
