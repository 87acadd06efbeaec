package tutor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRouter struct {
	decision RouteDecision
	err      error
}

func (f *fakeRouter) Route(_ context.Context, _ string) (RouteDecision, error) {
	return f.decision, f.err
}

type fakeRetriever struct {
	docs  [][]Document // one entry per call
	calls int
	err   error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string) ([]Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	var docs []Document
	if f.calls < len(f.docs) {
		docs = f.docs[f.calls]
	}
	f.calls++
	return docs, nil
}

type fakeGrader struct {
	keep bool
}

func (f *fakeGrader) Grade(_ context.Context, _ string, docs []Document) ([]Document, error) {
	if !f.keep {
		return nil, nil
	}
	return docs, nil
}

type fakeWeb struct {
	docs  []Document
	calls int
}

func (f *fakeWeb) Search(_ context.Context, _ string) []Document {
	f.calls++
	return f.docs
}

type fakeGenerator struct {
	answer string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, docs []Document, _ *LearnerStyle) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if len(docs) == 0 {
		return noContextAnswer, nil
	}
	return f.answer, nil
}

type fakeChecker struct {
	grounded []bool // one entry per call, last repeats
	calls    int
}

func (f *fakeChecker) Grounded(_ context.Context, _ string, _ []Document) (bool, error) {
	v := f.grounded[min(f.calls, len(f.grounded)-1)]
	f.calls++
	return v, nil
}

type fakeVerifier struct {
	addresses []bool
	calls     int
}

func (f *fakeVerifier) Addresses(_ context.Context, _, _ string) (bool, error) {
	v := f.addresses[min(f.calls, len(f.addresses)-1)]
	f.calls++
	return v, nil
}

type fakeRewriter struct {
	reasons []FailureReason
	err     error
}

func (f *fakeRewriter) Rewrite(_ context.Context, _, working string, reason FailureReason) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.reasons = append(f.reasons, reason)
	return working + " (rewritten)", nil
}

type fakeChitChat struct {
	answer string
	err    error
	calls  int
}

func (f *fakeChitChat) Answer(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func happyDeps() (Deps, *fakeWeb) {
	web := &fakeWeb{}
	return Deps{
		Router:    &fakeRouter{decision: RouteDecision{Route: RouteRetrieval}},
		Retriever: &fakeRetriever{docs: [][]Document{{{Content: "RRF combines rankings", SourceID: "c1"}}}},
		Grader:    &fakeGrader{keep: true},
		Web:       web,
		Generator: &fakeGenerator{answer: "RRF sums reciprocal ranks."},
		Checker:   &fakeChecker{grounded: []bool{true}},
		Verifier:  &fakeVerifier{addresses: []bool{true}},
		Rewriter:  &fakeRewriter{},
		ChitChat:  &fakeChitChat{answer: "Hi there!"},
	}, web
}

func TestRunHappyPath(t *testing.T) {
	deps, web := happyDeps()
	o := NewOrchestrator(deps, OrchestratorConfig{MaxRetries: 2})

	result, err := o.Run(context.Background(), "How does rank fusion work?", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.TerminalState)
	assert.Equal(t, RouteRetrieval, result.Route)
	assert.Equal(t, "RRF sums reciprocal ranks.", result.Answer)
	assert.Equal(t, 0, result.RetryCount)
	assert.False(t, result.Degraded)
	assert.Equal(t, 0, web.calls)
}

func TestRunChitChatRoute(t *testing.T) {
	deps, _ := happyDeps()
	deps.Router = &fakeRouter{decision: RouteDecision{Route: RouteChitChat}}
	o := NewOrchestrator(deps, OrchestratorConfig{MaxRetries: 2})

	result, err := o.Run(context.Background(), "hello!", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.TerminalState)
	assert.Equal(t, "Hi there!", result.Answer)
	assert.Equal(t, RouteChitChat, result.Route)
}

func TestGradingEmptyTriggersFallbackNotFailure(t *testing.T) {
	deps, web := happyDeps()
	deps.Grader = &fakeGrader{keep: false}
	web.docs = []Document{{Content: "web snippet", SourceID: "https://example.edu/a"}}
	o := NewOrchestrator(deps, OrchestratorConfig{MaxRetries: 2})

	result, err := o.Run(context.Background(), "Explain transformers", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.TerminalState)
	assert.Equal(t, 1, web.calls)
}

func TestTerminationWithinRetryBudget(t *testing.T) {
	// Checks never pass; the loop must still terminate with a disclaimer.
	deps, _ := happyDeps()
	deps.Checker = &fakeChecker{grounded: []bool{false}}
	deps.Verifier = &fakeVerifier{addresses: []bool{false}}
	deps.Retriever = &fakeRetriever{docs: [][]Document{
		{{Content: "a", SourceID: "c1"}},
		{{Content: "b", SourceID: "c2"}},
		{{Content: "c", SourceID: "c3"}},
	}}
	o := NewOrchestrator(deps, OrchestratorConfig{MaxRetries: 2})

	result, err := o.Run(context.Background(), "Explain attention heads in depth", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.TerminalState)
	assert.Equal(t, 2, result.RetryCount)
	assert.True(t, result.Degraded)
	assert.Contains(t, result.Answer, "double-check")
}

func TestSimpleLookupMisrouteReroutesToChitChat(t *testing.T) {
	// "Who is our TA?" misrouted to retrieval: zero relevant documents,
	// web fallback answers stay unverified, budget runs out. The machine
	// must hand the question to the chitchat handler, not crash or loop.
	web := &fakeWeb{docs: []Document{{Content: "irrelevant", SourceID: "https://x"}}}
	chit := &fakeChitChat{answer: "Your TA is Sam Okafor."}
	deps := Deps{
		Router:    &fakeRouter{decision: RouteDecision{Route: RouteRetrieval}},
		Retriever: &fakeRetriever{},
		Grader:    &fakeGrader{keep: false},
		Web:       web,
		Generator: &fakeGenerator{answer: "something ungrounded"},
		Checker:   &fakeChecker{grounded: []bool{false}},
		Verifier:  &fakeVerifier{addresses: []bool{false}},
		Rewriter:  &fakeRewriter{},
		ChitChat:  chit,
	}
	o := NewOrchestrator(deps, OrchestratorConfig{MaxRetries: 2})

	result, err := o.Run(context.Background(), "Who is our TA?", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.TerminalState)
	assert.Equal(t, 2, result.RetryCount)
	assert.Equal(t, 1, chit.calls)
	assert.Equal(t, "Your TA is Sam Okafor.", result.Answer)
}

func TestExhaustedBudgetNonLookupGetsDisclaimer(t *testing.T) {
	deps, web := happyDeps()
	web.docs = []Document{{Content: "tangent", SourceID: "https://x"}}
	deps.Grader = &fakeGrader{keep: false}
	deps.Checker = &fakeChecker{grounded: []bool{false}}
	deps.Verifier = &fakeVerifier{addresses: []bool{false}}
	chit := deps.ChitChat.(*fakeChitChat)
	o := NewOrchestrator(deps, OrchestratorConfig{MaxRetries: 1})

	result, err := o.Run(context.Background(), "Explain why my gradient explodes", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.TerminalState)
	assert.Equal(t, 0, chit.calls)
	assert.Contains(t, result.Answer, "double-check")
}

func TestRewriteReasonRetrievalEmpty(t *testing.T) {
	rewriter := &fakeRewriter{}
	deps, web := happyDeps()
	web.docs = nil // fallback finds nothing either
	deps.Grader = &fakeGrader{keep: false}
	deps.Checker = &fakeChecker{grounded: []bool{false, true}}
	deps.Verifier = &fakeVerifier{addresses: []bool{false, true}}
	deps.Retriever = &fakeRetriever{docs: [][]Document{
		nil,
		{{Content: "found after simplification", SourceID: "c9"}},
	}}
	deps.Rewriter = rewriter
	// Second pass grades successfully.
	grader := &switchingGrader{failFirst: true}
	deps.Grader = grader
	o := NewOrchestrator(deps, OrchestratorConfig{MaxRetries: 2})

	result, err := o.Run(context.Background(), "Explain the fancy thing", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.TerminalState)
	require.Len(t, rewriter.reasons, 1)
	assert.Equal(t, FailureRetrievalEmpty, rewriter.reasons[0])
}

type switchingGrader struct {
	failFirst bool
	calls     int
}

func (g *switchingGrader) Grade(_ context.Context, _ string, docs []Document) ([]Document, error) {
	g.calls++
	if g.failFirst && g.calls == 1 {
		return nil, nil
	}
	return docs, nil
}

func TestChitChatFailureIsFatal(t *testing.T) {
	deps, _ := happyDeps()
	deps.Router = &fakeRouter{decision: RouteDecision{Route: RouteChitChat}}
	deps.ChitChat = &fakeChitChat{err: errors.New("model unavailable")}
	o := NewOrchestrator(deps, OrchestratorConfig{MaxRetries: 2})

	result, err := o.Run(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Equal(t, StateFailed, result.TerminalState)
	assert.Equal(t, failedAnswer, result.Answer)
}

func TestCancelledContextAbandonsRun(t *testing.T) {
	deps, _ := happyDeps()
	deps.Checker = &fakeChecker{grounded: []bool{false}}
	deps.Verifier = &fakeVerifier{addresses: []bool{false}}
	o := NewOrchestrator(deps, OrchestratorConfig{MaxRetries: 5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := o.Run(ctx, "anything at all", nil)
	require.Error(t, err)
	assert.Equal(t, StateFailed, result.TerminalState)
}

func TestEmptyQuestionRejected(t *testing.T) {
	deps, _ := happyDeps()
	o := NewOrchestrator(deps, OrchestratorConfig{MaxRetries: 2})

	_, err := o.Run(context.Background(), "   ", nil)
	require.Error(t, err)
}

func TestIsSimpleLookup(t *testing.T) {
	assert.True(t, isSimpleLookup("Who is our TA?"))
	assert.True(t, isSimpleLookup("where is the lecture hall"))
	assert.True(t, isSimpleLookup("WHEN is the exam"))
	assert.False(t, isSimpleLookup("Explain backpropagation"))
	assert.False(t, isSimpleLookup("How do transformers work?"))
}

func TestMetricsRecorded(t *testing.T) {
	rec := &recordingMetrics{}
	deps, web := happyDeps()
	web.docs = []Document{{Content: "x", SourceID: "https://x"}}
	deps.Grader = &fakeGrader{keep: false}
	deps.Metrics = rec
	o := NewOrchestrator(deps, OrchestratorConfig{MaxRetries: 2})

	_, err := o.Run(context.Background(), "Explain dropout", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.questions)
	assert.Equal(t, 1, rec.fallbacks)
}

type recordingMetrics struct {
	questions int
	fallbacks int
}

func (r *recordingMetrics) RecordQuestion(_, _ string, _ int, _ time.Duration) { r.questions++ }
func (r *recordingMetrics) RecordFallbackSearch(_ bool)                        { r.fallbacks++ }
