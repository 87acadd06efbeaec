package tutor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// failedAnswer is the single user-visible message for an unrecoverable
// failure. Partial or garbled answers are never shown.
const failedAnswer = "Sorry, something went wrong on my side and I can't answer right now. Please try again in a moment."

// disclaimerSuffix marks a best-effort answer that exhausted its retry
// budget without passing both checks.
const disclaimerSuffix = "\n\n(Note: I couldn't fully verify this answer against the course materials, so please double-check anything important.)"

// Result is the outcome of one answered question.
type Result struct {
	Answer        string
	Route         Route
	RetryCount    int
	TerminalState State

	// Degraded marks a best-effort outcome: fallback routing or an
	// unverified answer shipped with a disclaimer.
	Degraded bool
}

// MetricsRecorder receives pipeline outcome metrics. Satisfied by
// metrics.PrometheusExporter; nil disables recording.
type MetricsRecorder interface {
	RecordQuestion(route, terminalState string, retries int, latency time.Duration)
	RecordFallbackSearch(success bool)
}

// Deps wires the pipeline nodes into the orchestrator.
type Deps struct {
	Router    QueryRouter
	Retriever DocumentRetriever
	Grader    RelevanceGrader
	Web       WebSearcher
	Generator AnswerGenerator
	Checker   HallucinationChecker
	Verifier  AnswerVerifier
	Rewriter  QueryRewriter
	ChitChat  ChitChatHandler
	Metrics   MetricsRecorder
}

// OrchestratorConfig tunes the control loop.
type OrchestratorConfig struct {
	// MaxRetries bounds rewrite cycles per question.
	MaxRetries int
}

// Orchestrator runs the answering state machine. Each question owns one
// ConversationState; transitions produce new values, so a request can be
// replayed or inspected from its transition log.
type Orchestrator struct {
	deps       Deps
	maxRetries int
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps Deps, cfg OrchestratorConfig) *Orchestrator {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Orchestrator{deps: deps, maxRetries: maxRetries}
}

// Run answers one question, driving the state machine to Done or Failed.
// The returned error is non-nil only alongside StateFailed.
func (o *Orchestrator) Run(ctx context.Context, question string, style *LearnerStyle) (*Result, error) {
	requestID := shortuuid.New()
	startTime := time.Now()
	logger := slog.With("request_id", requestID)

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question must not be empty")
	}

	state := newConversationState(question)
	degraded := false

	decision, err := o.deps.Router.Route(ctx, question)
	if err != nil {
		return o.finish(logger, state.withState(StateFailed), degraded, startTime, err)
	}
	degraded = decision.Degraded
	state = state.withRoute(decision.Route)
	logger.Info("tutor: question routed", "route", decision.Route.String(), "degraded", degraded)

	switch decision.Route {
	case RouteRetrieval:
		state = state.withState(StateRetrieving)
	case RouteWebSearch:
		state = state.withState(StateFallbackSearch)
	case RouteChitChat:
		state = state.withState(StateChitChatting)
	default:
		state = state.withState(StateRetrieving)
	}

	for !state.State.Terminal() {
		if err := ctx.Err(); err != nil {
			return o.finish(logger, state.withState(StateFailed), degraded, startTime, err)
		}

		switch state.State {
		case StateRetrieving:
			docs, err := o.deps.Retriever.Retrieve(ctx, state.WorkingQuestion)
			if err != nil {
				return o.finish(logger, state.withState(StateFailed), degraded, startTime, err)
			}
			state = state.withCandidates(docs).withState(StateGrading)

		case StateGrading:
			graded, err := o.deps.Grader.Grade(ctx, state.WorkingQuestion, state.Candidates)
			if err != nil {
				return o.finish(logger, state.withState(StateFailed), degraded, startTime, err)
			}
			state = state.withGraded(graded)
			if len(graded) == 0 {
				// All-irrelevant grading is the designed trigger for the
				// fallback path.
				state = state.withState(StateFallbackSearch)
			} else {
				state = state.withState(StateGenerating)
			}

		case StateFallbackSearch:
			docs := o.deps.Web.Search(ctx, state.WorkingQuestion)
			if o.deps.Metrics != nil {
				o.deps.Metrics.RecordFallbackSearch(len(docs) > 0)
			}
			state.usedFallback = true
			state = state.withGraded(docs).withState(StateGenerating)

		case StateGenerating:
			answer, err := o.deps.Generator.Generate(ctx, state.WorkingQuestion, state.Graded, style)
			if err != nil {
				// No fallback exists for a dead generator.
				return o.finish(logger, state.withState(StateFailed), degraded, startTime, err)
			}
			state = state.withAnswer(answer).withState(StateChecking)

		case StateChecking:
			state, err = o.check(ctx, state)
			if err != nil {
				return o.finish(logger, state.withState(StateFailed), degraded, startTime, err)
			}
			if state.State == StateDone && !state.passed() {
				degraded = true
			}

		case StateRewriting:
			reason := state.failureReason()
			if len(state.Graded) == 0 {
				reason = FailureRetrievalEmpty
			}
			rewritten, err := o.deps.Rewriter.Rewrite(ctx, state.OriginalQuestion, state.WorkingQuestion, reason)
			if err != nil {
				// Best effort: ship the last answer with a disclaimer
				// rather than failing a question we already answered.
				logger.Warn("tutor: rewrite failed, finishing with disclaimer", "error", err)
				degraded = true
				state = state.withAnswer(state.Answer + disclaimerSuffix).withState(StateDone)
				break
			}
			state = state.withRewrite(rewritten).withState(StateRetrieving)
			logger.Info("tutor: retrying with rewritten question",
				"retry", state.RetryCount,
				"reason", reason,
			)

		case StateChitChatting:
			answer, err := o.deps.ChitChat.Answer(ctx, state.OriginalQuestion)
			if err != nil {
				return o.finish(logger, state.withState(StateFailed), degraded, startTime, err)
			}
			state = state.withAnswer(answer).withState(StateDone)

		default:
			return o.finish(logger, state.withState(StateFailed), degraded, startTime,
				errors.Errorf("orchestrator reached invalid state %s", state.State))
		}
	}

	return o.finish(logger, state, degraded, startTime, nil)
}

// check runs both quality judgments and decides the next transition.
func (o *Orchestrator) check(ctx context.Context, state ConversationState) (ConversationState, error) {
	grounded, err := o.deps.Checker.Grounded(ctx, state.Answer, state.Graded)
	if err != nil {
		return state, err
	}
	addresses, err := o.deps.Verifier.Addresses(ctx, state.OriginalQuestion, state.Answer)
	if err != nil {
		return state, err
	}
	state = state.withChecks(grounded, addresses)

	if state.passed() {
		return state.withState(StateDone), nil
	}
	if state.RetryCount < o.maxRetries {
		return state.withState(StateRewriting), nil
	}

	// Budget exhausted. A simple-lookup question that already burned its
	// fallback search gets one shot at the chitchat handler, which can
	// answer logistics lookups from static context.
	if state.usedFallback && !state.rerouted && isSimpleLookup(state.OriginalQuestion) {
		state.rerouted = true
		return state.withState(StateChitChatting), nil
	}

	return state.withAnswer(state.Answer + disclaimerSuffix).withState(StateDone), nil
}

func (o *Orchestrator) finish(logger *slog.Logger, state ConversationState, degraded bool, startTime time.Time, cause error) (*Result, error) {
	latency := time.Since(startTime)

	result := &Result{
		Answer:        state.Answer,
		Route:         state.Route,
		RetryCount:    state.RetryCount,
		TerminalState: state.State,
		Degraded:      degraded,
	}
	if state.State == StateFailed {
		result.Answer = failedAnswer
	}

	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordQuestion(state.Route.String(), state.State.String(), state.RetryCount, latency)
	}

	if cause != nil {
		logger.Error("tutor: question failed",
			"route", state.Route.String(),
			"retries", state.RetryCount,
			"duration_ms", latency.Milliseconds(),
			"error", cause,
		)
		return result, cause
	}

	logger.Info("tutor: question answered",
		"route", state.Route.String(),
		"terminal_state", state.State.String(),
		"retries", state.RetryCount,
		"degraded", degraded,
		"duration_ms", latency.Milliseconds(),
	)
	return result, nil
}

// isSimpleLookup flags single-fact questions that the chitchat handler's
// static context may cover.
func isSimpleLookup(question string) bool {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, prefix := range []string{"who", "what", "when", "where"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}
