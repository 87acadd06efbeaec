// Package tutor implements the course question-answering pipeline: routing,
// multi-query retrieval, relevance grading, web search fallback, answer
// generation, and a bounded self-correction loop.
package tutor

// Route is the answering strategy chosen for a question.
type Route int

const (
	RouteUnknown Route = iota
	RouteRetrieval
	RouteWebSearch
	RouteChitChat
)

func (r Route) String() string {
	switch r {
	case RouteRetrieval:
		return "retrieval"
	case RouteWebSearch:
		return "websearch"
	case RouteChitChat:
		return "chitchat"
	default:
		return "unknown"
	}
}

// ParseRoute maps a classifier label to a Route.
func ParseRoute(label string) (Route, bool) {
	switch label {
	case "retrieval", "vectorstore":
		return RouteRetrieval, true
	case "websearch", "web_search":
		return RouteWebSearch, true
	case "chitchat", "chit_chat":
		return RouteChitChat, true
	default:
		return RouteUnknown, false
	}
}

// State is a node of the answering state machine.
type State int

const (
	StateRouted State = iota
	StateRetrieving
	StateGrading
	StateFallbackSearch
	StateGenerating
	StateChecking
	StateRewriting
	StateChitChatting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRouted:
		return "routed"
	case StateRetrieving:
		return "retrieving"
	case StateGrading:
		return "grading"
	case StateFallbackSearch:
		return "fallback_search"
	case StateGenerating:
		return "generating"
	case StateChecking:
		return "checking"
	case StateRewriting:
		return "rewriting"
	case StateChitChatting:
		return "chitchatting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state machine stops at s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Document is one piece of answering context. Retrieved chunks and web
// snippets share this shape; web documents carry their URL as SourceID.
type Document struct {
	Content       string
	SourceID      string
	RetrievalRank int
	Relevant      *bool
}

// FailureReason explains why an answer attempt was rejected.
type FailureReason string

const (
	FailureNotGrounded    FailureReason = "not_grounded"
	FailureNotAddressed   FailureReason = "not_addressed"
	FailureRetrievalEmpty FailureReason = "retrieval_empty"
)

// LearnerStyle carries the profile dimensions that shape answer tone and
// scaffolding. A nil style produces a neutral answer.
type LearnerStyle struct {
	AIStrategy       string
	CognitiveProfile string
}

// ConversationState is the full state of one in-flight question. Transitions
// produce a new value rather than mutating in place; document slices are
// replaced wholesale, never appended to across transitions.
type ConversationState struct {
	OriginalQuestion string
	WorkingQuestion  string
	Route            Route
	Candidates       []Document
	Graded           []Document
	Answer           string
	Grounded         *bool
	Addresses        *bool
	RetryCount       int
	State            State

	// usedFallback records that the web search path ran at least once,
	// enabling the simple-lookup re-route on budget exhaustion.
	usedFallback bool
	// rerouted guards the chitchat re-route edge so it fires at most once.
	rerouted bool
}

func newConversationState(question string) ConversationState {
	return ConversationState{
		OriginalQuestion: question,
		WorkingQuestion:  question,
		State:            StateRouted,
	}
}

func (c ConversationState) withState(s State) ConversationState {
	c.State = s
	return c
}

func (c ConversationState) withRoute(r Route) ConversationState {
	c.Route = r
	return c
}

func (c ConversationState) withCandidates(docs []Document) ConversationState {
	c.Candidates = docs
	return c
}

func (c ConversationState) withGraded(docs []Document) ConversationState {
	c.Graded = docs
	return c
}

func (c ConversationState) withAnswer(answer string) ConversationState {
	c.Answer = answer
	c.Grounded = nil
	c.Addresses = nil
	return c
}

func (c ConversationState) withChecks(grounded, addresses bool) ConversationState {
	c.Grounded = &grounded
	c.Addresses = &addresses
	return c
}

func (c ConversationState) withRewrite(question string) ConversationState {
	c.WorkingQuestion = question
	c.RetryCount++
	c.Candidates = nil
	c.Graded = nil
	c.Answer = ""
	c.Grounded = nil
	c.Addresses = nil
	return c
}

func (c ConversationState) passed() bool {
	return c.Grounded != nil && *c.Grounded && c.Addresses != nil && *c.Addresses
}

func (c ConversationState) failureReason() FailureReason {
	if c.Grounded != nil && !*c.Grounded {
		return FailureNotGrounded
	}
	return FailureNotAddressed
}
