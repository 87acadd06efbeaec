package learner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/clare-ai/clare/ai/core/llm"
	"github.com/clare-ai/clare/ai/internal/strutil"
	"github.com/clare-ai/clare/store"
)

const (
	// activeWindow and activeMinMessages define an "active" student for
	// batch refresh: at least three questions in the last week.
	activeWindow      = 7 * 24 * time.Hour
	activeMinMessages = 3

	// analysisHistoryLimit caps how many recent turns feed one analysis.
	analysisHistoryLimit = 30

	// refreshConcurrency bounds parallel student refreshes.
	refreshConcurrency = 4
)

const extractPrompt = `You are analyzing a student's recent course chat history to learn about them.
Extract observations as evidence items. Only include things the messages actually support; skip anything speculative.

Valid dimensions: technical_profile, cognitive_profile, learning_style, challenges_needs, ai_strategy, career.
Do NOT emit basic_info evidence; that dimension is maintained manually.

Respond with a JSON object:
{"evidence": [{"dimension": "...", "field": "...", "value": <string or list>, "confidence": <0..1>, "note": "<short justification>"}]}
Return {"evidence": []} when the history reveals nothing new.

Chat history (newest first):
%s`

// MetricsRecorder receives profile update outcomes. Satisfied by
// metrics.PrometheusExporter; nil disables recording.
type MetricsRecorder interface {
	RecordProfileUpdate(trigger string, success bool)
}

// Analyzer extracts evidence from chat history and folds it into stored
// profiles. Updates for the same student are serialized; different students
// update independently.
type Analyzer struct {
	llm     llm.Service
	store   *store.Store
	metrics MetricsRecorder

	// locks holds one mutex per student ever analyzed and is never
	// evicted. Bounded by course enrollment, a few hundred entries.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(llmService llm.Service, st *store.Store, metrics MetricsRecorder) *Analyzer {
	return &Analyzer{
		llm:     llmService,
		store:   st,
		metrics: metrics,
		locks:   map[string]*sync.Mutex{},
	}
}

// studentLock returns the mutex serializing merges for one student.
func (a *Analyzer) studentLock(studentID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[studentID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[studentID] = lock
	}
	return lock
}

// AnalyzeStudent extracts evidence from the student's recent chat history
// and merges it into their stored profile.
func (a *Analyzer) AnalyzeStudent(ctx context.Context, studentID string) error {
	evidence, err := a.extractEvidence(ctx, studentID)
	if err != nil {
		a.recordUpdate("chat", false)
		return err
	}
	if len(evidence) == 0 {
		slog.Debug("learner: no new evidence for student", "student_id", studentID)
		return nil
	}

	return a.ApplyEvidence(ctx, studentID, evidence, "chat")
}

// ApplyEvidence merges evidence into a student's stored profile. The merge
// itself is pure; this method owns loading, locking, and persistence. The
// trigger label is only used for metrics.
func (a *Analyzer) ApplyEvidence(ctx context.Context, studentID string, evidence []Evidence, trigger string) error {
	lock := a.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	current, provenance, err := a.loadProfile(ctx, studentID)
	if err != nil {
		a.recordUpdate(trigger, false)
		return err
	}

	updated, updatedProv := Merge(current, provenance, evidence)

	if err := a.saveProfile(ctx, studentID, updated, updatedProv); err != nil {
		a.recordUpdate(trigger, false)
		return err
	}

	a.recordUpdate(trigger, true)
	slog.Info("learner: profile updated",
		"student_id", studentID,
		"evidence_items", len(evidence),
		"trigger", trigger,
	)
	return nil
}

// LoadProfile returns a student's profile, or a fresh empty one when none
// is stored yet.
func (a *Analyzer) LoadProfile(ctx context.Context, studentID string) (Profile, error) {
	profile, _, err := a.loadProfile(ctx, studentID)
	return profile, err
}

// RefreshActiveStudents re-analyzes every student active within the last
// week. Per-student failures are logged and skipped, not propagated: one
// broken history must not starve the rest of the batch.
func (a *Analyzer) RefreshActiveStudents(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-activeWindow).Unix()
	studentIDs, err := a.store.ListActiveStudentIDs(ctx, cutoff, activeMinMessages)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list active students")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)

	var mu sync.Mutex
	refreshed := 0
	for _, studentID := range studentIDs {
		g.Go(func() error {
			if err := a.AnalyzeStudent(gctx, studentID); err != nil {
				slog.Warn("learner: refresh failed for student", "student_id", studentID, "error", err)
				return nil
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return refreshed, err
	}

	slog.Info("learner: active students refreshed", "candidates", len(studentIDs), "refreshed", refreshed)
	return refreshed, nil
}

func (a *Analyzer) extractEvidence(ctx context.Context, studentID string) ([]Evidence, error) {
	messages, err := a.store.ListChatMessages(ctx, &store.FindChatMessage{
		StudentID: &studentID,
		Limit:     analysisHistoryLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load chat history")
	}
	if len(messages) == 0 {
		return nil, nil
	}

	var out struct {
		Evidence []struct {
			Dimension  string  `json:"dimension"`
			Field      string  `json:"field"`
			Value      any     `json:"value"`
			Confidence float64 `json:"confidence"`
			Note       string  `json:"note"`
		} `json:"evidence"`
	}

	err = a.llm.ClassifyJSON(ctx, []llm.Message{
		llm.UserMessage(fmt.Sprintf(extractPrompt, formatHistory(messages))),
	}, &out)
	if err != nil {
		return nil, errors.Wrap(err, "evidence extraction failed")
	}

	now := time.Now().UTC().Truncate(time.Second)
	evidence := make([]Evidence, 0, len(out.Evidence))
	for _, raw := range out.Evidence {
		item := Evidence{
			Source:     SourceInteraction,
			Timestamp:  now,
			Dimension:  raw.Dimension,
			Field:      raw.Field,
			Value:      raw.Value,
			Confidence: raw.Confidence,
			Weight:     1.0,
			Note:       raw.Note,
		}
		if err := item.Validate(); err != nil {
			slog.Warn("learner: model emitted invalid evidence", "error", err)
			continue
		}
		evidence = append(evidence, item)
	}
	return evidence, nil
}

func (a *Analyzer) loadProfile(ctx context.Context, studentID string) (Profile, Provenance, error) {
	stored, err := a.store.GetLearnerProfile(ctx, &store.FindLearnerProfile{StudentID: studentID})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load learner profile")
	}
	if stored == nil {
		return NewProfile(), Provenance{}, nil
	}

	profile, err := UnmarshalProfile(stored.Profile)
	if err != nil {
		return nil, nil, err
	}
	provenance, err := UnmarshalProvenance(stored.Provenance)
	if err != nil {
		return nil, nil, err
	}
	return profile, provenance, nil
}

func (a *Analyzer) saveProfile(ctx context.Context, studentID string, profile Profile, provenance Provenance) error {
	profileRaw, err := MarshalProfile(profile)
	if err != nil {
		return errors.Wrap(err, "failed to encode profile")
	}
	provRaw, err := MarshalProvenance(provenance)
	if err != nil {
		return errors.Wrap(err, "failed to encode provenance")
	}

	_, err = a.store.UpsertLearnerProfile(ctx, &store.UpsertLearnerProfile{
		StudentID:  studentID,
		Profile:    profileRaw,
		Provenance: provRaw,
		UpdatedTs:  time.Now().Unix(),
	})
	return err
}

func (a *Analyzer) recordUpdate(trigger string, success bool) {
	if a.metrics != nil {
		a.metrics.RecordProfileUpdate(trigger, success)
	}
}

func formatHistory(messages []*store.ChatMessage) string {
	out := ""
	for _, m := range messages {
		out += fmt.Sprintf("[%s] %s\n", m.Role, strutil.Truncate(m.Content, 1000))
	}
	return out
}
