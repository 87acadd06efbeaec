package learner

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Source identifies where an evidence item came from. Questionnaire and
// manual sources carry enough authority to touch protected fields;
// interaction-derived evidence does not.
type Source string

const (
	SourceQuestionnaire Source = "questionnaire"
	SourceInteraction   Source = "interaction"
	SourceManual        Source = "manual"
)

func validSource(s Source) bool {
	return s == SourceQuestionnaire || s == SourceInteraction || s == SourceManual
}

// Evidence is one observation about a student.
type Evidence struct {
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Dimension string    `json:"dimension"`

	// Field addresses one field of the dimension. When empty, Value must be
	// a mapping and each entry is applied as field-level evidence.
	Field string `json:"field,omitempty"`

	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
	Note       string  `json:"note,omitempty"`
}

// Validate checks an evidence item's structural invariants.
func (e *Evidence) Validate() error {
	if !validSource(e.Source) {
		return errors.Errorf("invalid evidence source %q", e.Source)
	}
	if !ValidDimension(e.Dimension) {
		return errors.Errorf("invalid evidence dimension %q", e.Dimension)
	}
	if e.Timestamp.IsZero() {
		return errors.New("evidence timestamp is required")
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return errors.Errorf("evidence confidence %g outside [0,1]", e.Confidence)
	}
	if e.Weight < 0 {
		return errors.Errorf("evidence weight %g must be non-negative", e.Weight)
	}
	if e.Field == "" {
		if _, ok := e.Value.(map[string]any); !ok {
			return errors.New("evidence without a field must carry a mapping value")
		}
	} else if e.Value == nil {
		return errors.New("evidence value is required")
	}
	return nil
}

// score is the evidence strength used for conflict resolution.
func (e *Evidence) score() float64 {
	return e.Confidence * e.Weight
}

// expand flattens a field-less mapping evidence item into per-field items.
// Field-level items pass through unchanged.
func (e *Evidence) expand() []Evidence {
	if e.Field != "" {
		return []Evidence{*e}
	}

	mapping, ok := e.Value.(map[string]any)
	if !ok {
		return nil
	}

	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	// Deterministic expansion order: mapping iteration order must not leak
	// into tie-break decisions.
	sort.Strings(keys)

	items := make([]Evidence, 0, len(keys))
	for _, k := range keys {
		item := *e
		item.Field = k
		item.Value = mapping[k]
		items = append(items, item)
	}
	return items
}
