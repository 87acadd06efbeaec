package learner

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"time"
)

// scoreMargin guards field overwrites: newer evidence clearly weaker than
// the standing value (score below existing minus the margin) does not
// displace it, and slow-moving fields additionally demand at least this
// much improvement before they move.
const scoreMargin = 0.15

// slowMovingDimensions change gradually; a single interaction should not
// flip them without clearly stronger evidence.
var slowMovingDimensions = map[string]bool{
	DimCognitiveProfile: true,
	DimLearningStyle:    true,
}

// FieldProvenance records how a field got its current value. Provenance is
// tracked beside the profile, never inside it.
type FieldProvenance struct {
	Source     Source    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	Weight     float64   `json:"weight"`
}

func (fp *FieldProvenance) score() float64 {
	return fp.Confidence * fp.Weight
}

// Provenance maps "dimension.field" to the winning evidence's provenance.
type Provenance map[string]FieldProvenance

func provenanceKey(dimension, field string) string {
	return dimension + "." + field
}

// Clone copies the provenance map.
func (p Provenance) Clone() Provenance {
	clone := make(Provenance, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// MarshalProvenance serializes provenance for storage.
func MarshalProvenance(p Provenance) ([]byte, error) {
	if p == nil {
		p = Provenance{}
	}
	return json.Marshal(p)
}

// UnmarshalProvenance deserializes stored provenance; empty input yields an
// empty map.
func UnmarshalProvenance(raw []byte) (Provenance, error) {
	if len(raw) == 0 {
		return Provenance{}, nil
	}
	var p Provenance
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode provenance: %w", err)
	}
	return p, nil
}

// Merge folds evidence into a profile and returns the updated profile and
// provenance. Pure: identical inputs yield identical outputs, the inputs
// are never mutated, and re-applying the same evidence set is a no-op
// (idempotence).
//
// Per-field conflict resolution, in order:
//  1. basic_info accepts only questionnaire and manual evidence.
//  2. An empty field takes any valid evidence.
//  3. Older evidence never displaces a newer value.
//  4. Same-timestamp conflicts go to the higher confidence*weight score;
//     an exact tie goes to the evidence listed last.
//  5. Newer evidence wins unless it is clearly weaker than the standing
//     value (score < existing - scoreMargin); slow-moving dimensions
//     flip only when the new score beats the existing one by at least
//     scoreMargin, unless the value is unchanged.
func Merge(current Profile, provenance Provenance, evidence []Evidence) (Profile, Provenance) {
	profile := current.Normalize().Clone()
	prov := provenance.Clone()

	for i := range evidence {
		item := &evidence[i]
		if err := item.Validate(); err != nil {
			slog.Warn("learner: skipping invalid evidence", "error", err)
			continue
		}

		for _, e := range item.expand() {
			applyEvidence(profile, prov, &e)
		}
	}

	return profile, prov
}

func applyEvidence(profile Profile, prov Provenance, e *Evidence) {
	if e.Dimension == DimBasicInfo && e.Source == SourceInteraction {
		return
	}

	key := provenanceKey(e.Dimension, e.Field)
	existing, exists := prov[key]
	if exists && !shouldReplace(&existing, e, profile[e.Dimension][e.Field]) {
		return
	}

	profile[e.Dimension][e.Field] = e.Value
	prov[key] = FieldProvenance{
		Source:     e.Source,
		Timestamp:  e.Timestamp,
		Confidence: e.Confidence,
		Weight:     e.Weight,
	}
}

func shouldReplace(existing *FieldProvenance, e *Evidence, currentValue any) bool {
	switch {
	case e.Timestamp.Before(existing.Timestamp):
		return false

	case e.Timestamp.Equal(existing.Timestamp):
		// Equal score falls through to the incoming item: the evidence
		// listed last wins, which also makes identical re-application a
		// no-op.
		return e.score() >= existing.score()

	default:
		if reflect.DeepEqual(e.Value, currentValue) {
			// Same value, fresher provenance.
			return true
		}
		if e.score() < existing.score()-scoreMargin {
			// Weak evidence never displaces a clearly stronger value.
			return false
		}
		if slowMovingDimensions[e.Dimension] {
			return e.score() >= existing.score()+scoreMargin
		}
		return true
	}
}
