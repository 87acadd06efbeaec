// Package learner maintains per-student profiles: a fixed set of profile
// dimensions, an evidence model, and a deterministic merge engine that folds
// new observations into an existing profile.
package learner

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// The seven profile dimensions. A profile never contains anything else; no
// identifiers, versions, or timestamps are embedded in the profile body.
const (
	DimBasicInfo        = "basic_info"
	DimTechnicalProfile = "technical_profile"
	DimCognitiveProfile = "cognitive_profile"
	DimLearningStyle    = "learning_style"
	DimChallengesNeeds  = "challenges_needs"
	DimAIStrategy       = "ai_strategy"
	DimCareer           = "career"
)

// Dimensions lists the valid dimension names in canonical order.
var Dimensions = []string{
	DimBasicInfo,
	DimTechnicalProfile,
	DimCognitiveProfile,
	DimLearningStyle,
	DimChallengesNeeds,
	DimAIStrategy,
	DimCareer,
}

// Dimension is one profile dimension: field name to value.
type Dimension map[string]any

// Profile maps dimension name to its fields.
type Profile map[string]Dimension

// NewProfile returns an empty profile with all seven dimensions present.
func NewProfile() Profile {
	p := make(Profile, len(Dimensions))
	for _, dim := range Dimensions {
		p[dim] = Dimension{}
	}
	return p
}

// ValidDimension reports whether name is one of the seven dimensions.
func ValidDimension(name string) bool {
	for _, dim := range Dimensions {
		if dim == name {
			return true
		}
	}
	return false
}

// Clone deep-copies the profile one level down. Field values are shared;
// the merge engine replaces values wholesale and never mutates them.
func (p Profile) Clone() Profile {
	clone := make(Profile, len(Dimensions))
	for _, dim := range Dimensions {
		fields := make(Dimension, len(p[dim]))
		for k, v := range p[dim] {
			fields[k] = v
		}
		clone[dim] = fields
	}
	return clone
}

// Normalize drops unknown dimensions and fills in missing ones, restoring
// the seven-dimension invariant after deserialization.
func (p Profile) Normalize() Profile {
	normalized := NewProfile()
	for _, dim := range Dimensions {
		for k, v := range p[dim] {
			normalized[dim][k] = v
		}
	}
	return normalized
}

// StyleSummary renders the dimensions that drive answer personalization as
// short prose for prompt injection. Empty when the profile holds nothing
// useful.
func (p Profile) StyleSummary(dimension string) string {
	fields := p[dimension]
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, renderValue(fields[k])))
	}
	return strings.Join(parts, "; ")
}

func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, renderValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(raw)
	}
}

// MarshalProfile serializes a profile for storage.
func MarshalProfile(p Profile) ([]byte, error) {
	return json.Marshal(p.Normalize())
}

// UnmarshalProfile deserializes a stored profile, restoring invariants.
// Empty input yields a fresh profile.
func UnmarshalProfile(raw []byte) (Profile, error) {
	if len(raw) == 0 {
		return NewProfile(), nil
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return p.Normalize(), nil
}
