package store

// LearnerProfile is the persisted per-student profile. Profile and Provenance
// are opaque JSON documents owned by the learner package.
type LearnerProfile struct {
	StudentID  string
	Profile    []byte
	Provenance []byte
	CreatedTs  int64
	UpdatedTs  int64
}

// UpsertLearnerProfile creates or replaces a student's profile.
type UpsertLearnerProfile struct {
	StudentID  string
	Profile    []byte
	Provenance []byte
	UpdatedTs  int64
}

// FindLearnerProfile locates a profile by student.
type FindLearnerProfile struct {
	StudentID string
}
