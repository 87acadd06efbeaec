package store

// CourseChunk is one indexed fragment of course material.
type CourseChunk struct {
	UID       string
	CourseID  string
	Source    string // origin document reference, e.g. "syllabus.pdf#page=3"
	Title     string
	Content   string
	CreatedTs int64
	ID        int32
}

// CreateCourseChunk holds a chunk and its embedding for indexing.
type CreateCourseChunk struct {
	Chunk     *CourseChunk
	Embedding []float32
}

// ChunkVectorSearchOptions describes a vector similarity search over course
// chunks.
type ChunkVectorSearchOptions struct {
	Vector   []float32
	CourseID *string
	Limit    int
}

// ScoredChunk is a search hit with its cosine similarity score.
type ScoredChunk struct {
	Chunk *CourseChunk
	Score float64
}
