package store

import "context"

// Driver is an interface for database drivers.
type Driver interface {
	GetDB() any
	Close() error

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error

	// Course material
	CreateCourseChunk(ctx context.Context, create *CreateCourseChunk) (*CourseChunk, error)
	ChunkVectorSearch(ctx context.Context, opts *ChunkVectorSearchOptions) ([]*ScoredChunk, error)
	DeleteCourseChunks(ctx context.Context, courseID string) (int64, error)

	// Chat history
	CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error)
	ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error)
	CountChatMessages(ctx context.Context, find *FindChatMessage) (int64, error)

	// Learner profiles
	GetLearnerProfile(ctx context.Context, find *FindLearnerProfile) (*LearnerProfile, error)
	UpsertLearnerProfile(ctx context.Context, upsert *UpsertLearnerProfile) (*LearnerProfile, error)
	ListActiveStudentIDs(ctx context.Context, sinceTs int64, minMessages int) ([]string, error)
}
