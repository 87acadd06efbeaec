package store

import (
	"context"

	"github.com/clare-ai/clare/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.driver.Ping(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) CreateCourseChunk(ctx context.Context, create *CreateCourseChunk) (*CourseChunk, error) {
	return s.driver.CreateCourseChunk(ctx, create)
}

func (s *Store) ChunkVectorSearch(ctx context.Context, opts *ChunkVectorSearchOptions) ([]*ScoredChunk, error) {
	return s.driver.ChunkVectorSearch(ctx, opts)
}

func (s *Store) DeleteCourseChunks(ctx context.Context, courseID string) (int64, error) {
	return s.driver.DeleteCourseChunks(ctx, courseID)
}

func (s *Store) CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error) {
	return s.driver.CreateChatMessage(ctx, create)
}

func (s *Store) ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error) {
	return s.driver.ListChatMessages(ctx, find)
}

func (s *Store) CountChatMessages(ctx context.Context, find *FindChatMessage) (int64, error) {
	return s.driver.CountChatMessages(ctx, find)
}

func (s *Store) GetLearnerProfile(ctx context.Context, find *FindLearnerProfile) (*LearnerProfile, error) {
	return s.driver.GetLearnerProfile(ctx, find)
}

func (s *Store) UpsertLearnerProfile(ctx context.Context, upsert *UpsertLearnerProfile) (*LearnerProfile, error) {
	return s.driver.UpsertLearnerProfile(ctx, upsert)
}

func (s *Store) ListActiveStudentIDs(ctx context.Context, sinceTs int64, minMessages int) ([]string, error) {
	return s.driver.ListActiveStudentIDs(ctx, sinceTs, minMessages)
}
