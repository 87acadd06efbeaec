// Package postgres implements the store driver on PostgreSQL with the
// pgvector extension.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/clare-ai/clare/internal/profile"
)

// DB holds the database connection and profile.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a database connection and verifies it.
func NewDB(profile *profile.Profile) (*DB, error) {
	if profile.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() any {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the schema if it does not exist. The vector column
// dimension follows the configured embedding dimensions.
func (d *DB) Migrate(ctx context.Context) error {
	dimensions := d.profile.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = 1024
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS course_chunk (
			id SERIAL PRIMARY KEY,
			uid TEXT NOT NULL UNIQUE,
			course_id TEXT NOT NULL,
			source TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_ts BIGINT NOT NULL
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS idx_course_chunk_course_id ON course_chunk (course_id)`,
		`CREATE TABLE IF NOT EXISTS chat_message (
			id BIGSERIAL PRIMARY KEY,
			student_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			route TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_message_student_ts ON chat_message (student_id, created_ts)`,
		`CREATE TABLE IF NOT EXISTS learner_profile (
			student_id TEXT PRIMARY KEY,
			profile JSONB NOT NULL,
			provenance JSONB NOT NULL DEFAULT '{}',
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to run migration")
		}
	}

	slog.Info("database schema up to date", "embedding_dimensions", dimensions)
	return nil
}

// placeholder returns the positional parameter marker for index n (1-based).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns "$1, $2, ..., $n".
func placeholders(n int) string {
	list := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			list += ", "
		}
		list += placeholder(i)
	}
	return list
}
