package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/clare-ai/clare/store"
)

// CreateCourseChunk inserts a course chunk with its embedding.
func (d *DB) CreateCourseChunk(ctx context.Context, create *store.CreateCourseChunk) (*store.CourseChunk, error) {
	stmt := `
		INSERT INTO course_chunk (uid, course_id, source, title, content, embedding, created_ts)
		VALUES (` + placeholders(7) + `)
		ON CONFLICT (uid)
		DO UPDATE SET
			course_id = EXCLUDED.course_id,
			source = EXCLUDED.source,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			created_ts = EXCLUDED.created_ts
		RETURNING id
	`

	chunk := create.Chunk
	vector := pgvector.NewVector(create.Embedding)
	err := d.db.QueryRowContext(ctx, stmt,
		chunk.UID,
		chunk.CourseID,
		chunk.Source,
		chunk.Title,
		chunk.Content,
		vector,
		chunk.CreatedTs,
	).Scan(&chunk.ID)

	if err != nil {
		return nil, errors.Wrap(err, "failed to create course chunk")
	}

	return chunk, nil
}

// ChunkVectorSearch performs cosine similarity search over course chunks.
// The <=> operator computes cosine distance, so ordering by it ascending
// returns the most similar chunks first.
func (d *DB) ChunkVectorSearch(ctx context.Context, opts *store.ChunkVectorSearchOptions) ([]*store.ScoredChunk, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := []string{"1 = 1"}, []any{}
	if opts.CourseID != nil {
		where = append(where, "course_id = "+placeholder(len(args)+1))
		args = append(args, *opts.CourseID)
	}

	vector := pgvector.NewVector(opts.Vector)
	scoreArg := placeholder(len(args) + 1)
	orderArg := placeholder(len(args) + 2)
	limitArg := placeholder(len(args) + 3)
	args = append(args, vector, vector, limit)

	query := `
		SELECT
			id, uid, course_id, source, title, content, created_ts,
			1 - (embedding <=> ` + scoreArg + `) AS score
		FROM course_chunk
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> ` + orderArg + `
		LIMIT ` + limitArg

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search course chunks")
	}
	defer rows.Close()

	results := []*store.ScoredChunk{}
	for rows.Next() {
		var result store.ScoredChunk
		var chunk store.CourseChunk

		err := rows.Scan(
			&chunk.ID,
			&chunk.UID,
			&chunk.CourseID,
			&chunk.Source,
			&chunk.Title,
			&chunk.Content,
			&chunk.CreatedTs,
			&result.Score,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan course chunk search result")
		}

		result.Chunk = &chunk
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// DeleteCourseChunks removes all chunks belonging to a course.
func (d *DB) DeleteCourseChunks(ctx context.Context, courseID string) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM course_chunk WHERE course_id = `+placeholder(1), courseID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete course chunks")
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
