package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/clare-ai/clare/store"
)

// GetLearnerProfile fetches a student's profile. Returns nil without error
// when the student has no profile yet.
func (d *DB) GetLearnerProfile(ctx context.Context, find *store.FindLearnerProfile) (*store.LearnerProfile, error) {
	query := `
		SELECT student_id, profile, provenance, created_ts, updated_ts
		FROM learner_profile
		WHERE student_id = ` + placeholder(1)

	var p store.LearnerProfile
	err := d.db.QueryRowContext(ctx, query, find.StudentID).Scan(
		&p.StudentID,
		&p.Profile,
		&p.Provenance,
		&p.CreatedTs,
		&p.UpdatedTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get learner profile")
	}

	return &p, nil
}

// UpsertLearnerProfile creates or replaces a student's profile.
func (d *DB) UpsertLearnerProfile(ctx context.Context, upsert *store.UpsertLearnerProfile) (*store.LearnerProfile, error) {
	stmt := `
		INSERT INTO learner_profile (student_id, profile, provenance, created_ts, updated_ts)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(4) + `)
		ON CONFLICT (student_id)
		DO UPDATE SET
			profile = EXCLUDED.profile,
			provenance = EXCLUDED.provenance,
			updated_ts = EXCLUDED.updated_ts
		RETURNING student_id, profile, provenance, created_ts, updated_ts
	`

	var p store.LearnerProfile
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.StudentID,
		upsert.Profile,
		upsert.Provenance,
		upsert.UpdatedTs,
	).Scan(
		&p.StudentID,
		&p.Profile,
		&p.Provenance,
		&p.CreatedTs,
		&p.UpdatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert learner profile")
	}

	return &p, nil
}

// ListActiveStudentIDs returns students with at least minMessages user turns
// since the cutoff timestamp.
func (d *DB) ListActiveStudentIDs(ctx context.Context, sinceTs int64, minMessages int) ([]string, error) {
	if minMessages <= 0 {
		minMessages = 1
	}

	query := `
		SELECT student_id
		FROM chat_message
		WHERE created_ts >= ` + placeholder(1) + `
			AND role = 'user'
		GROUP BY student_id
		HAVING COUNT(*) >= ` + placeholder(2) + `
		ORDER BY student_id
	`

	rows, err := d.db.QueryContext(ctx, query, sinceTs, minMessages)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active students")
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan student id")
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
