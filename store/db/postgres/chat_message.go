package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/clare-ai/clare/store"
)

// CreateChatMessage appends a chat turn.
func (d *DB) CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	stmt := `
		INSERT INTO chat_message (student_id, role, content, route, created_ts)
		VALUES (` + placeholders(5) + `)
		RETURNING id
	`

	err := d.db.QueryRowContext(ctx, stmt,
		create.StudentID,
		create.Role,
		create.Content,
		create.Route,
		create.CreatedTs,
	).Scan(&create.ID)

	if err != nil {
		return nil, errors.Wrap(err, "failed to create chat message")
	}

	return create, nil
}

// ListChatMessages returns chat turns newest first.
func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	where, args := chatMessageFilter(find)

	limit := find.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := `
		SELECT id, student_id, role, content, route, created_ts
		FROM chat_message
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC
		LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat messages")
	}
	defer rows.Close()

	list := []*store.ChatMessage{}
	for rows.Next() {
		var message store.ChatMessage
		err := rows.Scan(
			&message.ID,
			&message.StudentID,
			&message.Role,
			&message.Content,
			&message.Route,
			&message.CreatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan chat message")
		}
		list = append(list, &message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// CountChatMessages counts chat turns matching the filter.
func (d *DB) CountChatMessages(ctx context.Context, find *store.FindChatMessage) (int64, error) {
	where, args := chatMessageFilter(find)

	query := `SELECT COUNT(*) FROM chat_message WHERE ` + strings.Join(where, " AND ")

	var count int64
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count chat messages")
	}
	return count, nil
}

func chatMessageFilter(find *store.FindChatMessage) ([]string, []any) {
	where, args := []string{"1 = 1"}, []any{}

	if find.StudentID != nil {
		where = append(where, "student_id = "+placeholder(len(args)+1))
		args = append(args, *find.StudentID)
	}
	if find.SinceTs != nil {
		where = append(where, "created_ts >= "+placeholder(len(args)+1))
		args = append(args, *find.SinceTs)
	}

	return where, args
}
