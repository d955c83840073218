package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxThreadDepth bounds the ancestor walk in ThreadRoot.
const maxThreadDepth = 32

// MessageRepository handles guestbook message database operations.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// List retrieves every message and reply, newest first.
func (r *MessageRepository) List(ctx context.Context) ([]Message, error) {
	query := `
		SELECT id, message, author, message_reply, likes, created_at
		FROM messages
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID,
			&m.Body,
			&m.Author,
			&m.ReplyTo,
			&m.Likes,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}

// ThreadRoot returns the top-level message that id belongs to: id itself for
// a top-level message, or the first ancestor without a parent for a reply.
// It returns ErrNotFound when id does not exist.
func (r *MessageRepository) ThreadRoot(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	query := `
		WITH RECURSIVE chain AS (
			SELECT id, message_reply, 0 AS depth
			FROM messages
			WHERE id = $1
			UNION ALL
			SELECT m.id, m.message_reply, c.depth + 1
			FROM messages m
			JOIN chain c ON m.id = c.message_reply
			WHERE c.depth < $2
		)
		SELECT id FROM chain WHERE message_reply IS NULL LIMIT 1
	`
	var root uuid.UUID
	err := r.pool.QueryRow(ctx, query, id, maxThreadDepth).Scan(&root)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("querying thread root: %w", err)
	}
	return root, nil
}

// Create inserts a new message with zero likes, assigning its ID when unset.
func (r *MessageRepository) Create(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO messages (id, message, author, message_reply, likes, created_at)
		VALUES ($1, $2, $3, $4, 0, NOW())
		RETURNING created_at
	`
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.Likes = 0
	err := r.pool.QueryRow(ctx, query,
		m.ID,
		m.Body,
		m.Author,
		m.ReplyTo,
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// SetLikes overwrites a message's shared like counter.
func (r *MessageRepository) SetLikes(ctx context.Context, id uuid.UUID, likes int) error {
	result, err := r.pool.Exec(ctx, `UPDATE messages SET likes = $2 WHERE id = $1`, id, likes)
	if err != nil {
		return fmt.Errorf("updating likes: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
