package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminSessionRepository handles admin session database operations.
type AdminSessionRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a new session.
func (r *AdminSessionRepository) Create(ctx context.Context, session *AdminSession) error {
	query := `
		INSERT INTO admin_sessions (id, created_at, expires_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get retrieves an unexpired session by ID.
func (r *AdminSessionRepository) Get(ctx context.Context, id string) (*AdminSession, error) {
	query := `
		SELECT id, created_at, expires_at
		FROM admin_sessions
		WHERE id = $1 AND expires_at > NOW()
	`
	var session AdminSession
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &session, nil
}

// Delete removes a session by ID.
func (r *AdminSessionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM admin_sessions WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired sessions.
func (r *AdminSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM admin_sessions WHERE expires_at <= NOW()`
	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}
