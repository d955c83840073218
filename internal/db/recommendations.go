package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecommendationRepository handles recommendation database operations.
type RecommendationRepository struct {
	pool *pgxpool.Pool
}

// List retrieves all recommendations, newest first.
func (r *RecommendationRepository) List(ctx context.Context) ([]Recommendation, error) {
	query := `
		SELECT id, name, song_title, artist, link, rating, message, created_at
		FROM recommendations
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}
	defer rows.Close()

	var recs []Recommendation
	for rows.Next() {
		var rec Recommendation
		if err := rows.Scan(
			&rec.ID,
			&rec.Name,
			&rec.SongTitle,
			&rec.Artist,
			&rec.Link,
			&rec.Rating,
			&rec.Message,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning recommendation: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recommendations: %w", err)
	}
	return recs, nil
}

// Create inserts a new recommendation, assigning its ID when unset.
func (r *RecommendationRepository) Create(ctx context.Context, rec *Recommendation) error {
	query := `
		INSERT INTO recommendations (id, name, song_title, artist, link, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, query,
		rec.ID,
		rec.Name,
		rec.SongTitle,
		rec.Artist,
		rec.Link,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting recommendation: %w", err)
	}
	return nil
}

// UpdateRating sets or clears (nil) a recommendation's rating.
func (r *RecommendationRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating *int) error {
	result, err := r.pool.Exec(ctx, `UPDATE recommendations SET rating = $2 WHERE id = $1`, id, rating)
	if err != nil {
		return fmt.Errorf("updating rating: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateMessage sets or clears (nil) the admin note on a recommendation.
func (r *RecommendationRepository) UpdateMessage(ctx context.Context, id uuid.UUID, message *string) error {
	result, err := r.pool.Exec(ctx, `UPDATE recommendations SET message = $2 WHERE id = $1`, id, message)
	if err != nil {
		return fmt.Errorf("updating recommendation message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
