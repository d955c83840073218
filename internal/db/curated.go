package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CuratedSongRepository handles the featured-song row.
type CuratedSongRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves the featured song.
func (r *CuratedSongRepository) Get(ctx context.Context) (*CuratedSong, error) {
	query := `
		SELECT title, artist, link, artwork_url, apple_music_url, updated_at
		FROM curated_song
		WHERE id = 1
	`
	var song CuratedSong
	err := r.pool.QueryRow(ctx, query).Scan(
		&song.Title,
		&song.Artist,
		&song.Link,
		&song.ArtworkURL,
		&song.AppleMusicURL,
		&song.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying curated song: %w", err)
	}
	return &song, nil
}

// Update replaces the featured song and returns the stored row.
func (r *CuratedSongRepository) Update(ctx context.Context, song *CuratedSong) error {
	query := `
		UPDATE curated_song
		SET title = $1, artist = $2, link = $3, artwork_url = $4, apple_music_url = $5, updated_at = NOW()
		WHERE id = 1
		RETURNING updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		song.Title,
		song.Artist,
		song.Link,
		song.ArtworkURL,
		song.AppleMusicURL,
	).Scan(&song.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("updating curated song: %w", err)
	}
	return nil
}

// AdminPassHash returns the stored bcrypt hash of the admin passphrase.
// An empty hash means admin mode has not been configured.
func (r *CuratedSongRepository) AdminPassHash(ctx context.Context) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `SELECT admin_pass FROM curated_song WHERE id = 1`).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying admin pass: %w", err)
	}
	return hash, nil
}

// SetAdminPassHash stores a new bcrypt hash for the admin passphrase.
func (r *CuratedSongRepository) SetAdminPassHash(ctx context.Context, hash string) error {
	result, err := r.pool.Exec(ctx, `UPDATE curated_song SET admin_pass = $1 WHERE id = 1`, hash)
	if err != nil {
		return fmt.Errorf("updating admin pass: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
