package db

import (
	"time"

	"github.com/google/uuid"
)

// Collection names as delivered by change notifications.
const (
	CollectionCurated         = "curated_song"
	CollectionRecommendations = "recommendations"
	CollectionMessages        = "messages"
)

// CuratedSong is the single featured-song row.
type CuratedSong struct {
	Title         string
	Artist        string
	Link          *string // nullable
	ArtworkURL    *string // nullable
	AppleMusicURL *string // nullable
	UpdatedAt     time.Time
}

// Recommendation is a song submitted by a visitor.
type Recommendation struct {
	ID        uuid.UUID
	Name      string
	SongTitle string
	Artist    string
	Link      *string // nullable
	Rating    *int    // nullable, 1..10
	Message   *string // nullable - admin note
	CreatedAt time.Time
}

// Message is a guestbook entry. ReplyTo is set for replies.
type Message struct {
	ID        uuid.UUID
	Body      string
	Author    string
	ReplyTo   *uuid.UUID // nullable
	Likes     int
	CreatedAt time.Time
}

// AdminSession is an unlocked admin-mode session.
type AdminSession struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}
