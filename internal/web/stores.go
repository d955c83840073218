package web

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/justestif/songboard/internal/catalog"
	"github.com/justestif/songboard/internal/db"
	"github.com/justestif/songboard/internal/feed"
)

// CuratedStore reads and writes the featured song.
type CuratedStore interface {
	Get(ctx context.Context) (*db.CuratedSong, error)
	Update(ctx context.Context, song *db.CuratedSong) error
	AdminPassHash(ctx context.Context) (string, error)
}

// RecommendationStore reads and writes visitor recommendations.
type RecommendationStore interface {
	List(ctx context.Context) ([]db.Recommendation, error)
	Create(ctx context.Context, rec *db.Recommendation) error
	UpdateRating(ctx context.Context, id uuid.UUID, rating *int) error
	UpdateMessage(ctx context.Context, id uuid.UUID, message *string) error
}

// MessageStore reads and writes guestbook messages.
type MessageStore interface {
	List(ctx context.Context) ([]db.Message, error)
	ThreadRoot(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	Create(ctx context.Context, m *db.Message) error
	SetLikes(ctx context.Context, id uuid.UUID, likes int) error
}

// TrackLookup resolves catalog track links to metadata.
type TrackLookup interface {
	TrackInfo(ctx context.Context, rawURL string) (*catalog.TrackMetadata, bool)
}

// Ensure the database repositories satisfy the handler interfaces.
var (
	_ CuratedStore        = (*db.CuratedSongRepository)(nil)
	_ RecommendationStore = (*db.RecommendationRepository)(nil)
	_ MessageStore        = (*db.MessageRepository)(nil)
	_ TrackLookup         = (*catalog.Client)(nil)
)

// likeCounter adapts a MessageStore to feed.CounterUpdater.
type likeCounter struct {
	messages MessageStore
}

func (c likeCounter) SetLikes(ctx context.Context, id string, count int) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("parsing message id: %w", err)
	}
	return c.messages.SetLikes(ctx, uid, count)
}

// messageRecords converts stored messages to feed records.
func messageRecords(msgs []db.Message) []feed.Record {
	records := make([]feed.Record, 0, len(msgs))
	for _, m := range msgs {
		rec := feed.Record{
			ID:        m.ID.String(),
			CreatedAt: m.CreatedAt,
			Body:      m.Body,
			Author:    m.Author,
			Likes:     m.Likes,
		}
		if m.ReplyTo != nil {
			rec.ParentID = m.ReplyTo.String()
		}
		records = append(records, rec)
	}
	return records
}
