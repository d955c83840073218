package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to SONGBOARD_TEST_DATABASE_URL, skipping when unset.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("SONGBOARD_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SONGBOARD_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(database.Close)

	require.NoError(t, database.Migrate(ctx))
	require.NoError(t, database.Migrate(ctx), "migrations must be idempotent")

	_, err = database.pool.Exec(ctx, `TRUNCATE messages, recommendations, admin_sessions`)
	require.NoError(t, err)
	return database
}

func TestMessages(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	repo := database.Messages()

	parent := &Message{Body: "hello", Author: "sam"}
	require.NoError(t, repo.Create(ctx, parent))
	assert.NotEqual(t, uuid.Nil, parent.ID)

	reply := &Message{Body: "hi back", Author: "kim", ReplyTo: &parent.ID}
	require.NoError(t, repo.Create(ctx, reply))

	root, err := repo.ThreadRoot(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, root)
	root, err = repo.ThreadRoot(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, root, "a reply resolves to its top-level message")
	_, err = repo.ThreadRoot(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.SetLikes(ctx, parent.ID, 3))
	assert.ErrorIs(t, repo.SetLikes(ctx, uuid.New(), 1), ErrNotFound)

	msgs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, reply.ID, msgs[0].ID, "newest first")
	assert.Equal(t, parent.ID, *msgs[0].ReplyTo)
	assert.Equal(t, 3, msgs[1].Likes)
}

func TestRecommendations(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	repo := database.Recommendations()

	rec := &Recommendation{Name: "sam", SongTitle: "Song", Artist: "Band"}
	require.NoError(t, repo.Create(ctx, rec))

	rating := 8
	require.NoError(t, repo.UpdateRating(ctx, rec.ID, &rating))
	note := "nice"
	require.NoError(t, repo.UpdateMessage(ctx, rec.ID, &note))

	recs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].Rating)
	assert.Equal(t, 8, *recs[0].Rating)
	assert.Equal(t, "nice", *recs[0].Message)
	assert.Nil(t, recs[0].Link)

	require.NoError(t, repo.UpdateRating(ctx, rec.ID, nil))
	assert.ErrorIs(t, repo.UpdateMessage(ctx, uuid.New(), nil), ErrNotFound)

	bad := 11
	assert.Error(t, repo.UpdateRating(ctx, rec.ID, &bad), "rating is constrained to 1..10")
}

func TestCuratedAndSessions(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	link := "https://open.spotify.com/track/abc"
	song := &CuratedSong{Title: "Song", Artist: "Band", Link: &link}
	require.NoError(t, database.Curated().Update(ctx, song))
	got, err := database.Curated().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Song", got.Title)
	assert.Equal(t, link, *got.Link)

	require.NoError(t, database.Curated().SetAdminPassHash(ctx, "hash"))
	hash, err := database.Curated().AdminPassHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hash", hash)

	sessions := database.Sessions()
	now := time.Now()
	require.NoError(t, sessions.Create(ctx, &AdminSession{ID: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, sessions.Create(ctx, &AdminSession{ID: "old", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}))

	_, err = sessions.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := sessions.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, sessions.Delete(ctx, "live"))
	_, err = sessions.Get(ctx, "live")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListen(t *testing.T) {
	database := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 8)
	done := make(chan error, 1)
	go func() { done <- database.Listen(ctx, func(c string) { got <- c }) }()

	// LISTEN is registered asynchronously; keep writing until one arrives.
	require.Eventually(t, func() bool {
		_ = database.Messages().Create(context.Background(), &Message{Body: "ping", Author: "t"})
		select {
		case c := <-got:
			return c == CollectionMessages
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}
