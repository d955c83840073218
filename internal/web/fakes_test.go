package web

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/justestif/songboard/internal/catalog"
	"github.com/justestif/songboard/internal/db"
	"github.com/justestif/songboard/internal/localstore"
	webfs "github.com/justestif/songboard/web"
)

type fakeCurated struct {
	mu   sync.Mutex
	song *db.CuratedSong
	hash string
}

func (f *fakeCurated) Get(context.Context) (*db.CuratedSong, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.song == nil {
		return nil, db.ErrNotFound
	}
	s := *f.song
	return &s, nil
}

func (f *fakeCurated) Update(_ context.Context, song *db.CuratedSong) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	song.UpdatedAt = time.Now()
	s := *song
	f.song = &s
	return nil
}

func (f *fakeCurated) AdminPassHash(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hash, nil
}

type fakeRecommendations struct {
	mu   sync.Mutex
	recs []db.Recommendation
}

func (f *fakeRecommendations) List(context.Context) ([]db.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Clone(f.recs)
	slices.SortStableFunc(out, func(a, b db.Recommendation) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (f *fakeRecommendations) Create(_ context.Context, rec *db.Recommendation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	f.recs = append(f.recs, *rec)
	return nil
}

func (f *fakeRecommendations) update(id uuid.UUID, fn func(*db.Recommendation)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.recs {
		if f.recs[i].ID == id {
			fn(&f.recs[i])
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeRecommendations) UpdateRating(_ context.Context, id uuid.UUID, rating *int) error {
	return f.update(id, func(r *db.Recommendation) { r.Rating = rating })
}

func (f *fakeRecommendations) UpdateMessage(_ context.Context, id uuid.UUID, message *string) error {
	return f.update(id, func(r *db.Recommendation) { r.Message = message })
}

type fakeMessages struct {
	mu       sync.Mutex
	msgs     []db.Message
	failLike bool
	setCalls int
}

func (f *fakeMessages) List(context.Context) ([]db.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.msgs), nil
}

func (f *fakeMessages) ThreadRoot(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		i := slices.IndexFunc(f.msgs, func(m db.Message) bool { return m.ID == id })
		if i < 0 {
			return uuid.Nil, db.ErrNotFound
		}
		if f.msgs[i].ReplyTo == nil {
			return id, nil
		}
		id = *f.msgs[i].ReplyTo
	}
}

func (f *fakeMessages) Create(_ context.Context, m *db.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	f.msgs = append(f.msgs, *m)
	return nil
}

func (f *fakeMessages) SetLikes(_ context.Context, id uuid.UUID, likes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.failLike {
		return errors.New("connection reset")
	}
	for i := range f.msgs {
		if f.msgs[i].ID == id {
			f.msgs[i].Likes = likes
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeMessages) likes(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			return m.Likes
		}
	}
	return -1
}

type fakeTracks struct {
	tracks map[string]*catalog.TrackMetadata
}

func (f *fakeTracks) TrackInfo(_ context.Context, rawURL string) (*catalog.TrackMetadata, bool) {
	meta, ok := f.tracks[rawURL]
	return meta, ok
}

type testEnv struct {
	server          *httptest.Server
	curated         *fakeCurated
	recommendations *fakeRecommendations
	messages        *fakeMessages
	tracks          *fakeTracks
	sessions        *SessionStore
	likes           *localstore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	require.NoError(t, err)
	static, err := fs.Sub(webfs.StaticFS, "static")
	require.NoError(t, err)

	likes, err := localstore.Open(filepath.Join(t.TempDir(), "likes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { likes.Close() })

	env := &testEnv{
		curated:         &fakeCurated{},
		recommendations: &fakeRecommendations{},
		messages:        &fakeMessages{},
		tracks:          &fakeTracks{tracks: map[string]*catalog.TrackMetadata{}},
		sessions:        NewSessionStore(),
		likes:           likes,
	}

	srv, err := NewServer(ServerConfig{
		TemplatesFS:     templates,
		StaticFS:        static,
		Curated:         env.curated,
		Recommendations: env.recommendations,
		Messages:        env.messages,
		Tracks:          env.tracks,
		Likes:           likes,
		Sessions:        env.sessions,
	})
	require.NoError(t, err)

	env.server = httptest.NewServer(srv.Handler())
	t.Cleanup(env.server.Close)
	return env
}

// client returns an HTTP client that keeps cookies and does not follow redirects.
func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// adminClient returns a client holding an unlocked admin session.
func (e *testEnv) adminClient(t *testing.T) *http.Client {
	t.Helper()
	c := e.client(t)
	session, err := e.sessions.Create(context.Background())
	require.NoError(t, err)
	u, err := url.Parse(e.server.URL)
	require.NoError(t, err)
	c.Jar.SetCookies(u, []*http.Cookie{{Name: sessionCookieName, Value: session.ID, Path: "/"}})
	return c
}

func (e *testEnv) addMessage(body string, parent *uuid.UUID, likes int, age time.Duration) uuid.UUID {
	e.messages.mu.Lock()
	defer e.messages.mu.Unlock()
	id := uuid.New()
	e.messages.msgs = append(e.messages.msgs, db.Message{
		ID:        id,
		Body:      body,
		Author:    "tester",
		ReplyTo:   parent,
		Likes:     likes,
		CreatedAt: time.Now().Add(-age),
	})
	return id
}

// postForm sends a form POST, optionally as the page script would.
func postForm(t *testing.T, c *http.Client, target string, form url.Values, script bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if script {
		req.Header.Set("X-Requested-With", "fetch")
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// get fetches target and returns the response and its body.
func get(t *testing.T, c *http.Client, target string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}
