package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/justestif/songboard/internal/catalog"
	"github.com/justestif/songboard/internal/db"
	"github.com/justestif/songboard/internal/feed"
	"github.com/justestif/songboard/internal/localstore"
	"github.com/justestif/songboard/internal/metrics"
)

// MaxTextLength bounds message bodies and admin notes, in characters.
const MaxTextLength = 100

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	curated         CuratedStore
	recommendations RecommendationStore
	messages        MessageStore
	tracks          TrackLookup
	likes           feed.KV
	sessions        SessionManager
	templates       *Templates
	logger          *zap.Logger
}

// HandlerDeps groups the collaborators of Handlers.
type HandlerDeps struct {
	Curated         CuratedStore
	Recommendations RecommendationStore
	Messages        MessageStore
	Tracks          TrackLookup
	Likes           feed.KV
	Sessions        SessionManager
	Templates       *Templates
	Logger          *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps HandlerDeps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		curated:         deps.Curated,
		recommendations: deps.Recommendations,
		messages:        deps.Messages,
		tracks:          deps.Tracks,
		likes:           deps.Likes,
		sessions:        deps.Sessions,
		templates:       deps.Templates,
		logger:          logger,
	}
}

// pageData builds the common page fields and consumes any pending flash.
func (h *Handlers) pageData(w http.ResponseWriter, r *http.Request, title string) PageData {
	return PageData{
		Title:       title,
		Admin:       h.sessions.GetFromRequest(r) != nil,
		Flash:       popFlash(w, r),
		CurrentPath: r.URL.Path,
	}
}

func (h *Handlers) render(w http.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, page, data); err != nil {
		h.logger.Error("rendering template", zap.String("page", page), zap.Error(err))
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

func (h *Handlers) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	http.Error(w, msg, http.StatusInternalServerError)
}

// redirectWithFlash stores a flash message and sends the visitor to target.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	setFlash(w, kind, message)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// showParam reads the "show" query value, clamped to at least one page.
func showParam(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("show"))
	return max(n, feed.PageSize)
}

// ============================================================================
// Featured song
// ============================================================================

// Home shows the featured song (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	data := HomePageData{PageData: h.pageData(w, r, "songboard")}

	song, err := h.curated.Get(r.Context())
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		h.serverError(w, "Failed to load featured song", err)
		return
	default:
		sd := songData(song)
		if sd.Title != "" {
			data.Song = &sd
		}
	}

	h.render(w, "home", data)
}

func songData(song *db.CuratedSong) SongData {
	return SongData{
		Title:         song.Title,
		Artist:        song.Artist,
		Link:          deref(song.Link),
		ArtworkURL:    deref(song.ArtworkURL),
		AppleMusicURL: deref(song.AppleMusicURL),
		UpdatedAt:     song.UpdatedAt,
	}
}

// CuratedPage shows the featured-song editor (GET /admin/curated).
func (h *Handlers) CuratedPage(w http.ResponseWriter, r *http.Request) {
	data := CuratedPageData{PageData: h.pageData(w, r, "Edit featured song")}

	song, err := h.curated.Get(r.Context())
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		h.serverError(w, "Failed to load featured song", err)
		return
	}
	if song != nil {
		data.Song = songData(song)
	}

	h.render(w, "admin_curated", data)
}

// UpdateCurated saves the featured song (POST /admin/curated). Blank title,
// artist and artwork are filled from the catalog when the link is a track link.
func (h *Handlers) UpdateCurated(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	song := &db.CuratedSong{
		Title:         strings.TrimSpace(r.PostFormValue("title")),
		Artist:        strings.TrimSpace(r.PostFormValue("artist")),
		Link:          optional(r.PostFormValue("link")),
		ArtworkURL:    optional(r.PostFormValue("artwork_url")),
		AppleMusicURL: optional(r.PostFormValue("apple_music_url")),
	}
	if song.Link == nil {
		redirectWithFlash(w, r, "/admin/curated", "error", "A link is required.")
		return
	}

	if song.Title == "" || song.Artist == "" || song.ArtworkURL == nil {
		h.autofill(r.Context(), song)
	}
	if song.Title == "" || song.Artist == "" {
		redirectWithFlash(w, r, "/admin/curated", "error", "Title and artist are required.")
		return
	}

	if err := h.curated.Update(r.Context(), song); err != nil {
		h.logger.Error("updating featured song", zap.Error(err))
		redirectWithFlash(w, r, "/admin/curated", "error", "Failed to update featured song.")
		return
	}

	redirectWithFlash(w, r, "/", "success", "Featured song updated.")
}

// autofill copies catalog metadata into blank fields of song.
func (h *Handlers) autofill(ctx context.Context, song *db.CuratedSong) {
	if _, ok := catalog.ExtractTrackID(*song.Link); !ok {
		return
	}
	meta, ok := h.tracks.TrackInfo(ctx, *song.Link)
	if !ok {
		return
	}
	if song.Title == "" {
		song.Title = meta.Title
	}
	if song.Artist == "" {
		song.Artist = meta.Artist()
	}
	if song.ArtworkURL == nil && meta.ArtworkURL != "" {
		artwork := meta.ArtworkURL
		song.ArtworkURL = &artwork
	}
}

// TrackAPI returns catalog metadata for ?url= as JSON (GET /api/track).
// Every lookup failure is reported as 404.
func (h *Handlers) TrackAPI(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.tracks.TrackInfo(r.Context(), r.URL.Query().Get("url"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "track not found"})
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ============================================================================
// Recommendations
// ============================================================================

// Recommendations lists recommendations newest first (GET /recommendations).
func (h *Handlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.recommendations.List(r.Context())
	if err != nil {
		h.serverError(w, "Failed to load recommendations", err)
		return
	}

	show := showParam(r)
	data := RecommendationsPageData{PageData: h.pageData(w, r, "Recommendations")}
	if len(recs) > show {
		recs = recs[:show]
		data.MoreURL = "/recommendations?show=" + strconv.Itoa(show+feed.PageSize)
	}
	for _, rec := range recs {
		rd := RecommendationData{
			ID:        rec.ID.String(),
			Name:      rec.Name,
			SongTitle: rec.SongTitle,
			Artist:    rec.Artist,
			Link:      deref(rec.Link),
			Message:   deref(rec.Message),
			CreatedAt: rec.CreatedAt,
		}
		if rec.Rating != nil {
			rd.Rating = *rec.Rating
		}
		data.Recommendations = append(data.Recommendations, rd)
	}

	h.render(w, "recommendations", data)
}

// CreateRecommendation stores a visitor recommendation (POST /recommendations).
func (h *Handlers) CreateRecommendation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	rec := &db.Recommendation{
		Name:      strings.TrimSpace(r.PostFormValue("name")),
		SongTitle: strings.TrimSpace(r.PostFormValue("song_title")),
		Artist:    strings.TrimSpace(r.PostFormValue("artist")),
		Link:      optional(r.PostFormValue("link")),
	}
	if rec.Name == "" || rec.SongTitle == "" || rec.Artist == "" {
		redirectWithFlash(w, r, "/recommendations", "error", "Name, song title and artist are required.")
		return
	}

	if err := h.recommendations.Create(r.Context(), rec); err != nil {
		h.logger.Error("creating recommendation", zap.Error(err))
		redirectWithFlash(w, r, "/recommendations", "error", "Failed to submit recommendation.")
		return
	}

	redirectWithFlash(w, r, "/recommendations", "success", "Thanks for the recommendation!")
}

// RateRecommendation sets or clears a rating (POST /recommendations/{id}/rating).
func (h *Handlers) RateRecommendation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid recommendation id", http.StatusBadRequest)
		return
	}

	var rating *int
	if raw := strings.TrimSpace(r.FormValue("rating")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 10 {
			http.Error(w, "Rating must be between 1 and 10", http.StatusBadRequest)
			return
		}
		rating = &n
	}

	if err := h.recommendations.UpdateRating(r.Context(), id, rating); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("updating rating", zap.Error(err))
		redirectWithFlash(w, r, "/recommendations", "error", "Failed to update rating.")
		return
	}

	redirectWithFlash(w, r, "/recommendations", "success", "Rating updated.")
}

// NoteRecommendation sets or clears the admin note (POST /recommendations/{id}/message).
func (h *Handlers) NoteRecommendation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid recommendation id", http.StatusBadRequest)
		return
	}

	note := optional(r.FormValue("message"))
	if note != nil && utf8.RuneCountInString(*note) > MaxTextLength {
		http.Error(w, "Note is too long", http.StatusBadRequest)
		return
	}

	if err := h.recommendations.UpdateMessage(r.Context(), id, note); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("updating note", zap.Error(err))
		redirectWithFlash(w, r, "/recommendations", "error", "Failed to update message.")
		return
	}

	if note == nil {
		redirectWithFlash(w, r, "/recommendations", "success", "Message deleted.")
		return
	}
	redirectWithFlash(w, r, "/recommendations", "success", "Message updated.")
}

// ============================================================================
// Messages
// ============================================================================

// loadViewModel builds the feed view model for the requesting visitor.
func (h *Handlers) loadViewModel(ctx context.Context) (*feed.ViewModel, error) {
	msgs, err := h.messages.List(ctx)
	if err != nil {
		return nil, err
	}
	return feed.NewViewModel(
		messageRecords(msgs),
		h.likes,
		localstore.LikesKey(VisitorID(ctx)),
		likeCounter{messages: h.messages},
	)
}

// Messages shows the threaded message board (GET /messages?sort=&show=&from=).
func (h *Handlers) Messages(w http.ResponseWriter, r *http.Request) {
	vm, err := h.loadViewModel(r.Context())
	if err != nil {
		h.serverError(w, "Failed to load messages", err)
		return
	}

	// The sort form sends the ordering it was rendered with as "from", so a
	// changed sort starts again at the first page.
	q := r.URL.Query()
	sort := feed.ParseSort(q.Get("sort"))
	from := sort
	if q.Has("from") {
		from = feed.ParseSort(q.Get("from"))
	}
	cursor := feed.NewCursor(from, showParam(r)).WithSort(sort)
	threads, more := cursor.Apply(vm.Threads(cursor.Sort))

	data := MessagesPageData{
		PageData: h.pageData(w, r, "Messages"),
		Sort:     string(cursor.Sort),
		Sorts:    []string{string(feed.SortRecent), string(feed.SortRating), string(feed.SortReplies)},
		Show:     cursor.Visible,
		MaxLen:   MaxTextLength,
	}
	if more {
		next := cursor.More()
		params := url.Values{}
		params.Set("sort", string(next.Sort))
		params.Set("show", strconv.Itoa(next.Visible))
		data.MoreURL = "/messages?" + params.Encode()
	}

	for _, t := range threads {
		td := ThreadData{MessageData: messageData(t.Record, vm)}
		for _, reply := range t.Replies {
			td.Replies = append(td.Replies, messageData(reply, vm))
		}
		data.Threads = append(data.Threads, td)
	}

	h.render(w, "messages", data)
}

func messageData(rec feed.Record, vm *feed.ViewModel) MessageData {
	return MessageData{
		ID:        rec.ID,
		Body:      rec.Body,
		Author:    rec.Author,
		Likes:     rec.Likes,
		Liked:     vm.Liked(rec.ID),
		CreatedAt: rec.CreatedAt,
	}
}

// CreateMessage posts a message or reply (POST /messages).
func (h *Handlers) CreateMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	body := strings.TrimSpace(r.PostFormValue("message"))
	author := strings.TrimSpace(r.PostFormValue("author"))
	switch {
	case body == "" || author == "":
		redirectWithFlash(w, r, "/messages", "error", "Name and message are required.")
		return
	case utf8.RuneCountInString(body) > MaxTextLength:
		redirectWithFlash(w, r, "/messages", "error", "Messages are limited to 100 characters.")
		return
	}

	m := &db.Message{Body: body, Author: author}
	if raw := strings.TrimSpace(r.PostFormValue("reply_to")); raw != "" {
		parent, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "Invalid reply target", http.StatusBadRequest)
			return
		}
		// Threads are one level deep: answering a reply joins its thread.
		root, err := h.messages.ThreadRoot(r.Context(), parent)
		if errors.Is(err, db.ErrNotFound) {
			redirectWithFlash(w, r, "/messages", "error", "That message no longer exists.")
			return
		}
		if err != nil {
			h.serverError(w, "Failed to check reply target", err)
			return
		}
		m.ReplyTo = &root
	}

	if err := h.messages.Create(r.Context(), m); err != nil {
		h.logger.Error("creating message", zap.Error(err))
		redirectWithFlash(w, r, "/messages", "error", "Failed to post message.")
		return
	}

	if m.ReplyTo != nil {
		redirectWithFlash(w, r, "/messages", "success", "Reply posted!")
		return
	}
	redirectWithFlash(w, r, "/messages", "success", "Message posted!")
}

// LikeMessage toggles the visitor's like (POST /messages/{id}/like). Script
// requests get the re-rendered like button; plain forms are redirected back.
func (h *Handlers) LikeMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	vm, err := h.loadViewModel(r.Context())
	if err != nil {
		h.serverError(w, "Failed to load messages", err)
		return
	}

	result, err := vm.ToggleLike(r.Context(), id)
	switch {
	case errors.Is(err, feed.ErrRecordNotFound):
		metrics.LikeToggles.WithLabelValues("not_found").Inc()
		http.NotFound(w, r)
		return
	case errors.Is(err, feed.ErrUpdateConflict):
		metrics.LikeToggles.WithLabelValues("rolled_back").Inc()
		h.logger.Warn("like update rolled back", zap.String("message_id", id), zap.Error(err))
		if isScript(r) {
			http.Error(w, "Failed to update like", http.StatusConflict)
			return
		}
		redirectWithFlash(w, r, backTo(r), "error", "Failed to update like.")
		return
	case err != nil:
		metrics.LikeToggles.WithLabelValues("error").Inc()
		h.serverError(w, "Failed to update like", err)
		return
	}
	metrics.LikeToggles.WithLabelValues("ok").Inc()

	if !isScript(r) {
		http.Redirect(w, r, backTo(r), http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = h.templates.RenderPartial(w, "like_button", MessageData{
		ID:    result.ID,
		Likes: result.Likes,
		Liked: result.Liked,
	})
	if err != nil {
		h.logger.Error("rendering like button", zap.Error(err))
	}
}

// isScript reports whether the request came from the page script.
func isScript(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "fetch"
}

// backTo returns the local page that submitted the form, or /messages.
func backTo(r *http.Request) string {
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path == "/messages" {
		return ref.RequestURI()
	}
	return "/messages"
}

// ============================================================================
// Admin mode
// ============================================================================

// AdminLoginPage shows the passphrase form (GET /admin/login).
func (h *Handlers) AdminLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "admin_login", h.pageData(w, r, "Admin"))
}

// AdminLogin checks the passphrase and unlocks admin mode (POST /admin/login).
func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	hash, err := h.curated.AdminPassHash(r.Context())
	if err != nil {
		h.logger.Error("loading admin pass", zap.Error(err))
		redirectWithFlash(w, r, "/admin/login", "error", "Failed to load admin password.")
		return
	}
	if hash == "" {
		redirectWithFlash(w, r, "/admin/login", "error", "Admin mode is not configured.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(r.PostFormValue("password"))); err != nil {
		redirectWithFlash(w, r, "/admin/login", "error", "Incorrect password.")
		return
	}

	session, err := h.sessions.Create(r.Context())
	if err != nil {
		h.serverError(w, "Failed to create session", err)
		return
	}
	h.sessions.SetCookie(w, session)

	redirectWithFlash(w, r, "/", "success", "Access granted.")
}

// AdminLogout clears the session and redirects to home (POST /admin/logout).
func (h *Handlers) AdminLogout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}

	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// optional trims s and returns nil when it is empty.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
