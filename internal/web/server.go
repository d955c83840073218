package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/justestif/songboard/internal/feed"
)

const (
	// DefaultAddr is the default server address.
	DefaultAddr = "127.0.0.1:8080"

	submissionRequests = 5
	submissionWindow   = time.Minute
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr        string
	TemplatesFS fs.FS
	StaticFS    fs.FS

	Curated         CuratedStore
	Recommendations RecommendationStore
	Messages        MessageStore
	Tracks          TrackLookup
	Likes           feed.KV
	Sessions        SessionManager

	// Realtime serves the live-refresh websocket; nil disables /ws.
	Realtime http.Handler
	Logger   *zap.Logger
}

// Server is the HTTP server for the web application.
type Server struct {
	router    chi.Router
	server    *http.Server
	templates *Templates
	handlers  *Handlers
	logger    *zap.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Sessions == nil {
		cfg.Sessions = NewSessionStore()
	}

	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	handlers := NewHandlers(HandlerDeps{
		Curated:         cfg.Curated,
		Recommendations: cfg.Recommendations,
		Messages:        cfg.Messages,
		Tracks:          cfg.Tracks,
		Likes:           cfg.Likes,
		Sessions:        cfg.Sessions,
		Templates:       templates,
		Logger:          logger,
	})

	s := &Server{
		router:    chi.NewRouter(),
		templates: templates,
		handlers:  handlers,
		logger:    logger,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.StaticFS, cfg.Realtime)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(staticFS fs.FS, realtime http.Handler) {
	h := s.handlers

	// The websocket upgrade needs the raw writer, so it stays outside Compress.
	if realtime != nil {
		s.router.Get("/ws", realtime.ServeHTTP)
	}
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Use(VisitorMiddleware)

		// Static files
		fileServer := http.FileServer(http.FS(staticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

		r.Get("/", h.Home)
		r.Get("/api/track", h.TrackAPI)

		r.Get("/recommendations", h.Recommendations)
		r.With(submissionLimit(submissionRequests, submissionWindow)).Post("/recommendations", h.CreateRecommendation)

		r.Get("/messages", h.Messages)
		r.With(submissionLimit(submissionRequests, submissionWindow)).Post("/messages", h.CreateMessage)
		r.Post("/messages/{id}/like", h.LikeMessage)

		r.Get("/admin/login", h.AdminLoginPage)
		r.With(submissionLimit(submissionRequests, submissionWindow)).Post("/admin/login", h.AdminLogin)
		r.Post("/admin/logout", h.AdminLogout)

		// Admin mode
		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Get("/admin/curated", h.CuratedPage)
			r.Post("/admin/curated", h.UpdateCurated)
			r.Post("/recommendations/{id}/rating", h.RateRecommendation)
			r.Post("/recommendations/{id}/message", h.NoteRecommendation)
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("url", "http://"+s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and shuts it down gracefully once ctx is done.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
