package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/songboard/internal/catalog"
	"github.com/justestif/songboard/internal/db"
	"github.com/justestif/songboard/internal/localstore"
	"github.com/justestif/songboard/internal/realtime"
	"github.com/justestif/songboard/internal/web"
	webfs "github.com/justestif/songboard/web"
)

const (
	listenRetryDelay = 5 * time.Second
	sessionPruneTick = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Bool("migrate", true, "apply the schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := openDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := database.Migrate(ctx); err != nil {
			return err
		}
	}

	likes, err := localstore.Open(cfg.LikesPath)
	if err != nil {
		return fmt.Errorf("opening likes store: %w", err)
	}
	defer likes.Close()

	if !cfg.HasCatalogCredentials() {
		log.Warn("SPOTIFY_ID or SPOTIFY_SECRET not set; track lookups will fail")
	}
	tracks := catalog.NewClient(catalog.Config{
		ClientID:     cfg.SpotifyID,
		ClientSecret: cfg.SpotifySecret,
	}, catalog.WithLogger(log.Named("catalog")))

	hub := realtime.NewHub(log.Named("realtime"))
	defer hub.Close()
	go forwardChanges(ctx, database, hub, log)

	sessions := web.NewDBSessionStore(database)
	go pruneSessions(ctx, sessions, log)

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}
	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:            cfg.Addr,
		TemplatesFS:     templates,
		StaticFS:        static,
		Curated:         database.Curated(),
		Recommendations: database.Recommendations(),
		Messages:        database.Messages(),
		Tracks:          tracks,
		Likes:           likes,
		Sessions:        sessions,
		Realtime:        hub,
		Logger:          log.Named("web"),
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run(ctx)
}

// forwardChanges relays database change notifications to realtime clients,
// reconnecting until ctx is done.
func forwardChanges(ctx context.Context, database *db.DB, hub *realtime.Hub, log *zap.Logger) {
	for {
		err := database.Listen(ctx, hub.Broadcast)
		if ctx.Err() != nil {
			return
		}
		log.Warn("change listener stopped, retrying", zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(listenRetryDelay):
		}
	}
}

// pruneSessions removes expired admin sessions periodically.
func pruneSessions(ctx context.Context, sessions web.SessionManager, log *zap.Logger) {
	ticker := time.NewTicker(sessionPruneTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Prune(ctx)
			if err != nil {
				log.Warn("pruning sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("pruned admin sessions", zap.Int64("count", n))
			}
		}
	}
}
