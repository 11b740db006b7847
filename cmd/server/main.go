package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playforge/playforge/internal/feed"
	"github.com/playforge/playforge/internal/library"
	"github.com/playforge/playforge/internal/platform/cache"
	"github.com/playforge/playforge/internal/platform/config"
	"github.com/playforge/playforge/internal/platform/database"
	"github.com/playforge/playforge/internal/starter"
	"github.com/playforge/playforge/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	gameStore, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer gameStore.Close()

	var listingCache *cache.Cache
	if cfg.Cache.URL != "" {
		listingCache, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect cache", "error", err)
			os.Exit(1)
		}
		defer listingCache.Close()
	}

	if cfg.Starter.Path != "" {
		loader, err := starter.NewLoader(cfg.Starter.Path)
		if err != nil {
			slog.Error("failed to load starter packs", "error", err)
			os.Exit(1)
		}
		n, err := loader.Seed(ctx, gameStore)
		if err != nil {
			slog.Error("failed to seed starter packs", "error", err)
			os.Exit(1)
		}
		if n > 0 {
			slog.Info("starter packs seeded", "modules", n)
		}
	}

	broadcaster := feed.NewBroadcaster()
	defer broadcaster.Close()

	svc, err := library.NewService(library.Config{
		Store:  gameStore,
		UserID: cfg.User.ID,
		Cache:  listingCache,
		Feed:   broadcaster,
	})
	if err != nil {
		slog.Error("failed to build library service", "error", err)
		os.Exit(1)
	}
	if err := svc.Refresh(ctx); err != nil {
		slog.Error("initial fetch failed", "error", err)
		os.Exit(1)
	}
	if err := svc.Start(ctx); err != nil {
		slog.Error("failed to start change feed", "error", err)
		os.Exit(1)
	}
	defer svc.Stop()

	mux := newMux(broadcaster)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "remote", cfg.RemoteEnabled())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newStore picks the persistence backend once: remote when a database is
// configured, the JSON-file local fallback otherwise.
func newStore(ctx context.Context, cfg *config.Config) (store.GameStore, error) {
	if cfg.RemoteEnabled() {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		return store.NewPostgresStore(ctx, db.Pool)
	}

	kv, err := store.NewFileKV(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}
	slog.Info("remote store not configured, using local storage", "dir", cfg.Storage.Dir)
	return store.NewLocalStore(kv, cfg.User.ID), nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// newMux creates the HTTP router: health checks plus the websocket change
// feed for browsing clients.
func newMux(broadcaster *feed.Broadcaster) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.Handle("GET /feed", broadcaster.Handler())
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
