// Package server exposes the state container over a small HTTP JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"time"

	"songshelf/internal/app"
	"songshelf/internal/config"
	"songshelf/internal/metadata"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// MusicServer serves the catalog and session API
type MusicServer struct {
	config    *config.Config
	store     *app.Store
	extractor *metadata.Extractor
	logger    *logrus.Logger
	limiter   *clientLimiter
	proxies   []netip.Prefix
	router    chi.Router
	http      *http.Server
	startedAt time.Time
}

// NewMusicServer creates a server over store. The extractor serves song imports.
func NewMusicServer(ctx context.Context, cfg *config.Config, store *app.Store, extractor *metadata.Extractor, logger *logrus.Logger) *MusicServer {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	ms := &MusicServer{
		config:    cfg,
		store:     store,
		extractor: extractor,
		logger:    logger,
		limiter:   newClientLimiter(ctx, cfg.Server.AuthRateLimit, cfg.Server.AuthRateBurst),
		startedAt: time.Now(),
	}

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		logger.WithError(err).Warn("Ignoring trusted proxies, X-Forwarded-For will not be used")
	}
	ms.proxies = proxies

	ms.router = ms.setupRoutes()
	ms.http = &http.Server{
		Addr:         cfg.GetAddress(),
		Handler:      ms.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	return ms
}

// Handler returns the routed handler with all middleware applied
func (ms *MusicServer) Handler() http.Handler {
	return ms.router
}

func (ms *MusicServer) setupRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(ms.panicRecoveryMiddleware)
	r.Use(ms.requestLoggingMiddleware)
	r.Use(ms.corsMiddleware)

	r.Get("/health", ms.handleHealthCheck)
	r.Get("/api/config", ms.handleGetConfig)
	r.Get("/api/events", ms.handleEvents)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/state", ms.handleGetAuthState)
		r.Post("/logout", ms.handleLogout)
		r.Post("/clear-error", ms.handleClearError)

		r.Group(func(r chi.Router) {
			r.Use(ms.rateLimitMiddleware)
			r.Post("/register", ms.handleRegister)
			r.Post("/login", ms.handleLogin)
		})
	})

	r.Route("/api/songs", func(r chi.Router) {
		r.Use(ms.requireSession)
		r.Get("/", ms.handleGetSongs)
		r.Post("/", ms.handleCreateSong)
		r.Post("/import", ms.handleImportSong)
		r.Put("/search", ms.handleSetSearch)
		r.Put("/filters/{axis}", ms.handleSetFilter)
		r.Delete("/filters", ms.handleClearFilters)
		r.Put("/{id}", ms.handleUpdateSong)
		r.Delete("/{id}", ms.handleDeleteSong)
	})

	r.Route("/api/player", func(r chi.Router) {
		r.Use(ms.requireSession)
		r.Get("/", ms.handleGetPlayerState)
		r.Post("/play/{id}", ms.handleTrackPlay)
		r.Post("/pause", ms.handlePause)
		r.Post("/resume", ms.handleResume)
		r.Post("/stop", ms.handleStop)
	})

	return r
}

// Start listens until the server is shut down
func (ms *MusicServer) Start() error {
	ms.logger.WithFields(logrus.Fields{
		"address": fmt.Sprintf("http://%s", ms.config.GetAddress()),
		"backend": ms.config.Storage.Backend,
	}).Info("Songshelf server starting")

	if err := ms.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the music server
func (ms *MusicServer) Shutdown(ctx context.Context) error {
	ms.logger.Info("Shutting down music server...")

	if err := ms.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	ms.logger.Info("Music server shutdown complete")
	return nil
}
