package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"songshelf/internal/app"
	"songshelf/internal/auth"
	"songshelf/internal/config"
	"songshelf/internal/metadata"
	"songshelf/internal/server"
	"songshelf/internal/storage"
	"songshelf/internal/validation"
	"songshelf/internal/watcher"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// Runner holds what the root command prepares for its subcommands.
type Runner struct {
	logger *logrus.Logger
	config *config.Config
}

func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Start the HTTP server",
			Action: r.serve,
		},
		{
			Name:      "import",
			Usage:     "Add audio files to the signed-in user's catalog",
			ArgsUsage: "<file>...",
			Action:    r.importFiles,
		},
		{
			Name:   "config",
			Usage:  "Print the effective configuration",
			Action: r.printConfig,
		},
	}
}

// Setup loads the env file and the configuration, then configures logging.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	envFile := cmd.String("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ctx, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	r.config = cfg

	if err := configureLogger(r.logger, cfg.Logging); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// configureLogger applies level, format and output from the logging section.
func configureLogger(logger *logrus.Logger, cfg config.LoggingConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(file)
	}
	return nil
}

// openStore opens the configured backend and hydrates a state container from it.
func (r *Runner) openStore(ctx context.Context) (*app.Store, storage.KV, error) {
	mode, err := auth.ParsePasswordMode(r.config.Auth.PasswordMode)
	if err != nil {
		return nil, nil, err
	}

	kv, err := storage.Open(ctx, r.config.Storage, r.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	store := app.New(storage.NewStore(kv, r.config.Storage.Namespace, r.logger), app.Options{
		PasswordMode: mode,
		Logger:       r.logger,
	})
	store.Hydrate(ctx)
	return store, kv, nil
}

func (r *Runner) serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, kv, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			r.logger.WithError(err).Warn("Failed to close storage")
		}
	}()

	if state := store.AuthState(); state.IsAuthenticated {
		r.logger.WithFields(logrus.Fields{
			"user":  state.User.Username,
			"songs": store.CatalogView().SongCount,
		}).Info("Restored session")
	}

	if fileKV, ok := kv.(*storage.FileKV); ok && r.config.Library.WatchForChanges {
		w, err := watchStore(ctx, fileKV, store, watcher.DefaultDebounce, r.logger)
		if err != nil {
			r.logger.WithError(err).Warn("Could not watch the data directory, continuing without it")
		} else {
			defer w.Close()
		}
	}

	extractor := metadata.NewExtractor(ctx, r.config.Library.SupportedFormats, r.logger)
	musicServer := server.NewMusicServer(ctx, r.config, store, extractor, r.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- musicServer.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		r.logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return musicServer.Shutdown(shutdownCtx)
}

// watchStore rehydrates store when another process rewrites its files.
// Files still holding what kv itself last wrote are ignored.
func watchStore(ctx context.Context, kv *storage.FileKV, store *app.Store, debounce time.Duration, logger *logrus.Logger) (*watcher.Watcher, error) {
	w := watcher.New(watchedFiles(kv, store.Storage()), store.Hydrate, debounce, logger).
		IgnoreWhen(kv.WroteLast)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// watchedFiles lists the files whose external edits should rehydrate the store.
func watchedFiles(kv *storage.FileKV, store *storage.Store) []string {
	return []string{
		kv.PathFor(store.KeyFor(storage.KeyUsers)),
		kv.PathFor(store.KeyFor(storage.KeySongs)),
		kv.PathFor(store.KeyFor(storage.KeyCurrentUser)),
	}
}

func (r *Runner) importFiles(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("no files given")
	}

	store, kv, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer kv.Close()

	if !store.AuthState().IsAuthenticated {
		return fmt.Errorf("%w: log in through the server first", app.ErrNotAuthenticated)
	}

	extractor := metadata.NewExtractor(ctx, r.config.Library.SupportedFormats, r.logger)
	return importPaths(ctx, store, extractor, paths, r.logger)
}

// importPaths adds each audio file to the signed-in user's catalog. Files that
// cannot be read or whose metadata fails validation are skipped and counted.
func importPaths(ctx context.Context, store *app.Store, extractor *metadata.Extractor, paths []string, logger *logrus.Logger) error {
	var failed int
	for _, path := range paths {
		entry := logger.WithField("path", path)
		if !extractor.IsAudioFile(path) {
			entry.Warn("Skipping unsupported file")
			failed++
			continue
		}

		input, err := extractor.ExtractFromFile(path)
		if err != nil {
			entry.WithError(err).Warn("Failed to read file")
			failed++
			continue
		}

		if result := validation.ValidateSong(input, store.Now()); !result.Valid {
			entry.WithField("errors", result.Errors).Warn("Skipping file with invalid metadata")
			failed++
			continue
		}

		song, err := store.AddSong(ctx, input)
		if err != nil {
			entry.WithError(err).Error("Failed to add song")
			failed++
			continue
		}
		entry.WithFields(logrus.Fields{
			"id":     song.ID,
			"title":  song.Title,
			"singer": song.Singer,
		}).Info("Imported song")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files were not imported", failed, len(paths))
	}
	return nil
}

func (r *Runner) printConfig(ctx context.Context, cmd *cli.Command) error {
	return toml.NewEncoder(os.Stdout).Encode(r.config)
}
