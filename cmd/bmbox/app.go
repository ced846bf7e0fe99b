package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nikbrunner/bmbox/internal/favicon"
	"github.com/nikbrunner/bmbox/internal/logging"
	"github.com/nikbrunner/bmbox/internal/panel"
	"github.com/nikbrunner/bmbox/internal/provider"
	"github.com/nikbrunner/bmbox/internal/storage"
)

// app holds the pieces every subcommand shares.
type app struct {
	cfg      *storage.Config
	store    storage.Store
	provider provider.Provider
	icons    *favicon.Pipeline
	logger   *logrus.Entry
	watchers sync.WaitGroup
}

// setupOptions selects how the app is initialised.
type setupOptions struct {
	configPath string
	logToFile  bool // the TUI owns the terminal
}

// setup loads config, configures logging and opens the store and provider.
func setup(opts setupOptions) (*app, error) {
	configPath := opts.configPath
	if configPath == "" {
		var err error
		configPath, err = storage.DefaultConfigFilePath()
		if err != nil {
			return nil, fmt.Errorf("config path: %w", err)
		}
	}

	cfg, err := storage.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", configPath, err)
	}

	logFile := cfg.LogFile
	if opts.logToFile && logFile == "" {
		logFile = filepath.Join(filepath.Dir(configPath), "bmbox.log")
	}
	if err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: logFile}); err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}
	logger := logging.NewLogger("bmbox")

	store, err := storage.Open(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.StoreBackend, err)
	}

	prov, err := provider.Open(cfg.BookmarksFile, cfg.BookmarksFormat)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if fp, ok := prov.(*provider.FileProvider); ok {
		logger.WithField("path", fp.Path()).Debug("Using bookmarks file")
	} else {
		logger.Warn("No bookmarks file configured or detected")
	}

	icons := favicon.NewPipeline(favicon.PipelineParams{
		Cache:   favicon.LoadCache(store),
		Fetcher: favicon.NewHTTPFetcher(cfg.FaviconTimeout()),
		Service: cfg.FaviconService,
		Logger:  logging.NewLogger("favicon"),
	})

	return &app{
		cfg:      cfg,
		store:    store,
		provider: prov,
		icons:    icons,
		logger:   logger,
	}, nil
}

// newEngine creates the panel engine over surface. ready may be nil.
func (a *app) newEngine(ctx context.Context, surface panel.Surface, ready *panel.Ready) (*panel.Engine, error) {
	return panel.New(ctx, panel.Params{
		Provider: a.provider,
		Store:    a.store,
		Surface:  surface,
		Icons:    a.icons,
		Ready:    ready,
		Logger:   logging.NewLogger("panel"),
	})
}

// watch runs onChange whenever a file-backed provider's file changes,
// until ctx is cancelled. It returns immediately for other providers.
func (a *app) watch(ctx context.Context, onChange func()) {
	fp, ok := a.provider.(*provider.FileProvider)
	if !ok {
		return
	}
	w, err := provider.NewWatcher(fp.Path(), provider.DefaultDebounce, onChange)
	if err != nil {
		a.logger.WithError(err).Warn("Live reload disabled")
		return
	}
	a.watchers.Add(1)
	go func() {
		defer a.watchers.Done()
		w.Run(ctx)
	}()
}

// close waits for the watchers, whose context must already be cancelled,
// then for background favicon work, and releases the store.
func (a *app) close() {
	a.watchers.Wait()
	a.icons.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close store")
	}
	_ = logging.Close()
}

// fail prints err and exits.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
