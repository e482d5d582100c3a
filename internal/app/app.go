// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stackdown/stackdown/internal/bulk"
	"github.com/stackdown/stackdown/internal/clock/system"
	"github.com/stackdown/stackdown/internal/config"
	"github.com/stackdown/stackdown/internal/discovery"
	"github.com/stackdown/stackdown/internal/fetch"
	"github.com/stackdown/stackdown/internal/hash/sha256"
	"github.com/stackdown/stackdown/internal/logging"
	"github.com/stackdown/stackdown/internal/markdown"
	"github.com/stackdown/stackdown/internal/metrics"
	"github.com/stackdown/stackdown/internal/pipeline"
	"github.com/stackdown/stackdown/internal/search"
	"github.com/stackdown/stackdown/internal/store"
)

// App holds all the shared, long-lived services for the archiver. It is
// initialized once at startup and passed to the components that need it.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Jar       *fetch.Jar
	Fetcher   *fetch.Client
	Converter *markdown.Converter
	Store     *store.Store
	Discovery *discovery.Discoverer
	Executor  *bulk.Executor
	Pipeline  *pipeline.Pipeline
	Search    *search.Engine
}

// New builds the full service graph from configuration. It fails fast if
// any critical service cannot be initialized.
func New(cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	clk := system.New()
	jar := fetch.NewJar(clk)
	fetcher := fetch.New(fetch.Config{
		MaxRetries:        cfg.HTTP.MaxRetries,
		ConnectRetryDelay: cfg.ConnectRetryDelay(),
		RateLimitDelay:    cfg.RateLimitDelay(),
		Timeout:           time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
	}, jar, logger)

	docStore, err := store.New(store.Config{BaseDir: cfg.Storage.BaseDir}, sha256.New())
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	disc := discovery.New(fetcher, discovery.Config{
		BaseHost:      cfg.Scrape.BaseHost,
		CourtesyDelay: cfg.CourtesyDelay(),
	}, logger)

	converter := markdown.New(logger)
	exec := bulk.New()
	pipe := pipeline.New(fetcher, converter, docStore, disc, exec, clk, logger)
	engine := search.New(docStore, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Jar:       jar,
		Fetcher:   fetcher,
		Converter: converter,
		Store:     docStore,
		Discovery: disc,
		Executor:  exec,
		Pipeline:  pipe,
		Search:    engine,
	}, nil
}

// Close gracefully shuts down all services.
func (a *App) Close() {
	a.Executor.Shutdown()
	if err := a.Logger.Sync(); err != nil {
		// Best effort: stderr sync failures on shutdown are expected on
		// some platforms.
		_ = err
	}
}
