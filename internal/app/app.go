// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/law-makers/adscout/internal/api"
	"github.com/law-makers/adscout/internal/auth"
	"github.com/law-makers/adscout/internal/cache"
	"github.com/law-makers/adscout/internal/catalog"
	"github.com/law-makers/adscout/internal/config"
	"github.com/law-makers/adscout/internal/engine"
	"github.com/law-makers/adscout/internal/engine/dynamic"
	"github.com/law-makers/adscout/internal/ingest"
	"github.com/law-makers/adscout/internal/normalize"
	"github.com/law-makers/adscout/internal/pipeline"
	"github.com/law-makers/adscout/internal/proxy"
	"github.com/law-makers/adscout/internal/ratelimit"
	"github.com/law-makers/adscout/internal/scheduler"
	"github.com/law-makers/adscout/internal/sender"
	"github.com/law-makers/adscout/internal/snapshot"
	"github.com/law-makers/adscout/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	RunCounter  *cache.RunCounter
	RateLimiter ratelimit.RateLimiter
	Proxies     *proxy.Rotation
	Crawler     engine.Crawler
	Sender      *sender.Client
	Snapshots   *snapshot.Persister
	Runner      *pipeline.Runner
	Catalog     *catalog.Store
	catalogMu   sync.Mutex
	startTime   time.Time
}

// NewLogger configures the global zerolog level and returns a logger writing
// JSON to stderr or a console writer.
func NewLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logWriter io.Writer
	if cfg.JSONLog {
		// JSON logs to stderr
		logWriter = os.Stderr
	} else {
		// Human-friendly console output otherwise
		logWriter = zerolog.NewConsoleWriter()
	}

	logger := log.Output(logWriter).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Creates the run counter and the navigation rate limiter
//   - Creates the proxy rotation and the browser crawler
//   - Resolves the ingestion secret (environment first, then the keyring)
//   - Creates the snapshot persister, the sender and the cycle runner
//
// The catalog is not opened here; OpenCatalog does that for the commands that need it.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := NewLogger(cfg)
	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	counter := cache.NewRunCounter(cfg.RunCounterSize)
	limiter := ratelimit.NewHostLimiter(cfg.NavigationRPS, cfg.NavigationBurst)
	logger.Debug().
		Float64("navigation_rps", cfg.NavigationRPS).
		Int("navigation_burst", cfg.NavigationBurst).
		Msg("Rate limiter initialized")

	proxies := proxy.NewRotation(cfg.Proxies, proxy.DefaultCooldown)
	crawler := dynamic.New(dynamic.OptionsFromConfig(cfg), limiter, proxies, logger)

	secret := cfg.APISecret
	if secret == "" {
		stored, err := auth.LoadSecret()
		switch {
		case err == nil:
			secret = stored
			logger.Debug().Msg("Using ingestion secret from keyring")
		case errors.Is(err, auth.ErrSecretNotFound):
		default:
			logger.Debug().Err(err).Msg("Could not read stored ingestion secret")
		}
	}

	client := sender.New(cfg.APIURL, secret, cfg.HTTPTimeout)
	persister := snapshot.NewPersister(cfg.OutputDir)

	runner := &pipeline.Runner{
		Crawler:        crawler,
		Normalizer:     normalize.New(counter),
		Snapshots:      persister,
		Sender:         client,
		DefaultCountry: cfg.DefaultCountry,
		CycleTimeout:   cfg.CycleTimeout,
		Logger:         logger,
	}

	app := &Application{
		Config:      cfg,
		Logger:      &logger,
		RunCounter:  counter,
		RateLimiter: limiter,
		Proxies:     proxies,
		Crawler:     crawler,
		Sender:      client,
		Snapshots:   persister,
		Runner:      runner,
		startTime:   time.Now(),
	}

	logger.Debug().
		Int("niches", len(cfg.Niches)).
		Int("proxies", proxies.Len()).
		Str("api_url", cfg.APIURL).
		Msg("Application initialized")
	return app, nil
}

// OpenCatalog lazily opens the catalog store. Callers should provide a
// context with an appropriate timeout.
func (a *Application) OpenCatalog(ctx context.Context) (*catalog.Store, error) {
	if a == nil {
		return nil, fmt.Errorf("application is nil")
	}

	a.catalogMu.Lock()
	defer a.catalogMu.Unlock()

	if a.Catalog != nil {
		return a.Catalog, nil
	}

	store, err := catalog.Open(ctx, a.Config.CatalogDriver, a.Config.CatalogDSN, *a.Logger)
	if err != nil {
		return nil, err
	}
	a.Catalog = store
	a.Logger.Debug().Str("driver", a.Config.CatalogDriver).Msg("Catalog opened")
	return store, nil
}

// Niches returns the configured niches, restricted to names when any are given.
func (a *Application) Niches(names []string) ([]models.NicheTarget, error) {
	if len(names) == 0 {
		return a.Config.Niches, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []models.NicheTarget
	for _, n := range a.Config.Niches {
		if want[n.Name] {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no configured niche matches %v", names)
	}
	return out, nil
}

// RunCycle runs one crawl cycle over niches.
func (a *Application) RunCycle(ctx context.Context, niches []models.NicheTarget) pipeline.CycleReport {
	return a.Runner.RunCycle(ctx, niches)
}

// Schedule runs cycles over niches on the configured cron expression until ctx is done.
func (a *Application) Schedule(ctx context.Context, niches []models.NicheTarget) error {
	s, err := scheduler.New(a.Config.Schedule, func(ctx context.Context) {
		a.Runner.RunCycle(ctx, niches)
	}, *a.Logger)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

// Serve runs the ingestion API until ctx is done. The server secret comes
// from the config, falling back to the stored secret.
func (a *Application) Serve(ctx context.Context) error {
	store, err := a.OpenCatalog(ctx)
	if err != nil {
		return err
	}

	secret := a.Sender.Secret
	if secret == "" {
		a.Logger.Warn().Msg("No ingestion secret configured, every import request will be rejected")
	}

	router := api.NewRouter(ingest.New(store, *a.Logger), secret, a.Config.MaxBodyBytes, *a.Logger)
	return api.NewServer(a.Config.ListenAddr, router, *a.Logger).ListenAndServe(ctx)
}

// Close gracefully shuts down the application and all its resources.
//
// Any errors during shutdown are logged but do not prevent other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Msg("Shutting down application")

	if a.Catalog != nil {
		if err := a.Catalog.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing catalog")
		}
	}

	if a.Sender != nil && a.Sender.HTTP != nil {
		a.Sender.HTTP.CloseIdleConnections()
	}

	a.Logger.Debug().
		Dur("uptime", a.Uptime()).
		Interface("run_counter", a.RunCounter.Stats()).
		Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
