// Package app wires the classlite subsystems into a running server.
//
// The App struct owns the full lifecycle: New builds the anchor validator,
// the review manager, the health probes and the HTTP server from a config;
// Run serves until its context is cancelled (polling the config file for hot
// reloads when one is attached); Shutdown closes every open review.
//
// For testing, inject metrics or a config watcher via functional options.
// Without a watcher the configuration is fixed for the lifetime of the App.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/andukdahacker/classlite-sub004/internal/anchor"
	"github.com/andukdahacker/classlite-sub004/internal/config"
	"github.com/andukdahacker/classlite-sub004/internal/health"
	"github.com/andukdahacker/classlite-sub004/internal/observe"
	"github.com/andukdahacker/classlite-sub004/internal/review"
	"github.com/andukdahacker/classlite-sub004/internal/server"
	"github.com/andukdahacker/classlite-sub004/internal/textsim"
)

// App owns all subsystem lifetimes.
type App struct {
	mu  sync.RWMutex
	cfg *config.Config

	level          *slog.LevelVar
	metrics        *observe.Metrics
	metricsHandler http.Handler
	watcher        *config.Watcher

	reviews *review.Manager
	health  *health.Handler
	server  *server.Server

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithMetrics records metrics on m instead of the global provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsHandler = h }
}

// WithLogLevel lets hot reloads change the level of the logger built on lv.
func WithLogLevel(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithWatcher attaches a config watcher. Run polls it and applies every
// reloaded config. The watcher must have been created with [App.OnConfigChange]
// as its callback, which [NewWatcher] arranges.
func WithWatcher(w *config.Watcher) Option {
	return func(a *App) { a.watcher = w }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App from cfg. cfg must already be validated; defaults are
// applied to a copy.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	c := *cfg
	config.ApplyDefaults(&c)

	a := &App{cfg: &c}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.level != nil {
		a.level.Set(SlogLevel(c.Server.LogLevel))
	}

	// ── 1. Anchor validator ──────────────────────────────────────────────
	v, err := BuildValidator(c.Anchor, a.metrics)
	if err != nil {
		return nil, fmt.Errorf("app: build validator: %w", err)
	}

	// ── 2. Review manager ────────────────────────────────────────────────
	a.reviews = review.NewManager(review.ManagerConfig{
		Validator:      v,
		Metrics:        a.metrics,
		HighlightDelay: c.Highlight.Debounce,
	})

	// ── 3. Health probes ─────────────────────────────────────────────────
	checkers := []health.Checker{
		health.ConfigLoaded(func() bool { return a.Config() != nil }),
	}
	if c.Server.MaxReviews > 0 {
		checkers = append(checkers, health.Capacity("reviews", a.reviews.Len, c.Server.MaxReviews))
	}
	a.health = health.New(checkers...)

	// ── 4. HTTP server ───────────────────────────────────────────────────
	a.server = server.New(server.Config{
		Reviews:          a.reviews,
		Health:           a.health,
		Metrics:          a.metrics,
		MetricsHandler:   a.metricsHandler,
		TouchSuppression: c.Highlight.TouchSuppression,
		AllowedOrigins:   c.Server.AllowedOrigins,
	})

	return a, nil
}

// NewWatcher creates a config watcher for path whose changes are applied to
// the App returned by the deferred lookup. Typical use from main:
//
//	var application *app.App
//	w, err := app.NewWatcher(path, func() *app.App { return application })
//	application, err = app.New(w.Current(), app.WithWatcher(w))
func NewWatcher(path string, target func() *App, opts ...config.WatcherOption) (*config.Watcher, error) {
	return config.NewWatcher(path, func(old, new *config.Config) {
		if a := target(); a != nil {
			a.OnConfigChange(old, new)
		}
	}, opts...)
}

// BuildValidator creates an anchor validator from the anchor section of the
// config.
func BuildValidator(c config.AnchorConfig, m *observe.Metrics) (*anchor.Validator, error) {
	th := c.Thresholds()
	if err := th.Validate(); err != nil {
		return nil, err
	}
	metric, err := textsim.MetricByName(c.Metric)
	if err != nil {
		return nil, err
	}
	return anchor.New(
		anchor.WithThresholds(th),
		anchor.WithMetric(metric),
		anchor.WithMetrics(m),
	), nil
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Reviews returns the review manager.
func (a *App) Reviews() *review.Manager { return a.reviews }

// Handler returns the instrumented HTTP handler.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP on the configured address and, when a watcher is
// attached, polls the config file. It blocks until ctx is cancelled or the
// listener fails.
func (a *App) Run(ctx context.Context) error {
	addr := a.Config().Server.ListenAddr

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.ListenAndServe(ctx, addr)
	})
	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.Run(ctx)
		})
	}

	slog.Info("app running", "addr", addr, "hot_reload", a.watcher != nil)
	return g.Wait()
}

// ─── Hot reload ──────────────────────────────────────────────────────────────

// OnConfigChange applies a reloaded config. Log level, anchor settings and
// highlight timing take effect immediately; keys that need a restart are
// logged and ignored.
func (a *App) OnConfigChange(old, new *config.Config) {
	d := config.Diff(old, new)
	ctx := context.Background()

	if d.LogLevelChanged && a.level != nil {
		a.level.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}

	if d.AnchorChanged {
		v, err := BuildValidator(new.Anchor, a.metrics)
		if err != nil {
			// Unreachable for configs that passed Validate.
			slog.Error("hot reload: anchor settings rejected", "err", err)
			return
		}
		if err := a.reviews.ApplyValidator(ctx, v); err != nil {
			slog.Warn("hot reload: some reviews were not re-validated", "err", err)
		}
	}

	if d.HighlightChanged {
		a.reviews.SetHighlightDelay(new.Highlight.Debounce)
		a.server.SetTouchSuppression(new.Highlight.TouchSuppression)
		slog.Info("highlight timing reloaded",
			"debounce", new.Highlight.Debounce,
			"touch_suppression", new.Highlight.TouchSuppression,
		)
	}

	for _, key := range d.RestartRequired {
		slog.Warn("config change requires a restart", "key", key)
	}

	// Keep restart-only keys at their running values.
	a.mu.Lock()
	c := *new
	c.Server.ListenAddr = a.cfg.Server.ListenAddr
	c.Server.AllowedOrigins = a.cfg.Server.AllowedOrigins
	c.Server.MaxReviews = a.cfg.Server.MaxReviews
	a.cfg = &c
	a.mu.Unlock()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops the watcher and closes every open review. Safe to call more
// than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "reviews", a.reviews.Len())
		if a.watcher != nil {
			a.watcher.Stop()
		}
		a.reviews.CloseAll(ctx)
		slog.Info("shutdown complete")
	})
	return ctx.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// SlogLevel converts a config log level to a [slog.Level]. Unknown values
// map to info.
func SlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
