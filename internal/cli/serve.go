package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andukdahacker/classlite-sub004/internal/app"
	"github.com/andukdahacker/classlite-sub004/internal/config"
	"github.com/andukdahacker/classlite-sub004/internal/observe"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the review server",
		Long: `Start the HTTP server for review sessions.

Endpoints:
  POST   /v1/reviews                 open a review from a JSON or YAML bundle
  GET    /v1/reviews/{id}            current view
  PUT    /v1/reviews/{id}/text       resubmit the text
  DELETE /v1/reviews/{id}            close the review
  GET    /v1/reviews/{id}/highlight  websocket highlight sync
  GET    /healthz, /readyz, /metrics

With --config the file is polled and log level, anchor and highlight
settings are reloaded without a restart.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringP("addr", "a", "", "listen address, overrides server.listen_addr")
	cmd.Flags().Duration("watch-interval", config.DefaultWatchInterval, "config file polling interval")
	cmd.Flags().Bool("no-watch", false, "do not reload the config file on change")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	var level slog.LevelVar
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), &level))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Configuration ─────────────────────────────────────────────────────────
	path, _ := cmd.Flags().GetString("config")
	noWatch, _ := cmd.Flags().GetBool("no-watch")
	interval, _ := cmd.Flags().GetDuration("watch-interval")

	var (
		application *app.App
		cfg         *config.Config
		opts        = []app.Option{app.WithLogLevel(&level)}
	)
	switch {
	case path == "":
		cfg = config.Default()
	case noWatch:
		c, err := config.Load(path)
		if err != nil {
			return configError(path, err)
		}
		cfg = c
	default:
		w, err := app.NewWatcher(path, func() *app.App { return application }, config.WithInterval(interval))
		if err != nil {
			return configError(path, err)
		}
		cfg = w.Current()
		opts = append(opts, app.WithWatcher(w))
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		c := *cfg
		c.Server.ListenAddr = addr
		cfg = &c
	}

	// ── Telemetry ─────────────────────────────────────────────────────────────
	provider, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "classlite",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	opts = append(opts,
		app.WithMetrics(provider.Metrics),
		app.WithMetricsHandler(provider.MetricsHandler),
	)

	// ── Application ───────────────────────────────────────────────────────────
	application, err = app.New(cfg, opts...)
	if err != nil {
		return err
	}

	slog.Info("classlite starting",
		"version", version,
		"config", path,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		return errors.Join(runErr, fmt.Errorf("shutdown: %w", err))
	}
	slog.Info("goodbye")
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func configError(path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config file %q not found: %w", path, err)
	}
	return err
}
