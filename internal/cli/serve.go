package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"watchingcat/internal/backend"
	"watchingcat/internal/config"
	"watchingcat/internal/dashboard"
	"watchingcat/internal/metrics"
	"watchingcat/internal/refresh"
	"watchingcat/internal/state"
	"watchingcat/internal/web"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds flag overrides for the serve command.
type ServeOptions struct {
	Backend  string
	Port     string
	Interval time.Duration
	LogLevel string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		Long: `Starts the refresh loop against the backend and serves the dashboard UI,
the region websocket, the action API and Prometheus metrics.

Flags override the matching environment variables (BACKEND_URL, WEB_PORT,
REFRESH_INTERVAL_MS, LOG_LEVEL).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveServeConfig(cmd, opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid config", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, rootOpts.Version)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "", "backend base URL (overrides BACKEND_URL)")
	cmd.Flags().StringVar(&opts.Port, "port", "", "web UI port (overrides WEB_PORT)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "refresh interval, e.g. 5s (overrides REFRESH_INTERVAL_MS)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR (overrides LOG_LEVEL)")

	return cmd
}

// resolveServeConfig loads the environment config and applies changed flags.
func resolveServeConfig(cmd *cobra.Command, opts *ServeOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.BackendURL = opts.Backend
	}
	if flags.Changed("port") {
		cfg.WebPort = opts.Port
	}
	if flags.Changed("interval") {
		cfg.RefreshInterval = opts.Interval
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg *config.Config, version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	appState := state.New(500)
	log := mainLogger{state: appState}

	log.info("Starting WatchingCat", "version", version)
	log.info("Backend configured", "url", cfg.BackendURL, "timeout", cfg.RequestTimeout)
	log.info("Refresh interval", "interval", cfg.RefreshInterval)
	log.debug("Session TTL", "ttl", cfg.SessionTTL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	client := backend.New(cfg.BackendURL, cfg.RequestTimeout, m)
	ctrl, err := dashboard.New(client, appState, dashboard.Options{
		JaegerURL:  cfg.JaegerURL,
		SessionTTL: cfg.SessionTTL,
		Metrics:    m,
	})
	if err != nil {
		log.error("Dashboard setup failed", "error", err)
		return err
	}

	poller := refresh.New(cfg.RefreshInterval, ctrl.Refresh, refresh.WithMetrics(m))

	webServer := web.New(ctrl, web.Options{
		Port:       cfg.WebPort,
		Version:    version,
		SessionTTL: cfg.SessionTTL,
		Refresher:  poller,
		Metrics:    m,
		Gatherer:   reg,
	})
	webServer.Start()
	poller.Start(ctx)

	<-ctx.Done()
	log.info("Shutting down gracefully")

	poller.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.error("Web server shutdown failed", "error", err)
		return err
	}
	return nil
}

// ============================================================================
// Logging: stdout and the activity log
// ============================================================================

type mainLogger struct {
	state *state.AppState
}

func (l mainLogger) debug(msg string, attrs ...any) { l.log(slog.LevelDebug, msg, attrs...) }
func (l mainLogger) info(msg string, attrs ...any)  { l.log(slog.LevelInfo, msg, attrs...) }
func (l mainLogger) error(msg string, attrs ...any) { l.log(slog.LevelError, msg, attrs...) }

func (l mainLogger) log(level slog.Level, msg string, attrs ...any) {
	allAttrs := append([]any{"component", "Main"}, attrs...)
	slog.Log(context.Background(), level, msg, allAttrs...)

	// Only add to the activity log if this level is enabled
	if l.state != nil && slog.Default().Enabled(context.Background(), level) {
		name := level.String()
		l.state.AddLog(name, "Main", state.FormatLogMessage(name, msg, allAttrs...))
	}
}

// parseLogLevel converts a string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
