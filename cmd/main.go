package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/okian/scrawl/internal/adapters/http/api"
	"github.com/okian/scrawl/internal/adapters/http/swagger"
	app "github.com/okian/scrawl/internal/app"
	"github.com/okian/scrawl/internal/config"
	"github.com/okian/scrawl/internal/game"
	"github.com/okian/scrawl/pkg/logger"
	"github.com/okian/scrawl/pkg/metrics"
	"github.com/spf13/cobra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the CLI entry point.
func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:          "scrawl",
		Short:        "Sketch-recognition duel server",
		Long:         "Hosts dueling-doodle sessions where two vision models race to recognize a live sketch, with an Elo leaderboard.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				if err := os.Setenv("SCRAWL_CONFIG", configFile); err != nil {
					return err
				}
			}
			return run()
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file (same as SCRAWL_CONFIG)")
	return cmd
}

// run boots the service and serves HTTP until a shutdown signal.
func run() error {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return err
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return err
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithStore(cfg.StoreDriver, cfg.StoreDSN),
		app.WithClassifier(cfg.Classifier, cfg.ClassifierURL),
		app.WithClassifierTransport(time.Duration(cfg.ClassifierTimeoutMS)*time.Millisecond, cfg.ClassifierRetries),
		app.WithSimLatencyRange(time.Duration(cfg.SimLatencyMinMS)*time.Millisecond, time.Duration(cfg.SimLatencyMaxMS)*time.Millisecond),
		app.WithModels(cfg.ModelOne, cfg.ModelTwo, cfg.ModelOneParams, cfg.ModelTwoParams),
		app.WithRules(rulesFromConfig(cfg)),
		app.WithBannedLabels(cfg.BannedLabels),
		app.WithWordsFile(cfg.WordsFile),
		app.WithPublicURL(cfg.PublicURL),
		app.WithQueueSize(cfg.QueueSize),
		app.WithSessionTTL(time.Duration(cfg.SessionTTLMinutes)*time.Minute),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return err
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP router and routes.
	router := httprouter.New()

	// Register API docs under /api-docs
	swagger.Register(router)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, cfg.MaxLeaderboardLimit)
	apiServer.Register(router)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
	return nil
}

// rulesFromConfig maps the round-rule settings onto game.Rules. The
// banned set is filled in by the service once the vocabulary is built.
func rulesFromConfig(cfg *config.Config) game.Rules {
	rules := game.DefaultRules(nil)
	rules.GameDuration = time.Duration(cfg.GameDurationSeconds * float64(time.Second))
	rules.Countdown = cfg.CountdownSeconds
	rules.Tick = time.Duration(cfg.TickMS) * time.Millisecond
	rules.SkipPenalty = time.Duration(cfg.SkipPenaltyMS) * time.Millisecond
	rules.Filter.Banned = nil
	rules.Filter.StartRejectThreshold = cfg.StartRejectThreshold
	rules.Filter.RejectTimeDelay = time.Duration(cfg.RejectTimeDelayMS) * time.Millisecond
	rules.Filter.RejectTimePerLabel = time.Duration(cfg.RejectTimePerLabelMS) * time.Millisecond
	return rules
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval) // Update every 10 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval) // Update every 5 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	// Update memory usage
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	// Update goroutine count
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	// Update GC pause time
	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	// Get current stats from the service
	stats := svc.GetStats()

	// GetStats already refreshes the gauges it owns; mirror the session
	// and model counts here so they stay fresh even between API calls.
	if sessions, ok := stats["activeSessions"].(int); ok {
		metrics.UpdateActiveSessions(sessions)
	}

	if totalModels, ok := stats["totalModels"].(int); ok {
		metrics.UpdateTotalModels(totalModels)
	}
}
