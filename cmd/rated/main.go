package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/altrates/internal/api"
	"github.com/rickgao/altrates/internal/auth"
	"github.com/rickgao/altrates/internal/baseline"
	"github.com/rickgao/altrates/internal/cache"
	"github.com/rickgao/altrates/internal/config"
	"github.com/rickgao/altrates/internal/connection"
	"github.com/rickgao/altrates/internal/database"
	"github.com/rickgao/altrates/internal/engine"
	"github.com/rickgao/altrates/internal/feed"
	"github.com/rickgao/altrates/internal/maintenance"
	"github.com/rickgao/altrates/internal/metrics"
	"github.com/rickgao/altrates/internal/model"
	"github.com/rickgao/altrates/internal/provider"
	"github.com/rickgao/altrates/internal/version"
	"github.com/rickgao/altrates/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/rated.local.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	// Environment first so ${VAR} in the config can see it
	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load env file", "path", *envPath, "error", err)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting rate service",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("rate service failed", "error", err)
		os.Exit(1)
	}

	logger.Info("rate service stopped")
}

// newLogger builds the slog handler named by the logging config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// run wires every component and blocks until ctx is cancelled or one fails.
func run(ctx context.Context, cfg *config.ServiceConfig, logger *slog.Logger) error {
	cs := cfg.Currencies()
	logger.Info("currencies",
		"altcoins", model.JoinCodes(cs.Altcoins()),
		"fiats", model.JoinCodes(cs.Fiats()),
		"static", cfg.Currency.Static,
	)

	collector := metrics.NewCollector(metrics.DefaultNamespace)
	rateCache := cache.New(cfg.Cache.TTL, cache.WithMetrics(collector))

	// Optional rate history
	var (
		history Pinger
		hw      *writer.RateWriter
	)
	engineOpts := []engine.Option{engine.WithMetrics(collector)}
	if cfg.History.Enabled && !cfg.Currency.Static {
		logger.Info("connecting to history database",
			"host", cfg.History.Database.Host,
			"port", cfg.History.Database.Port,
			"database", cfg.History.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.History.Database)
		if err != nil {
			return fmt.Errorf("connect history database: %w", err)
		}
		defer pool.Close()

		if err := writer.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		hw = writer.NewRateWriter(writer.Config{
			BatchSize:     cfg.History.BatchSize,
			FlushInterval: cfg.History.FlushInterval,
			BufferSize:    cfg.History.BufferSize,
		}, pool, collector, logger)
		history = pool
		engineOpts = append(engineOpts, engine.WithMergeListener(hw))
	}

	eng := engine.New(cs, engine.Config{
		Static:        cfg.Currency.Static,
		InformWindow:  cfg.Reporting.InformWindow,
		WarningWindow: cfg.Reporting.WarningWindow,
	}, logger, engineOpts...)

	g, gctx := errgroup.WithContext(ctx)

	// Feeds
	var (
		sessions  []*connection.Session
		registry  = provider.NewRegistry(cs)
		scheduler *maintenance.Scheduler
	)
	if !cfg.Currency.Static {
		dialer := connection.NewWSDialer(connection.DefaultClientConfig(), logger)

		watcher := feed.NewWatcher(feed.Config{
			URL:               cfg.Feeds.StreamURL,
			ReconnectDelay:    cfg.Feeds.StreamReconnectDelay,
			ReconnectOnReject: cfg.Feeds.ReconnectOnReject,
		}, eng, logger)
		stream := watcher.Session(dialer, collector)
		sessions = append(sessions, stream)

		hooks, err := buildHooks(cfg, eng, rateCache, dialer, collector, logger)
		if err != nil {
			return err
		}
		registry = provider.NewRegistry(cs, hooks...)

		g.Go(func() error {
			stream.Run(gctx)
			return nil
		})

		tickerClient := api.NewClient(cfg.Feeds.TickerURL,
			api.WithLogger(logger),
			api.WithTimeout(cfg.Feeds.RequestTimeout),
			api.WithRetries(cfg.Feeds.MaxRetries, time.Second),
		)
		fetcher := baseline.New(cs, tickerClient, rateCache, eng, collector, logger)

		scheduler = maintenance.New(maintenance.Config{
			Interval: cfg.Maintenance.Interval,
		}, fetcher, eng, registry.Hooks(), logger)
		if err := scheduler.Start(gctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	if hw != nil {
		if err := hw.Start(gctx); err != nil {
			return fmt.Errorf("start history writer: %w", err)
		}
	}

	// HTTP server for health, debug and metrics
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHandler(eng, func() []*connection.Session {
			return append(append([]*connection.Session(nil), sessions...), registry.Sessions()...)
		}, history, collector, cfg.Metrics.Path),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("starting http server", "port", cfg.Metrics.Port, "metrics_path", cfg.Metrics.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if scheduler != nil {
			if err := scheduler.Stop(shutdownCtx); err != nil {
				logger.Warn("scheduler stop", "error", err)
			}
		}
		if hw != nil {
			hw.Stop(shutdownCtx)
		}
		return server.Shutdown(shutdownCtx)
	})

	logger.Info("rate service running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	return g.Wait()
}

// buildHooks creates the provider hooks for the configured altcoins.
func buildHooks(cfg *config.ServiceConfig, eng *engine.Engine, c *cache.Cache, dialer connection.Dialer, m *metrics.Collector, logger *slog.Logger) ([]provider.Hook, error) {
	var hooks []provider.Hook

	if eng.Currencies().IsAlt(model.BTC) {
		ba := cfg.Currency.BitcoinAverage
		creds, err := auth.NewCredentials(ba.PublicKey, ba.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("bitcoin_average credentials: %w", err)
		}
		client := api.NewClient(cfg.Feeds.ProviderRestURL,
			api.WithSigner(creds),
			api.WithLogger(logger),
			api.WithTimeout(cfg.Feeds.RequestTimeout),
			api.WithRetries(cfg.Feeds.MaxRetries, time.Second),
		)
		hooks = append(hooks, provider.NewBitcoinHook(provider.BitcoinConfig{
			WSURL:     cfg.Feeds.ProviderWSURL,
			PublicKey: ba.PublicKey,
		}, client, eng, c, dialer, m, logger))
	}

	return hooks, nil
}
