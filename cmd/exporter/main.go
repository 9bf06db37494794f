// Command exporter serves per-player Minecraft statistics as Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mcstats/exporter/internal/config"
	"github.com/mcstats/exporter/internal/handlers"
	"github.com/mcstats/exporter/internal/loader"
	"github.com/mcstats/exporter/internal/logic"
	"github.com/mcstats/exporter/internal/metrics"
	"github.com/mcstats/exporter/internal/names"
	"github.com/mcstats/exporter/internal/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "exporter [world-path] [log-level]",
		Short: "Export Minecraft player statistics to Prometheus",
		Long: `Reads the playerdata and stats directories of a Minecraft world and
serves one series per player statistic on /metrics.

The world path and log level may also be given as WORLD_PATH and LOG_LEVEL.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exporterMetrics := metrics.NewExporterMetrics(registry)

	// Name lookup: Mojang, optionally behind a shared Redis directory
	var lookup names.Lookup = names.NewMojangClient(cfg.NameLookupURL, cfg.NameLookupTimeout)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			sugar.Warnw("Redis unavailable, names will be looked up directly", "error", err)
		} else {
			sugar.Infow("Connected to Redis", "addr", opts.Addr)
		}
		lookup = names.NewRedisDirectory(redisClient, lookup, cfg.NameCacheTTL, logger)
	}
	resolver := names.NewResolver(lookup, exporterMetrics.NameLookups, logger)

	world := loader.New(cfg.WorldPath, resolver, logger)
	if err := world.CheckStructure(); err != nil {
		sugar.Warnw("World layout incomplete, scrapes will fail until it exists",
			"world", cfg.WorldPath,
			"error", err,
		)
	}

	cache := metrics.NewCache(registry, exporterMetrics.SeriesRejected, logger)
	scraper := worker.NewScraper(worker.ScraperConfig{
		WorkerCount: cfg.WorkerCount,
		Interval:    cfg.ScrapeInterval,
		Source:      world,
		Projector:   logic.NewProjector(logger),
		Sink:        cache,
		Metrics:     exporterMetrics,
		Logger:      logger,
	})
	scraper.Start(ctx)
	defer scraper.Stop()

	hcfg := handlers.Config{
		Scraper:        scraper,
		World:          world,
		Gatherer:       registry,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	}
	if redisClient != nil {
		hcfg.Redis = redisClient
	}
	h := handlers.New(hcfg)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		sugar.Infow("Exporter listening",
			"addr", cfg.Addr(),
			"world", cfg.WorldPath,
			"interval", cfg.ScrapeInterval,
			"env", cfg.Env,
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		sugar.Info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Graceful shutdown failed", "error", err)
		srv.Close()
	}

	sugar.Info("Shutdown complete")
	return nil
}

// newLogger builds a zap logger for the configured level. Zap has no trace
// level, so trace logs at debug.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	levelName := cfg.LogLevel
	if levelName == "trace" {
		levelName = "debug"
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Env == "development" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
