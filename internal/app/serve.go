package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"horse.fit/nichescore/internal/classify"
	"horse.fit/nichescore/internal/cli"
	"horse.fit/nichescore/internal/config"
	"horse.fit/nichescore/internal/db"
	"horse.fit/nichescore/internal/httpapi"
	"horse.fit/nichescore/internal/ingest"
	"horse.fit/nichescore/internal/logging"
	"horse.fit/nichescore/internal/metrics"
	"horse.fit/nichescore/internal/oracle"
	"horse.fit/nichescore/internal/pipeline"
	"horse.fit/nichescore/internal/trends"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8090, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	ingester := ingest.NewService(pool, logger, collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	if cfg.ScheduleEnabled {
		scheduler, err := startScheduler(ctx, cfg, pool, logger, collector)
		if err != nil {
			logger.Error().Err(err).Msg("scheduler start failed")
			fmt.Fprintf(os.Stderr, "Failed to start scheduler: %v\n", err)
			return 1
		}
		defer func() { <-scheduler.Stop().Done() }()
	}

	srv := httpapi.NewServer(pool, ingester, registry, logger, httpapi.Options{
		Host:                     *host,
		Port:                     *port,
		ReadTimeout:              *readTimeout,
		WriteTimeout:             *writeTimeout,
		ShutdownTimeout:          *shutdownTimeout,
		SourceQualityPlaceholder: cfg.SourceQualityPlaceholder,
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}

// startScheduler registers the periodic classify-and-aggregate pass.
// Concurrent passes are harmless: a pass that finds no pending posts exits.
func startScheduler(ctx context.Context, cfg *config.Config, pool *db.Pool, logger zerolog.Logger, collector *metrics.Collector) (*cron.Cron, error) {
	provider, err := oracle.NewOpenAIProvider(cfg.OracleAPIKey, cfg.OracleModel)
	if err != nil {
		return nil, fmt.Errorf("initialize oracle: %w", err)
	}

	runner := pipeline.NewRunner(
		classify.NewService(pool, provider, logger, collector, classify.Options{
			BatchSize:       cfg.ClassifierBatchSize,
			ExcerptMaxChars: cfg.ExcerptMaxChars,
			OracleTimeout:   cfg.OracleTimeout,
		}),
		trends.NewService(pool, logger, collector),
		logger,
	)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Schedule, func() {
		result, err := runner.RunOnce(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("scheduled pipeline pass failed")
			return
		}
		logger.Info().
			Int("classified", result.Classified).
			Int("quarantined", result.Quarantined).
			Int("aggregated", result.Aggregated).
			Msg("scheduled pipeline pass done")
	}); err != nil {
		return nil, fmt.Errorf("register schedule %q: %w", cfg.Schedule, err)
	}

	scheduler.Start()
	logger.Info().Str("schedule", cfg.Schedule).Msg("pipeline scheduler started")
	return scheduler, nil
}
