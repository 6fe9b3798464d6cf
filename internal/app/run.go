package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/nichescore/internal/classify"
	"horse.fit/nichescore/internal/cli"
	"horse.fit/nichescore/internal/config"
	"horse.fit/nichescore/internal/db"
	"horse.fit/nichescore/internal/logging"
	"horse.fit/nichescore/internal/oracle"
	"horse.fit/nichescore/internal/pipeline"
	"horse.fit/nichescore/internal/trends"
)

func runPipeline(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 20*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
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

	provider, err := oracle.NewOpenAIProvider(cfg.OracleAPIKey, cfg.OracleModel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize oracle: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	runner := pipeline.NewRunner(
		classify.NewService(pool, provider, logger, nil, classify.Options{
			BatchSize:       cfg.ClassifierBatchSize,
			ExcerptMaxChars: cfg.ExcerptMaxChars,
			OracleTimeout:   cfg.OracleTimeout,
		}),
		trends.NewService(pool, logger, nil),
		logger,
	)

	result, err := runner.RunOnce(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline run failed: %v\n", err)
		return 1
	}

	fmt.Printf("batches=%d classified=%d quarantined=%d dropped=%d aggregated=%d\n",
		result.Batches, result.Classified, result.Quarantined, result.Dropped, result.Aggregated)
	return 0
}
