package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/nichescore/internal/cli"
	"horse.fit/nichescore/internal/config"
	"horse.fit/nichescore/internal/db"
	"horse.fit/nichescore/internal/logging"
	"horse.fit/nichescore/internal/trends"
)

func runAggregate(args []string) int {
	fs := flag.NewFlagSet("aggregate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	date := fs.String("date", "", "UTC day to aggregate as YYYY-MM-DD (default today)")

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

	day := defaultUTCDay()
	if *date != "" {
		parsed, err := parseUTCDate(*date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --date: %v\n", err)
			return 2
		}
		day = parsed
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc := trends.NewService(pool, logger, nil)
	upserted, err := svc.Aggregate(ctx, day)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Aggregation failed: %v\n", err)
		return 1
	}

	fmt.Printf("date=%s snapshots=%d\n", day.Format("2006-01-02"), upserted)
	return 0
}
