package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/nichescore/internal/cli"
	"horse.fit/nichescore/internal/config"
	"horse.fit/nichescore/internal/db"
	"horse.fit/nichescore/internal/ingest"
	"horse.fit/nichescore/internal/logging"
	payloadschema "horse.fit/nichescore/schema"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	payload := fs.String("payload", "", "Collector record payload JSON")
	payloadFile := fs.String("payload-file", "", "Path to a JSON file with one record or an array of records (overrides --payload)")

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

	records, err := loadIngestRecords(*payload, *payloadFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
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

	svc := ingest.NewService(pool, logger, nil)
	result, err := svc.Ingest(ctx, records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	fmt.Printf("received=%d inserted=%d duplicates=%d failed=%d\n",
		result.Received, result.Inserted, result.Duplicates, result.Failed)
	return 0
}

// loadIngestRecords reads one record from --payload, or one record or an
// array of records from --payload-file, validating each against the v1
// collector schema.
func loadIngestRecords(inline, filePath string) ([]ingest.Record, error) {
	raw := []byte(inline)
	if filePath != "" {
		fileBytes, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("read payload file: %w", err)
		}
		raw = fileBytes
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("either --payload or --payload-file is required")
	}

	rawItems := []json.RawMessage{json.RawMessage(raw)}
	var asArray []json.RawMessage
	if err := json.Unmarshal(raw, &asArray); err == nil {
		rawItems = asArray
	}
	if len(rawItems) == 0 {
		return nil, fmt.Errorf("payload array is empty")
	}

	records := make([]ingest.Record, 0, len(rawItems))
	for i, item := range rawItems {
		validated, err := payloadschema.ValidateRawPostPayload(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		record, err := ingest.RecordFromPayload(validated)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		records = append(records, record)
	}
	return records, nil
}
