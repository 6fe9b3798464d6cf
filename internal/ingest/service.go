// Package ingest accepts normalized records from source collectors and
// persists them with first-writer-wins deduplication on the
// (source, source_native_id) identity.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/nichescore/internal/db"
	"horse.fit/nichescore/internal/metrics"
	"horse.fit/nichescore/internal/scoring"
)

// DefaultAuthor is stored when a record arrives without an author.
const DefaultAuthor = "anonymous"

// Record is one normalized post handed over by a collector.
type Record struct {
	Source         string
	SourceNativeID string
	Author         string
	Content        string
	URL            *string
	PostedAt       *time.Time
	Metadata       json.RawMessage
}

// Result reports ingestion counters for one batch of records.
type Result struct {
	Received   int `json:"received"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Store is the persistence surface ingestion needs.
type Store interface {
	InsertRawPost(ctx context.Context, row db.RawPostInsert) (bool, error)
}

// Service persists collector output.
type Service struct {
	store   Store
	logger  zerolog.Logger
	metrics *metrics.Collector
}

func NewService(store Store, logger zerolog.Logger, collector *metrics.Collector) *Service {
	return &Service{store: store, logger: logger, metrics: collector}
}

// Ingest stores each record independently. A record that fails validation or
// persistence is counted and logged but never blocks the rest of the batch;
// a record whose identity is already known counts as a duplicate.
func (s *Service) Ingest(ctx context.Context, records []Record) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("ingest service is not initialized")
	}

	result := Result{Received: len(records)}
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		row, err := normalizeRecord(record)
		if err != nil {
			result.Failed++
			s.logger.Warn().
				Err(err).
				Str("source", record.Source).
				Str("source_native_id", record.SourceNativeID).
				Msg("rejecting record")
			continue
		}

		inserted, err := s.store.InsertRawPost(ctx, row)
		if err != nil {
			result.Failed++
			s.logger.Error().
				Err(err).
				Str("source", row.Source).
				Str("source_native_id", row.SourceNativeID).
				Msg("failed to store record")
			continue
		}

		if inserted {
			result.Inserted++
			s.metrics.RecordPostIngested(row.Source)
		} else {
			result.Duplicates++
			s.metrics.RecordPostDuplicate()
		}
	}

	s.logger.Info().
		Int("received", result.Received).
		Int("inserted", result.Inserted).
		Int("duplicates", result.Duplicates).
		Int("failed", result.Failed).
		Msg("ingest batch done")

	return result, nil
}

func normalizeRecord(record Record) (db.RawPostInsert, error) {
	source := strings.TrimSpace(strings.ToLower(record.Source))
	nativeID := strings.TrimSpace(record.SourceNativeID)
	content := strings.TrimSpace(record.Content)

	if source == "" {
		return db.RawPostInsert{}, fmt.Errorf("record has no source")
	}
	if nativeID == "" {
		return db.RawPostInsert{}, fmt.Errorf("record has no source-native id")
	}
	if content == "" {
		return db.RawPostInsert{}, fmt.Errorf("record has no content")
	}

	author := strings.TrimSpace(record.Author)
	if author == "" {
		author = DefaultAuthor
	}

	metadata := record.Metadata
	if source == scoring.SourceReddit {
		metadata = backfillRedditTier(metadata)
	}

	return db.RawPostInsert{
		Source:         source,
		SourceNativeID: nativeID,
		Author:         author,
		Content:        content,
		URL:            record.URL,
		PostedAt:       record.PostedAt,
		Metadata:       metadata,
	}, nil
}

// backfillRedditTier derives the trust tier from the subreddit name when a
// reddit record's metadata carries no explicit tier. Metadata that cannot be
// decoded, or that names no subreddit, passes through untouched and the
// scorer later applies its own fallback.
func backfillRedditTier(metadata json.RawMessage) json.RawMessage {
	if len(metadata) == 0 {
		return metadata
	}

	var fields map[string]any
	if err := json.Unmarshal(metadata, &fields); err != nil {
		return metadata
	}
	if tier, ok := fields["tier"].(string); ok && tier != "" {
		return metadata
	}
	subreddit, ok := fields["subreddit"].(string)
	if !ok || subreddit == "" {
		return metadata
	}

	fields["tier"] = scoring.SubredditTier(subreddit)
	enriched, err := json.Marshal(fields)
	if err != nil {
		return metadata
	}
	return enriched
}
