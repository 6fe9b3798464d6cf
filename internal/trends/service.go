// Package trends folds each day's solvable classifications into one
// snapshot row per (date, category). Re-running a day overwrites its rows,
// so the aggregator is safe to schedule repeatedly.
package trends

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/nichescore/internal/db"
	"horse.fit/nichescore/internal/globaltime"
	"horse.fit/nichescore/internal/metrics"
)

// Store is the persistence surface aggregation needs.
type Store interface {
	QueryCategoryRollups(ctx context.Context, dayStart, dayEnd time.Time) ([]db.CategoryRollup, error)
	UpsertTrendSnapshot(ctx context.Context, row db.TrendSnapshotUpsert) error
}

// Service computes and stores daily trend snapshots.
type Service struct {
	store   Store
	logger  zerolog.Logger
	metrics *metrics.Collector
}

func NewService(store Store, logger zerolog.Logger, collector *metrics.Collector) *Service {
	return &Service{store: store, logger: logger, metrics: collector}
}

// Aggregate rolls up the UTC calendar day containing `day` and upserts one
// snapshot per category, returning how many were written. A category whose
// upsert fails is logged and skipped so one bad row cannot lose the rest of
// the day.
func (s *Service) Aggregate(ctx context.Context, day time.Time) (int, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("trend aggregator is not initialized")
	}

	dayStart, dayEnd := UTCDayBounds(day)
	rollups, err := s.store.QueryCategoryRollups(ctx, dayStart, dayEnd)
	if err != nil {
		return 0, fmt.Errorf("aggregate %s: %w", dayStart.Format("2006-01-02"), err)
	}

	now := globaltime.Now().UTC()
	upserted := 0
	for _, rollup := range rollups {
		if err := s.store.UpsertTrendSnapshot(ctx, db.TrendSnapshotUpsert{
			Date:         dayStart,
			Category:     rollup.Category,
			PostCount:    rollup.PostCount,
			AvgSentiment: rollup.AvgSentiment,
			Platforms:    rollup.Platforms,
			TopExample:   rollup.TopExample,
			UpdatedAt:    now,
		}); err != nil {
			s.logger.Error().
				Err(err).
				Str("category", rollup.Category).
				Str("date", dayStart.Format("2006-01-02")).
				Msg("failed to upsert trend snapshot")
			continue
		}
		upserted++
		s.metrics.RecordSnapshotUpserted()
	}

	s.logger.Info().
		Str("date", dayStart.Format("2006-01-02")).
		Int("categories", len(rollups)).
		Int("upserted", upserted).
		Msg("trend aggregation done")

	return upserted, nil
}

// UTCDayBounds returns the half-open [start, end) interval of the UTC
// calendar day containing t.
func UTCDayBounds(t time.Time) (time.Time, time.Time) {
	utc := t.UTC()
	start := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
