package trends

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/nichescore/internal/db"
)

type stubStore struct {
	rollups    []db.CategoryRollup
	rollupErr  error
	upserts    []db.TrendSnapshotUpsert
	failFor    map[string]bool
	dayStart   time.Time
	dayEnd     time.Time
}

func (s *stubStore) QueryCategoryRollups(ctx context.Context, dayStart, dayEnd time.Time) ([]db.CategoryRollup, error) {
	s.dayStart, s.dayEnd = dayStart, dayEnd
	if s.rollupErr != nil {
		return nil, s.rollupErr
	}
	return s.rollups, nil
}

func (s *stubStore) UpsertTrendSnapshot(ctx context.Context, row db.TrendSnapshotUpsert) error {
	if s.failFor[row.Category] {
		return errors.New("deadlock detected")
	}
	s.upserts = append(s.upserts, row)
	return nil
}

func TestAggregateWritesSnapshotPerCategory(t *testing.T) {
	t.Parallel()

	store := &stubStore{rollups: []db.CategoryRollup{
		{
			Category:     "gardening",
			PostCount:    2,
			AvgSentiment: 7.0,
			Platforms:    []string{"reddit", "tiktok"},
			TopExample:   "Cannot tell which disease is killing the tomatoes",
		},
		{
			Category:     "meal planning",
			PostCount:    1,
			AvgSentiment: 4.0,
			Platforms:    []string{"x"},
			TopExample:   "Wastes half the groceries every week",
		},
	}}

	svc := NewService(store, zerolog.Nop(), nil)
	day := time.Date(2025, 6, 14, 15, 30, 0, 0, time.UTC)

	upserted, err := svc.Aggregate(context.Background(), day)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if upserted != 2 {
		t.Fatalf("upserted = %d, want 2", upserted)
	}

	first := store.upserts[0]
	if !first.Date.Equal(time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("snapshot date = %v, want midnight UTC", first.Date)
	}
	if first.Category != "gardening" || first.PostCount != 2 || first.AvgSentiment != 7.0 {
		t.Errorf("snapshot mismatched rollup: %+v", first)
	}
}

func TestAggregateUsesUTCDayBounds(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	svc := NewService(store, zerolog.Nop(), nil)

	est := time.FixedZone("EST", -5*3600)
	day := time.Date(2025, 6, 14, 22, 0, 0, 0, est) // 2025-06-15 03:00 UTC

	if _, err := svc.Aggregate(context.Background(), day); err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	wantStart := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !store.dayStart.Equal(wantStart) {
		t.Errorf("day start = %v, want %v", store.dayStart, wantStart)
	}
	if !store.dayEnd.Equal(wantStart.AddDate(0, 0, 1)) {
		t.Errorf("day end = %v, want next midnight", store.dayEnd)
	}
}

func TestAggregateSkipsFailedCategories(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		rollups: []db.CategoryRollup{
			{Category: "gardening", PostCount: 2, AvgSentiment: 7.0},
			{Category: "cursed", PostCount: 1, AvgSentiment: 5.0},
			{Category: "meal planning", PostCount: 1, AvgSentiment: 4.0},
		},
		failFor: map[string]bool{"cursed": true},
	}

	svc := NewService(store, zerolog.Nop(), nil)
	upserted, err := svc.Aggregate(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if upserted != 2 {
		t.Fatalf("upserted = %d, want failed category skipped", upserted)
	}
}

func TestAggregateFailsWhenRollupQueryFails(t *testing.T) {
	t.Parallel()

	store := &stubStore{rollupErr: errors.New("relation missing")}
	svc := NewService(store, zerolog.Nop(), nil)

	if _, err := svc.Aggregate(context.Background(), time.Now()); err == nil {
		t.Fatal("Aggregate succeeded despite rollup query failure")
	}
}

func TestUTCDayBounds(t *testing.T) {
	t.Parallel()

	start, end := UTCDayBounds(time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC))
	if !start.Equal(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}
