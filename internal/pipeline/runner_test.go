package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/nichescore/internal/classify"
	"horse.fit/nichescore/internal/db"
	"horse.fit/nichescore/internal/oracle"
	"horse.fit/nichescore/internal/trends"
)

type pipelineStore struct {
	pending  []db.PendingPost
	saved    []db.ClassificationInsert
	rollups  []db.CategoryRollup
	upserts  []db.TrendSnapshotUpsert
	queryErr error
}

func (s *pipelineStore) ListPendingPosts(ctx context.Context, limit int) ([]db.PendingPost, error) {
	out := append([]db.PendingPost(nil), s.pending...)
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *pipelineStore) InsertClassification(ctx context.Context, row db.ClassificationInsert) (bool, error) {
	s.saved = append(s.saved, row)
	for i := range s.pending {
		if s.pending[i].RawPostID == row.RawPostID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *pipelineStore) QueryCategoryRollups(ctx context.Context, dayStart, dayEnd time.Time) ([]db.CategoryRollup, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.rollups, nil
}

func (s *pipelineStore) UpsertTrendSnapshot(ctx context.Context, row db.TrendSnapshotUpsert) error {
	s.upserts = append(s.upserts, row)
	return nil
}

type scriptedOracle struct {
	content string
	err     error
}

func (o *scriptedOracle) Complete(ctx context.Context, req oracle.Request) (*oracle.Response, error) {
	if o.err != nil {
		return nil, o.err
	}
	return &oracle.Response{Content: o.content}, nil
}

func (o *scriptedOracle) Name() string { return "scripted" }

func TestRunOncePassesThroughBothStages(t *testing.T) {
	t.Parallel()

	store := &pipelineStore{
		pending: []db.PendingPost{{RawPostID: 1, Source: "reddit", Content: "basil dies"}},
		rollups: []db.CategoryRollup{{Category: "gardening", PostCount: 1, AvgSentiment: 6.0}},
	}
	provider := &scriptedOracle{content: `[{"index":1,"category":"gardening","sentiment_score":6,"is_app_solvable":true,"summary":"basil dies"}]`}

	classifier := classify.NewService(store, provider, zerolog.Nop(), nil, classify.Options{})
	aggregator := trends.NewService(store, zerolog.Nop(), nil)

	runner := NewRunner(classifier, aggregator, zerolog.Nop())
	result, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if result.Classified != 1 || result.Aggregated != 1 {
		t.Fatalf("result = %+v, want 1 classified and 1 aggregated", result)
	}
	if len(store.upserts) != 1 || store.upserts[0].Category != "gardening" {
		t.Fatalf("snapshots = %+v", store.upserts)
	}
}

func TestRunOnceQuarantineStillAggregates(t *testing.T) {
	t.Parallel()

	store := &pipelineStore{
		pending: []db.PendingPost{{RawPostID: 1, Source: "x", Content: "???"}},
	}
	provider := &scriptedOracle{err: errors.New("overloaded")}

	classifier := classify.NewService(store, provider, zerolog.Nop(), nil, classify.Options{})
	aggregator := trends.NewService(store, zerolog.Nop(), nil)

	runner := NewRunner(classifier, aggregator, zerolog.Nop())
	result, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if result.Quarantined != 1 {
		t.Fatalf("result = %+v, want 1 quarantined", result)
	}
}

func TestRunOnceReportsAggregationFailure(t *testing.T) {
	t.Parallel()

	store := &pipelineStore{queryErr: errors.New("relation missing")}
	provider := &scriptedOracle{content: "[]"}

	classifier := classify.NewService(store, provider, zerolog.Nop(), nil, classify.Options{})
	aggregator := trends.NewService(store, zerolog.Nop(), nil)

	runner := NewRunner(classifier, aggregator, zerolog.Nop())
	if _, err := runner.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce succeeded despite aggregation failure")
	}
}
