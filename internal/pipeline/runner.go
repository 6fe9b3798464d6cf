// Package pipeline sequences the discovery stages: classify everything
// pending, then fold the day's results into trend snapshots. Collectors feed
// the ingest service separately; the runner only consumes what is already
// stored.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/nichescore/internal/classify"
	"horse.fit/nichescore/internal/globaltime"
	"horse.fit/nichescore/internal/trends"
)

// RunResult aggregates the stage counters of one pipeline pass.
type RunResult struct {
	Batches     int `json:"batches"`
	Classified  int `json:"classified"`
	Quarantined int `json:"quarantined"`
	Dropped     int `json:"dropped"`
	Aggregated  int `json:"aggregated"`
}

// Runner executes one classify-then-aggregate pass.
type Runner struct {
	classifier *classify.Service
	aggregator *trends.Service
	logger     zerolog.Logger
}

func NewRunner(classifier *classify.Service, aggregator *trends.Service, logger zerolog.Logger) *Runner {
	return &Runner{classifier: classifier, aggregator: aggregator, logger: logger}
}

// RunOnce drains the pending set through the classifier and then aggregates
// today's snapshots. Classification failure is fatal for the pass; whatever
// it managed to classify is still reflected in the counters.
func (r *Runner) RunOnce(ctx context.Context) (RunResult, error) {
	if r == nil || r.classifier == nil || r.aggregator == nil {
		return RunResult{}, fmt.Errorf("pipeline runner is not initialized")
	}

	result := RunResult{}

	stats, err := r.classifier.Run(ctx)
	result.Batches = stats.Batches
	result.Classified = stats.Classified
	result.Quarantined = stats.Quarantined
	result.Dropped = stats.Dropped
	if err != nil {
		return result, fmt.Errorf("classification stage: %w", err)
	}

	upserted, err := r.aggregator.Aggregate(ctx, globaltime.Now())
	if err != nil {
		return result, fmt.Errorf("aggregation stage: %w", err)
	}
	result.Aggregated = upserted

	r.logger.Info().
		Int("classified", result.Classified).
		Int("quarantined", result.Quarantined).
		Int("aggregated", result.Aggregated).
		Msg("pipeline pass done")

	return result, nil
}
