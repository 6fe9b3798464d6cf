// Package classify drains unclassified posts through the LLM oracle in
// fixed-size batches and persists one judgment per post. Posts the oracle
// cannot handle are quarantined with a sentinel judgment so the drain loop
// always converges.
package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/nichescore/internal/db"
	"horse.fit/nichescore/internal/metrics"
	"horse.fit/nichescore/internal/oracle"
)

// Quarantine sentinel values. Aggregation and read surfaces exclude the
// sentinel category from scoring.
const (
	QuarantineCategory    = "unclassified"
	QuarantineSubcategory = "parse_error"
	QuarantineSentiment   = 1
	QuarantineSummary     = "Classifier could not parse this post"
)

const (
	defaultBatchSize     = 50
	defaultExcerptChars  = 300
	defaultOracleTimeout = 60 * time.Second
)

// Store is the persistence surface the classifier needs.
type Store interface {
	ListPendingPosts(ctx context.Context, limit int) ([]db.PendingPost, error)
	InsertClassification(ctx context.Context, row db.ClassificationInsert) (bool, error)
}

// RunStats reports classification execution counters.
type RunStats struct {
	Batches     int `json:"batches"`
	Classified  int `json:"classified"`
	Quarantined int `json:"quarantined"`
	Dropped     int `json:"dropped"`
}

// Options tunes batch shape and oracle deadlines. Zero fields fall back to
// production defaults.
type Options struct {
	BatchSize       int
	ExcerptMaxChars int
	OracleTimeout   time.Duration
}

// Service runs the classification drain loop.
type Service struct {
	store    Store
	provider oracle.Provider
	logger   zerolog.Logger
	metrics  *metrics.Collector
	opts     Options
}

func NewService(store Store, provider oracle.Provider, logger zerolog.Logger, collector *metrics.Collector, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.ExcerptMaxChars <= 0 {
		opts.ExcerptMaxChars = defaultExcerptChars
	}
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = defaultOracleTimeout
	}
	return &Service{
		store:    store,
		provider: provider,
		logger:   logger,
		metrics:  collector,
		opts:     opts,
	}
}

// Run claims pending posts in collection order and classifies batch after
// batch until none remain. A batch that makes no persistence progress at all
// aborts the run: that means the store itself is refusing writes, and
// retrying the same posts forever would spin.
func (s *Service) Run(ctx context.Context) (RunStats, error) {
	if s == nil || s.store == nil || s.provider == nil {
		return RunStats{}, fmt.Errorf("classifier is not initialized")
	}

	stats := RunStats{}
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		posts, err := s.store.ListPendingPosts(ctx, s.opts.BatchSize)
		if err != nil {
			return stats, fmt.Errorf("list pending posts: %w", err)
		}
		if len(posts) == 0 {
			break
		}

		stats.Batches++
		progress := s.classifyBatch(ctx, posts, &stats)
		if progress == 0 {
			return stats, fmt.Errorf("classification batch of %d posts made no progress", len(posts))
		}

		s.logger.Info().
			Int("batch", stats.Batches).
			Int("posts", len(posts)).
			Int("written", progress).
			Msg("classification batch done")
	}

	return stats, nil
}

// classifyBatch sends one batch through the oracle and persists the
// judgments, returning how many rows were written. An oracle or parse
// failure quarantines the whole batch instead of failing the run.
func (s *Service) classifyBatch(ctx context.Context, posts []db.PendingPost, stats *RunStats) int {
	judgments, err := s.requestJudgments(ctx, posts)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("posts", len(posts)).
			Str("provider", s.provider.Name()).
			Msg("oracle batch failed, quarantining")
		s.metrics.RecordOracleBatch("failed")
		return s.quarantineBatch(ctx, posts, stats)
	}
	s.metrics.RecordOracleBatch("ok")

	written := 0
	for _, judgment := range judgments {
		if judgment.Index < 1 || judgment.Index > len(posts) {
			stats.Dropped++
			s.metrics.RecordJudgmentsDropped(1)
			s.logger.Warn().
				Int("index", judgment.Index).
				Int("batch_size", len(posts)).
				Msg("dropping judgment with out-of-range index")
			continue
		}

		post := posts[judgment.Index-1]
		inserted, err := s.store.InsertClassification(ctx, db.ClassificationInsert{
			RawPostID:      post.RawPostID,
			Category:       judgment.Category,
			Subcategory:    judgment.Subcategory,
			SentimentScore: judgment.SentimentScore,
			IsAppSolvable:  judgment.IsAppSolvable,
			Summary:        judgment.Summary,
		})
		if err != nil {
			s.logger.Error().
				Err(err).
				Int64("raw_post_id", post.RawPostID).
				Msg("failed to save classification")
			continue
		}
		if inserted {
			stats.Classified++
			written++
			s.metrics.RecordPostsClassified(1)
		}
	}
	return written
}

func (s *Service) requestJudgments(ctx context.Context, posts []db.PendingPost) ([]Judgment, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.OracleTimeout)
	defer cancel()

	resp, err := s.provider.Complete(callCtx, oracle.Request{
		System: systemPrompt,
		User:   BuildPrompt(posts, s.opts.ExcerptMaxChars),
	})
	if err != nil {
		return nil, err
	}
	return ParseJudgments(resp.Content)
}

// quarantineBatch writes the sentinel judgment for every post in a failed
// batch so the posts leave the pending set. Individual write failures are
// logged and skipped.
func (s *Service) quarantineBatch(ctx context.Context, posts []db.PendingPost, stats *RunStats) int {
	written := 0
	for _, post := range posts {
		inserted, err := s.store.InsertClassification(ctx, db.ClassificationInsert{
			RawPostID:      post.RawPostID,
			Category:       QuarantineCategory,
			Subcategory:    QuarantineSubcategory,
			SentimentScore: QuarantineSentiment,
			IsAppSolvable:  false,
			Summary:        QuarantineSummary,
		})
		if err != nil {
			s.logger.Error().
				Err(err).
				Int64("raw_post_id", post.RawPostID).
				Msg("failed to quarantine post")
			continue
		}
		if inserted {
			stats.Quarantined++
			written++
			s.metrics.RecordPostsQuarantined(1)
		}
	}
	return written
}
