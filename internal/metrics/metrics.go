// Package metrics collects and exposes Prometheus counters for the
// discovery pipeline. A nil *Collector is a valid no-op receiver so callers
// never have to guard their instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the pipeline counters. Construct with NewCollector; the
// zero value is unusable but a nil pointer is safe.
type Collector struct {
	postsIngested     *prometheus.CounterVec
	postsDuplicate    prometheus.Counter
	postsClassified   prometheus.Counter
	postsQuarantined  prometheus.Counter
	judgmentsDropped  prometheus.Counter
	oracleBatches     *prometheus.CounterVec
	snapshotsUpserted prometheus.Counter
}

// NewCollector registers the pipeline metrics on reg and returns the
// collector.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		postsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nichescore_posts_ingested_total",
			Help: "Raw posts accepted into storage, by source.",
		}, []string{"source"}),
		postsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nichescore_posts_duplicate_total",
			Help: "Ingested records dropped as already-known identities.",
		}),
		postsClassified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nichescore_posts_classified_total",
			Help: "Posts persisted with an oracle judgment.",
		}),
		postsQuarantined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nichescore_posts_quarantined_total",
			Help: "Posts persisted with the quarantine sentinel.",
		}),
		judgmentsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nichescore_judgments_dropped_total",
			Help: "Oracle judgments discarded for referencing no batch position.",
		}),
		oracleBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nichescore_oracle_batches_total",
			Help: "Classification batches sent to the oracle, by outcome.",
		}, []string{"outcome"}),
		snapshotsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nichescore_trend_snapshots_upserted_total",
			Help: "Daily trend snapshots written or refreshed.",
		}),
	}

	reg.MustRegister(
		c.postsIngested,
		c.postsDuplicate,
		c.postsClassified,
		c.postsQuarantined,
		c.judgmentsDropped,
		c.oracleBatches,
		c.snapshotsUpserted,
	)

	return c
}

func (c *Collector) RecordPostIngested(source string) {
	if c == nil {
		return
	}
	c.postsIngested.WithLabelValues(source).Inc()
}

func (c *Collector) RecordPostDuplicate() {
	if c == nil {
		return
	}
	c.postsDuplicate.Inc()
}

func (c *Collector) RecordPostsClassified(count int) {
	if c == nil {
		return
	}
	c.postsClassified.Add(float64(count))
}

func (c *Collector) RecordPostsQuarantined(count int) {
	if c == nil {
		return
	}
	c.postsQuarantined.Add(float64(count))
}

func (c *Collector) RecordJudgmentsDropped(count int) {
	if c == nil {
		return
	}
	c.judgmentsDropped.Add(float64(count))
}

// RecordOracleBatch tallies one batch with outcome "ok" or "failed".
func (c *Collector) RecordOracleBatch(outcome string) {
	if c == nil {
		return
	}
	c.oracleBatches.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSnapshotUpserted() {
	if c == nil {
		return
	}
	c.snapshotsUpserted.Inc()
}

// Handler returns the Prometheus scrape handler for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
