package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fetch metrics
	PagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bgstats_pages_fetched_total",
		Help: "The total number of play pages successfully fetched from BGG",
	})
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bgstats_rate_limited_total",
		Help: "The total number of 429 responses received from BGG",
	})
	FetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bgstats_fetch_failures_total",
		Help: "The total number of failed (non-429) play page fetches",
	})

	// Store metrics
	PlaysWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bgstats_plays_written_total",
		Help: "The total number of plays inserted or merged into the store",
	})
	UpsertLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bgstats_upsert_latency_seconds",
		Help:    "Latency of per-page play upsert batches",
		Buckets: prometheus.DefBuckets,
	})

	// Engine metrics
	PassesCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bgstats_passes_completed_total",
		Help: "The total number of completed sync passes over the tracked-game list",
	})
	FullImportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bgstats_full_imports_total",
		Help: "The total number of completed full imports",
	})
	GamesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bgstats_games_skipped_total",
		Help: "The total number of games skipped by the once-per-day policy",
	})
)
