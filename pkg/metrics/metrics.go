// Package metrics defines the Prometheus collectors of an evaluation run and
// pushes them to a Pushgateway when the run completes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the harness.
type Metrics struct {
	DocsIndexedTotal   *prometheus.CounterVec
	IndexTerms         *prometheus.GaugeVec
	IndexBuildDuration *prometheus.HistogramVec
	SearchesTotal      *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount *prometheus.HistogramVec
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	QueriesSkipped     *prometheus.CounterVec
	FinalPrecision     *prometheus.GaugeVec
	FinalRecall        *prometheus.GaugeVec
}

// New creates all collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relevance_docs_indexed_total",
				Help: "Documents indexed by normalizer.",
			},
			[]string{"normalizer"},
		),
		IndexTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "relevance_index_terms",
				Help: "Distinct terms in the index by normalizer.",
			},
			[]string{"normalizer"},
		),
		IndexBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relevance_index_build_seconds",
				Help:    "Index build latency in seconds.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"normalizer"},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relevance_searches_total",
				Help: "Searches by mode, model and outcome (ok, empty_query, ...).",
			},
			[]string{"mode", "model", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relevance_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"mode", "model"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relevance_search_results_count",
				Help:    "Number of ranked documents returned per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
			[]string{"mode"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relevance_cache_hits_total",
				Help: "Total number of ranking cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relevance_cache_misses_total",
				Help: "Total number of ranking cache misses.",
			},
		),
		QueriesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relevance_queries_skipped_total",
				Help: "Query/normalizer pairs skipped, by error kind.",
			},
			[]string{"kind"},
		),
		FinalPrecision: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "relevance_mean_precision_at_max_depth",
				Help: "Mean precision at the deepest cutoff, per combination.",
			},
			[]string{"normalizer", "mode", "model"},
		),
		FinalRecall: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "relevance_mean_recall_at_max_depth",
				Help: "Mean recall at the deepest cutoff over queries with defined recall, per combination.",
			},
			[]string{"normalizer", "mode", "model"},
		),
	}

	reg.MustRegister(
		m.DocsIndexedTotal,
		m.IndexTerms,
		m.IndexBuildDuration,
		m.SearchesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.QueriesSkipped,
		m.FinalPrecision,
		m.FinalRecall,
	)

	return m
}
