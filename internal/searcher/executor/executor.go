package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/metrics"
)

type SearchResult struct {
	Query      string             `json:"query"`
	Normalizer string             `json:"normalizer"`
	Mode       string             `json:"mode"`
	Model      string             `json:"model"`
	Terms      []string           `json:"terms"`
	TotalHits  int                `json:"total_hits"`
	Results    []ranker.ScoredDoc `json:"results"`
	TermStats  map[string]int     `json:"term_stats"`
}

// Executor runs queries against a single index. Queries are always planned
// with the normalizer that built the index.
type Executor struct {
	idx     *index.Index
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New returns an Executor over idx. m may be nil.
func New(idx *index.Index, m *metrics.Metrics) *Executor {
	return &Executor{
		idx:     idx,
		metrics: m,
		logger: slog.Default().With(
			"component", "query-executor",
			"normalizer", idx.Normalizer().String(),
		),
	}
}

// Index returns the index the executor searches.
func (e *Executor) Index() *index.Index {
	return e.idx
}

// Execute plans raw for mode and ranks every matching document under model.
// It returns ErrEmptyQuery when raw has no terms under the index normalizer.
func (e *Executor) Execute(ctx context.Context, raw string, mode parser.Mode, model ranker.Model, slop int) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	plan, err := parser.Plan(raw, e.idx.Normalizer(), mode, slop)
	if err != nil {
		e.observe(mode, model, err, 0, start)
		return nil, err
	}
	termStats := make(map[string]int)
	for _, term := range plan.UniqueTerms() {
		if df := e.idx.DocFrequency(term); df > 0 {
			termStats[term] = df
		}
	}
	ranked := ranker.Search(plan, e.idx, model)
	e.observe(mode, model, nil, len(ranked), start)
	e.logger.Debug("query executed",
		"query", raw,
		"mode", mode.String(),
		"model", model.String(),
		"terms", plan.Terms,
		"results", len(ranked),
	)
	return &SearchResult{
		Query:      raw,
		Normalizer: e.idx.Normalizer().String(),
		Mode:       mode.String(),
		Model:      model.String(),
		Terms:      plan.Terms,
		TotalHits:  len(ranked),
		Results:    ranked,
		TermStats:  termStats,
	}, nil
}

func (e *Executor) observe(mode parser.Mode, model ranker.Model, err error, results int, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchesTotal.WithLabelValues(mode.String(), model.String(), apperrors.Kind(err)).Inc()
	if err != nil {
		return
	}
	e.metrics.SearchLatency.WithLabelValues(mode.String(), model.String()).Observe(time.Since(start).Seconds())
	e.metrics.SearchResultsCount.WithLabelValues(mode.String()).Observe(float64(results))
}
