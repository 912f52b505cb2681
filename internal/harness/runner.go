// Package harness runs the full relevance evaluation: it builds one index per
// normalizer, searches every distinct query under every configured mode and
// model, and evaluates precision and recall of each ranking.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

type Runner struct {
	opts    Options
	cache   *cache.QueryCache
	metrics *metrics.Metrics
}

// New returns a Runner. c and m may be nil.
func New(opts Options, c *cache.QueryCache, m *metrics.Metrics) *Runner {
	if opts.MaxDepth < 1 {
		opts.MaxDepth = evaluation.DefaultMaxDepth
	}
	if opts.Field == "" {
		opts.Field = corpus.FieldBody
	}
	if opts.SearchWorkers < 1 {
		opts.SearchWorkers = 1
	}
	return &Runner{opts: opts, cache: c, metrics: m}
}

// queryOutcome collects everything produced for one query so that workers
// never share state; outcomes are flattened in query order afterwards.
type queryOutcome struct {
	results []QueryResult
	skipped []Skip
}

// Run evaluates docs. A query that normalizes to nothing under one normalizer
// is skipped for that normalizer only; any other search failure aborts the
// run.
func (r *Runner) Run(ctx context.Context, docs []corpus.Document) (*Report, error) {
	log := logger.FromContext(ctx).With("component", "harness")
	ctx, span := tracing.StartSpan(ctx, "evaluation", logger.RunID(ctx))
	report := &Report{
		RunID:     logger.RunID(ctx),
		StartedAt: time.Now().UTC(),
		Field:     string(r.opts.Field),
		Slop:      r.opts.Slop,
		MaxDepth:  r.opts.MaxDepth,
		Documents: len(docs),
		Queries:   corpus.DistinctQueries(docs),
	}
	log.Info("evaluating queries", "count", len(report.Queries), "documents", len(docs))
	for i, q := range report.Queries {
		log.Info("query", "n", i+1, "text", q)
	}

	executors := make([]*executor.Executor, 0, len(r.opts.Normalizers))
	for _, n := range r.opts.Normalizers {
		idx, stats, err := r.buildIndex(ctx, docs, n)
		if err != nil {
			return nil, err
		}
		report.Indexes = append(report.Indexes, stats)
		executors = append(executors, executor.New(idx, r.metrics))
	}

	relevant := make([]map[int]struct{}, len(report.Queries))
	for i, q := range report.Queries {
		relevant[i] = corpus.RelevantIDs(docs, q)
	}

	_, evalSpan := tracing.StartChildSpan(ctx, "search-and-evaluate")
	outcomes := make([]queryOutcome, len(report.Queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.SearchWorkers)
	for i, q := range report.Queries {
		g.Go(func() error {
			out, err := r.evaluateQuery(gctx, q, relevant[i], executors)
			if err != nil {
				return fmt.Errorf("query %q: %w", q, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	evalSpan.SetAttr("queries", len(report.Queries))
	evalSpan.End()

	for _, out := range outcomes {
		report.Results = append(report.Results, out.results...)
		report.Skipped = append(report.Skipped, out.skipped...)
	}
	report.Summaries = summarize(report.Results, r.opts.MaxDepth)
	r.recordSummaries(report.Summaries)
	report.FinishedAt = time.Now().UTC()

	span.SetAttr("results", len(report.Results))
	span.SetAttr("skipped", len(report.Skipped))
	span.End()
	span.Log(log)
	log.Info("evaluation complete",
		"results", len(report.Results),
		"skipped", len(report.Skipped),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

func (r *Runner) buildIndex(ctx context.Context, docs []corpus.Document, n tokenizer.Normalizer) (*index.Index, IndexStats, error) {
	ctx, span := tracing.StartChildSpan(ctx, "build-index")
	defer span.End()
	span.SetAttr("normalizer", n.String())
	start := time.Now()
	idx, err := index.Build(ctx, docs, index.BuildConfig{
		Normalizer: n,
		Field:      r.opts.Field,
		Workers:    r.opts.IndexWorkers,
	})
	if err != nil {
		return nil, IndexStats{}, fmt.Errorf("building %s index: %w", n, err)
	}
	elapsed := time.Since(start)
	if r.metrics != nil {
		r.metrics.DocsIndexedTotal.WithLabelValues(n.String()).Add(float64(idx.DocumentCount()))
		r.metrics.IndexTerms.WithLabelValues(n.String()).Set(float64(idx.Terms()))
		r.metrics.IndexBuildDuration.WithLabelValues(n.String()).Observe(elapsed.Seconds())
	}
	return idx, IndexStats{
		Normalizer:    n.String(),
		Documents:     idx.DocumentCount(),
		Terms:         idx.Terms(),
		AverageLength: idx.AverageFieldLength(),
		Fingerprint:   idx.Fingerprint(),
		BuildMillis:   elapsed.Milliseconds(),
	}, nil
}

func (r *Runner) evaluateQuery(ctx context.Context, query string, relevant map[int]struct{}, executors []*executor.Executor) (queryOutcome, error) {
	var out queryOutcome
	for _, ex := range executors {
		normalizer := ex.Index().Normalizer().String()
	combinations:
		for _, mode := range r.opts.Modes {
			for _, model := range r.opts.Models {
				combo := Combination{Normalizer: normalizer, Mode: mode.String(), Model: model.String()}
				res, hit, err := r.search(ctx, ex, query, mode, model)
				if errors.Is(err, apperrors.ErrEmptyQuery) {
					out.skipped = append(out.skipped, r.skip(ctx, query, Combination{Normalizer: normalizer}, err))
					break combinations
				}
				if err != nil {
					return queryOutcome{}, err
				}
				rows, err := evaluation.Evaluate(res.Results, relevant, r.opts.MaxDepth, r.opts.ShortRanking)
				switch {
				case errors.Is(err, apperrors.ErrUndefinedRecall):
				case errors.Is(err, apperrors.ErrDepthExceedsResults):
					out.skipped = append(out.skipped, r.skip(ctx, query, combo, err))
					continue
				case err != nil:
					return queryOutcome{}, err
				}
				out.results = append(out.results, QueryResult{
					Query:         query,
					Combination:   combo,
					Relevant:      len(relevant),
					Returned:      len(res.Results),
					TopDocs:       topDocs(res.Results, r.opts.MaxDepth),
					Rows:          rows,
					RecallDefined: len(relevant) > 0,
					CacheHit:      hit,
				})
			}
		}
	}
	return out, nil
}

func (r *Runner) search(ctx context.Context, ex *executor.Executor, query string, mode parser.Mode, model ranker.Model) (*executor.SearchResult, bool, error) {
	compute := func() (*executor.SearchResult, error) {
		return ex.Execute(ctx, query, mode, model, r.opts.Slop)
	}
	if r.cache == nil {
		res, err := compute()
		return res, false, err
	}
	idx := ex.Index()
	return r.cache.GetOrCompute(ctx, cache.Key{
		Fingerprint: idx.Fingerprint(),
		Normalizer:  idx.Normalizer().String(),
		Mode:        mode.String(),
		Model:       model.String(),
		Slop:        r.opts.Slop,
		Query:       query,
	}, compute)
}

func (r *Runner) skip(ctx context.Context, query string, combo Combination, err error) Skip {
	kind := apperrors.Kind(err)
	if r.metrics != nil {
		r.metrics.QueriesSkipped.WithLabelValues(kind).Inc()
	}
	logger.FromContext(ctx).Warn("query skipped",
		slog.String("query", query),
		slog.String("normalizer", combo.Normalizer),
		slog.String("mode", combo.Mode),
		slog.String("model", combo.Model),
		slog.String("kind", kind),
	)
	return Skip{Query: query, Combination: combo, Kind: kind, Error: err.Error()}
}

func (r *Runner) recordSummaries(summaries []Summary) {
	if r.metrics == nil {
		return
	}
	for _, s := range summaries {
		if len(s.Depths) == 0 {
			continue
		}
		last := s.Depths[len(s.Depths)-1]
		r.metrics.FinalPrecision.WithLabelValues(s.Normalizer, s.Mode, s.Model).Set(last.MeanPrecision)
		if s.RecallQueries == 0 {
			continue
		}
		r.metrics.FinalRecall.WithLabelValues(s.Normalizer, s.Mode, s.Model).Set(last.MeanRecall)
	}
}

func topDocs(results []ranker.ScoredDoc, n int) []int {
	if len(results) < n {
		n = len(results)
	}
	ids := make([]int, n)
	for i := 0; i < n; i++ {
		ids[i] = results[i].DocID
	}
	return ids
}
