package harness

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catsCorpus() []corpus.Document {
	return []corpus.Document{
		{ID: 0, Body: "cats are playful pets and cats purr", Query: "cats", Relevant: true},
		{ID: 1, Body: "dogs bark at the mailman and sometimes at cats", Query: "cats", Relevant: false},
		{ID: 2, Body: "cats sleep", Query: "cats", Relevant: true},
	}
}

func mixedCorpus() []corpus.Document {
	return []corpus.Document{
		{ID: 0, Body: "information retrieval evaluates ranked search results", Query: "search evaluation", Relevant: true},
		{ID: 1, Body: "evaluation of search engines uses precision and recall", Query: "search evaluation", Relevant: true},
		{ID: 2, Body: "cooking pasta requires boiling water", Query: "search evaluation", Relevant: false},
		{ID: 3, Body: "precision recall tradeoff in retrieval", Query: "precision recall", Relevant: true},
		{ID: 4, Body: "gardening in spring", Query: "precision recall", Relevant: false},
		{ID: 5, Body: "a report about boiling water", Query: "boiling water", Relevant: false},
	}
}

func runContext() context.Context {
	return logger.WithRunID(context.Background(), "test-run")
}

func TestRunCatsScenario(t *testing.T) {
	opts := DefaultOptions()
	opts.Models = []ranker.Model{ranker.ModelBM25}
	opts.MaxDepth = 3

	report, err := New(opts, nil, nil).Run(runContext(), catsCorpus())
	require.NoError(t, err)
	assert.Equal(t, "test-run", report.RunID)
	assert.Equal(t, []string{"cats"}, report.Queries)
	require.Len(t, report.Results, 4)

	for _, r := range report.Results {
		assert.Equal(t, []int{2, 0, 1}, r.TopDocs, "%+v", r.Combination)
		require.Len(t, r.Rows, 3)
		assert.InDelta(t, 1.0, r.Rows[1].Precision, 1e-12)
		assert.InDelta(t, 1.0, r.Rows[1].Recall, 1e-12)
		assert.InDelta(t, 2.0/3.0, r.Rows[2].Precision, 1e-9)
		assert.InDelta(t, 1.0, r.Rows[2].Recall, 1e-12)
		assert.True(t, r.RecallDefined)
		assert.Equal(t, 2, r.Relevant)
		assert.Equal(t, 3, r.Returned)
	}
	assert.Empty(t, report.Skipped)
}

func TestRunOrdersResultsByQueryThenConfiguration(t *testing.T) {
	report, err := New(DefaultOptions(), nil, nil).Run(runContext(), mixedCorpus())
	require.NoError(t, err)
	assert.Equal(t, []string{"boiling water", "precision recall", "search evaluation"}, report.Queries)
	require.Len(t, report.Results, 3*2*2*2)

	want := []Combination{
		{"plain", "phrase", "bm25"}, {"plain", "phrase", "tfidf"},
		{"plain", "disjunction", "bm25"}, {"plain", "disjunction", "tfidf"},
		{"stemmed", "phrase", "bm25"}, {"stemmed", "phrase", "tfidf"},
		{"stemmed", "disjunction", "bm25"}, {"stemmed", "disjunction", "tfidf"},
	}
	for qi, q := range report.Queries {
		for ci, c := range want {
			r := report.Results[qi*len(want)+ci]
			assert.Equal(t, q, r.Query)
			assert.Equal(t, c, r.Combination)
			assert.Len(t, r.Rows, evaluation.DefaultMaxDepth)
		}
	}
	require.Len(t, report.Indexes, 2)
	assert.Equal(t, "plain", report.Indexes[0].Normalizer)
	assert.Equal(t, 6, report.Indexes[0].Documents)
	assert.NotEqual(t, report.Indexes[0].Fingerprint, report.Indexes[1].Fingerprint)
	assert.Len(t, report.Summaries, len(want))
}

func TestRunUndefinedRecallKeepsPrecision(t *testing.T) {
	report, err := New(DefaultOptions(), nil, nil).Run(runContext(), mixedCorpus())
	require.NoError(t, err)
	found := false
	for _, r := range report.Results {
		if r.Query != "boiling water" {
			continue
		}
		found = true
		assert.False(t, r.RecallDefined)
		assert.Equal(t, 0, r.Relevant)
		require.NotEmpty(t, r.Rows)
		assert.InDelta(t, 0.0, r.Rows[0].Precision, 1e-12)
		assert.False(t, r.Rows[0].RecallDefined)
	}
	assert.True(t, found)
}

func TestRunSkipsEmptyQueryPerNormalizer(t *testing.T) {
	docs := append(catsCorpus(), corpus.Document{ID: 3, Body: "numbers only", Query: "2024", Relevant: true})
	report, err := New(DefaultOptions(), nil, nil).Run(runContext(), docs)
	require.NoError(t, err)

	require.Len(t, report.Skipped, 2)
	for i, n := range []string{"plain", "stemmed"} {
		assert.Equal(t, "2024", report.Skipped[i].Query)
		assert.Equal(t, n, report.Skipped[i].Normalizer)
		assert.Equal(t, "empty_query", report.Skipped[i].Kind)
	}
	for _, r := range report.Results {
		assert.Equal(t, "cats", r.Query)
	}
	assert.Len(t, report.Results, 8)
}

func TestRunStrictSkipsShortRankings(t *testing.T) {
	opts := DefaultOptions()
	opts.ShortRanking = evaluation.Strict
	opts.MaxDepth = 3
	opts.Modes = []parser.Mode{parser.ModePhrase}
	opts.Models = []ranker.Model{ranker.ModelBM25}
	opts.Normalizers = []tokenizer.Normalizer{tokenizer.Plain}

	report, err := New(opts, nil, nil).Run(runContext(), mixedCorpus())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	require.Len(t, report.Skipped, 3)
	for _, s := range report.Skipped {
		assert.Equal(t, "depth_exceeds_results", s.Kind)
	}

	report, err = New(opts, nil, nil).Run(runContext(), catsCorpus())
	require.NoError(t, err)
	assert.Len(t, report.Results, 1)
	assert.Empty(t, report.Skipped)
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	serial := DefaultOptions()
	serial.IndexWorkers, serial.SearchWorkers = 1, 1
	parallel := DefaultOptions()
	parallel.IndexWorkers, parallel.SearchWorkers = 8, 8

	a, err := New(serial, nil, nil).Run(runContext(), mixedCorpus())
	require.NoError(t, err)
	b, err := New(parallel, nil, nil).Run(runContext(), mixedCorpus())
	require.NoError(t, err)
	assert.Equal(t, a.Results, b.Results)
	assert.Equal(t, a.Summaries, b.Summaries)
}

func TestRunSummaries(t *testing.T) {
	opts := DefaultOptions()
	opts.Models = []ranker.Model{ranker.ModelBM25}
	opts.Modes = []parser.Mode{parser.ModeDisjunction}
	opts.Normalizers = []tokenizer.Normalizer{tokenizer.Plain}
	opts.MaxDepth = 3

	report, err := New(opts, nil, nil).Run(runContext(), catsCorpus())
	require.NoError(t, err)
	require.Len(t, report.Summaries, 1)
	s := report.Summaries[0]
	assert.Equal(t, Combination{"plain", "disjunction", "bm25"}, s.Combination)
	assert.Equal(t, 1, s.Queries)
	assert.Equal(t, 1, s.RecallQueries)
	require.Len(t, s.Depths, 3)
	assert.InDelta(t, 0.5, s.Depths[0].MeanRecall, 1e-12)
	assert.InDelta(t, 2.0/3.0, s.Depths[2].MeanPrecision, 1e-9)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(runContext())
	cancel()
	_, err := New(DefaultOptions(), nil, nil).Run(ctx, mixedCorpus())
	assert.ErrorIs(t, err, context.Canceled)
}

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *memStore) FlushByPattern(context.Context, string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.data))
	m.data = make(map[string]string)
	return n, nil
}

func TestRunUsesRankingCache(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := cache.New(&memStore{data: make(map[string]string)}, time.Hour, m)
	runner := New(DefaultOptions(), c, m)

	first, err := runner.Run(runContext(), mixedCorpus())
	require.NoError(t, err)
	second, err := runner.Run(runContext(), mixedCorpus())
	require.NoError(t, err)

	require.Equal(t, len(first.Results), len(second.Results))
	for i := range first.Results {
		assert.False(t, first.Results[i].CacheHit)
		assert.True(t, second.Results[i].CacheHit)
		assert.Equal(t, first.Results[i].Rows, second.Results[i].Rows)
	}
	hits, _ := c.Stats()
	assert.Equal(t, int64(len(second.Results)), hits)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Indexer.Normalizers = []string{"stemmed"}
	cfg.Search.Modes = []string{"disjunction"}
	cfg.Search.Models = []string{"tfidf", "bm25"}
	cfg.Evaluation.ShortRanking = "strict"

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, []tokenizer.Normalizer{tokenizer.Stemmed}, opts.Normalizers)
	assert.Equal(t, []parser.Mode{parser.ModeDisjunction}, opts.Modes)
	assert.Equal(t, []ranker.Model{ranker.ModelTFIDF, ranker.ModelBM25}, opts.Models)
	assert.Equal(t, evaluation.Strict, opts.ShortRanking)
	assert.Equal(t, corpus.FieldBody, opts.Field)
	assert.Equal(t, 15, opts.Slop)
	assert.Equal(t, 11, opts.MaxDepth)

	cfg.Search.Models = []string{"lm"}
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}

func TestRunLeavesUndefinedRecallUnexported(t *testing.T) {
	docs := []corpus.Document{
		{ID: 0, Body: "a report about boiling water", Query: "boiling water"},
		{ID: 1, Body: "water for tea", Query: "boiling water"},
	}
	reg := prometheus.NewRegistry()
	opts := DefaultOptions()
	opts.MaxDepth = 2
	report, err := New(opts, nil, metrics.New(reg)).Run(runContext(), docs)
	require.NoError(t, err)
	require.NotEmpty(t, report.Summaries)
	for _, s := range report.Summaries {
		assert.Zero(t, s.RecallQueries)
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]int)
	for _, f := range families {
		names[f.GetName()] = len(f.GetMetric())
	}
	assert.Equal(t, len(report.Summaries), names["relevance_mean_precision_at_max_depth"])
	assert.NotContains(t, names, "relevance_mean_recall_at_max_depth")
}
