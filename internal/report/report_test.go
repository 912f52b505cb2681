package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/harness"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *harness.Report {
	combo := harness.Combination{Normalizer: "plain", Mode: "phrase", Model: "bm25"}
	return &harness.Report{
		RunID:      "run-1",
		FinishedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Field:      "body",
		Slop:       15,
		MaxDepth:   2,
		Documents:  3,
		Queries:    []string{"cats", "dogs"},
		Results: []harness.QueryResult{
			{
				Query:         "cats",
				Combination:   combo,
				Relevant:      2,
				Returned:      3,
				TopDocs:       []int{2, 0},
				RecallDefined: true,
				Rows: []evaluation.Row{
					{Depth: 1, Precision: 1, Recall: 0.5, RecallDefined: true},
					{Depth: 2, Precision: 1, Recall: 1, RecallDefined: true},
				},
			},
			{
				Query:       "dogs",
				Combination: combo,
				Returned:    1,
				TopDocs:     []int{1},
				Rows: []evaluation.Row{
					{Depth: 1, Precision: 0},
					{Depth: 2, Precision: 0},
				},
			},
		},
		Skipped: []harness.Skip{
			{Query: "2024", Combination: harness.Combination{Normalizer: "plain"}, Kind: "empty_query"},
		},
		Summaries: []harness.Summary{
			{
				Combination:   combo,
				Queries:       2,
				RecallQueries: 1,
				Depths: []harness.DepthSummary{
					{Depth: 1, MeanPrecision: 0.5, MeanRecall: 0.5},
					{Depth: 2, MeanPrecision: 2.0 / 3.0, MeanRecall: 1},
				},
			},
		},
	}
}

func TestTableWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableWriter(&buf).Write(context.Background(), sampleReport()))
	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, `"cats"`)
	assert.Contains(t, out, "plain / phrase / bm25")
	assert.Contains(t, out, "Precision")
	assert.Contains(t, out, "1.0000")
	assert.Contains(t, out, "0.5000")
	assert.Contains(t, out, "0.6667")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "skipped \"2024\"")
}

func TestFlattenRowsStoresUndefinedRecallAsNull(t *testing.T) {
	rows := flattenRows(sampleReport())
	require.Len(t, rows, 4)
	assert.Equal(t, "run-1", rows[0].runID)
	assert.Equal(t, "cats", rows[0].query)
	assert.True(t, rows[0].recall.Valid)
	assert.InDelta(t, 0.5, rows[0].recall.Float64, 1e-12)
	assert.Equal(t, "dogs", rows[3].query)
	assert.False(t, rows[3].recall.Valid)
	assert.Len(t, rows[0].values(), len(rowColumns))
}

type fakeProducer struct {
	events []kafka.Event
	err    error
}

func (f *fakeProducer) PublishBatch(_ context.Context, events []kafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, events...)
	return nil
}

func TestPublisherEmitsEventPerResultAndSkip(t *testing.T) {
	fp := &fakeProducer{}
	require.NoError(t, NewPublisher(fp).Write(context.Background(), sampleReport()))
	require.Len(t, fp.events, 3)
	assert.Equal(t, "cats", fp.events[0].Key)
	ev := fp.events[0].Value.(EvaluationEvent)
	assert.Equal(t, EventEvaluated, ev.Type)
	assert.Equal(t, "run-1", ev.RunID)
	assert.Len(t, ev.Rows, 2)
	skip := fp.events[2].Value.(EvaluationEvent)
	assert.Equal(t, EventSkipped, skip.Type)
	assert.Equal(t, "empty_query", skip.Reason)

	messages, err := kafka.Encode(fp.events)
	require.NoError(t, err)
	assert.Contains(t, string(messages[0].Value), `"type":"evaluated"`)
}

func TestPublisherError(t *testing.T) {
	err := NewPublisher(&fakeProducer{err: errors.New("no brokers")}).Write(context.Background(), sampleReport())
	assert.ErrorContains(t, err, "no brokers")
}

type flakySink struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakySink) Name() string { return "flaky" }

func (f *flakySink) Write(context.Context, *harness.Report) error {
	if f.calls.Add(1) <= f.failures {
		return errors.New("unavailable")
	}
	return nil
}

func TestWithRetry(t *testing.T) {
	sink := &flakySink{failures: 2}
	cfg := resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	require.NoError(t, WithRetry(sink, cfg, time.Second).Write(context.Background(), sampleReport()))
	assert.Equal(t, int32(3), sink.calls.Load())
	assert.Equal(t, "flaky", WithRetry(sink, cfg, 0).Name())
}

func TestWriteAllContinuesAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	failing := NewPublisher(&fakeProducer{err: errors.New("down")})
	err := WriteAll(context.Background(), sampleReport(), failing, NewTableWriter(&buf))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "sink kafka"))
	assert.NotEmpty(t, buf.String())
}
