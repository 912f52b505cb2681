package evaluation

import (
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ranked(ids ...int) []ranker.ScoredDoc {
	out := make([]ranker.ScoredDoc, len(ids))
	for i, id := range ids {
		out[i] = ranker.ScoredDoc{DocID: id, Score: float64(len(ids) - i)}
	}
	return out
}

func set(ids ...int) map[int]struct{} {
	out := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestEvaluateCatsScenario(t *testing.T) {
	rows, err := Evaluate(ranked(0, 2, 1), set(0, 2), 3, Pad)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 1, rows[0].Depth)
	assert.InDelta(t, 1.0, rows[0].Precision, 1e-12)
	assert.InDelta(t, 0.5, rows[0].Recall, 1e-12)

	assert.InDelta(t, 1.0, rows[1].Precision, 1e-12)
	assert.InDelta(t, 1.0, rows[1].Recall, 1e-12)

	assert.InDelta(t, 2.0/3.0, rows[2].Precision, 1e-12)
	assert.InDelta(t, 1.0, rows[2].Recall, 1e-12)
	for _, r := range rows {
		assert.True(t, r.RecallDefined)
	}
}

func TestEvaluateMonotonicity(t *testing.T) {
	rows, err := Evaluate(ranked(5, 1, 9, 3, 7, 2, 8), set(1, 3, 8, 42), DefaultMaxDepth, Pad)
	require.NoError(t, err)
	require.Len(t, rows, DefaultMaxDepth)
	prevHits, prevRecall := 0.0, 0.0
	for _, r := range rows {
		hits := r.Precision * float64(r.Depth)
		assert.GreaterOrEqual(t, hits+1e-9, prevHits)
		assert.GreaterOrEqual(t, r.Recall+1e-12, prevRecall)
		assert.GreaterOrEqual(t, r.Precision, 0.0)
		assert.LessOrEqual(t, r.Precision, 1.0)
		assert.GreaterOrEqual(t, r.Recall, 0.0)
		assert.LessOrEqual(t, r.Recall, 1.0)
		prevHits, prevRecall = hits, r.Recall
	}
	assert.InDelta(t, 0.75, rows[DefaultMaxDepth-1].Recall, 1e-12)
}

func TestEvaluatePadsShortRanking(t *testing.T) {
	rows, err := Evaluate(ranked(1), set(1), 4, Pad)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.InDelta(t, 0.25, rows[3].Precision, 1e-12)
	assert.InDelta(t, 1.0, rows[3].Recall, 1e-12)
	assert.Equal(t, 1, rows[3].Retrieved)
}

func TestEvaluateStrictRejectsShortRanking(t *testing.T) {
	_, err := Evaluate(ranked(1, 2), set(1), 3, Strict)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDepthExceedsResults))

	rows, err := Evaluate(ranked(1, 2, 3), set(1), 3, Strict)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestEvaluateUndefinedRecall(t *testing.T) {
	rows, err := Evaluate(ranked(1, 2), set(), 2, Pad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUndefinedRecall))
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.False(t, r.RecallDefined)
		assert.Equal(t, 0.0, r.Precision)
		assert.Equal(t, 0.0, r.Recall)
	}
}

func TestEvaluateEmptyRanking(t *testing.T) {
	rows, err := Evaluate(nil, set(3), 2, Pad)
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, 0.0, r.Precision)
		assert.Equal(t, 0.0, r.Recall)
	}
}

func TestEvaluateInvalidDepth(t *testing.T) {
	_, err := Evaluate(ranked(1), set(1), 0, Pad)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfig))
}

func TestParseShortRanking(t *testing.T) {
	p, ok := ParseShortRanking("strict")
	assert.True(t, ok)
	assert.Equal(t, Strict, p)
	_, ok = ParseShortRanking("truncate")
	assert.False(t, ok)
}
