// Package evaluation computes precision and recall of a ranked result list
// at every cutoff depth from 1 to a maximum.
package evaluation

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/errors"
)

// DefaultMaxDepth is the deepest cutoff of the reference evaluation.
const DefaultMaxDepth = 11

// ShortRanking decides what happens when the ranking holds fewer documents
// than the requested depth.
type ShortRanking int

const (
	// Pad counts missing ranks as retrieved non-relevant documents, so
	// precision keeps d as its denominator.
	Pad ShortRanking = iota
	// Strict rejects the evaluation with ErrDepthExceedsResults.
	Strict
)

// ParseShortRanking maps a configuration name ("pad", "strict").
func ParseShortRanking(name string) (ShortRanking, bool) {
	switch name {
	case "pad":
		return Pad, true
	case "strict":
		return Strict, true
	}
	return 0, false
}

// Row is precision and recall at one cutoff. RecallDefined is false when
// the query has no relevant documents; Recall is then 0 and must not be
// reported as a measurement.
type Row struct {
	Depth         int     `json:"depth"`
	Precision     float64 `json:"precision"`
	Recall        float64 `json:"recall"`
	RecallDefined bool    `json:"recall_defined"`
	Retrieved     int     `json:"retrieved"`
	RelevantSoFar int     `json:"relevant_so_far"`
}

// Evaluate returns one Row per depth 1..maxDepth. When relevant is empty the
// precision rows are still returned together with an error wrapping
// ErrUndefinedRecall.
func Evaluate(results []ranker.ScoredDoc, relevant map[int]struct{}, maxDepth int, policy ShortRanking) ([]Row, error) {
	if maxDepth < 1 {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "max depth %d", maxDepth)
	}
	if policy == Strict && maxDepth > len(results) {
		return nil, apperrors.Newf(apperrors.ErrDepthExceedsResults,
			"depth %d, %d results", maxDepth, len(results))
	}
	recallDefined := len(relevant) > 0
	rows := make([]Row, 0, maxDepth)
	hits := 0
	for d := 1; d <= maxDepth; d++ {
		if d <= len(results) {
			if _, ok := relevant[results[d-1].DocID]; ok {
				hits++
			}
		}
		row := Row{
			Depth:         d,
			Precision:     float64(hits) / float64(d),
			RecallDefined: recallDefined,
			Retrieved:     min(d, len(results)),
			RelevantSoFar: hits,
		}
		if recallDefined {
			row.Recall = float64(hits) / float64(len(relevant))
		}
		rows = append(rows, row)
	}
	if !recallDefined {
		return rows, fmt.Errorf("evaluating to depth %d: %w", maxDepth, apperrors.ErrUndefinedRecall)
	}
	return rows, nil
}
