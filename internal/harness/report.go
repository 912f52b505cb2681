package harness

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/evaluation"
)

// Combination names one cell of the evaluated matrix.
type Combination struct {
	Normalizer string `json:"normalizer"`
	Mode       string `json:"mode"`
	Model      string `json:"model"`
}

// QueryResult is the evaluation of one query under one combination.
type QueryResult struct {
	Query string `json:"query"`
	Combination
	Relevant      int              `json:"relevant"`
	Returned      int              `json:"returned"`
	TopDocs       []int            `json:"top_docs"`
	Rows          []evaluation.Row `json:"rows"`
	RecallDefined bool             `json:"recall_defined"`
	CacheHit      bool             `json:"cache_hit"`
}

// Skip records a query that produced no rows for a combination, or for every
// combination of a normalizer when Mode and Model are empty.
type Skip struct {
	Query string `json:"query"`
	Combination
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// DepthSummary averages one depth over the queries of a combination. Recall
// is averaged only over queries whose recall is defined.
type DepthSummary struct {
	Depth         int     `json:"depth"`
	MeanPrecision float64 `json:"mean_precision"`
	MeanRecall    float64 `json:"mean_recall"`
}

type Summary struct {
	Combination
	Queries       int            `json:"queries"`
	RecallQueries int            `json:"recall_queries"`
	Depths        []DepthSummary `json:"depths"`
}

// IndexStats describes one built index.
type IndexStats struct {
	Normalizer    string  `json:"normalizer"`
	Documents     int     `json:"documents"`
	Terms         int     `json:"terms"`
	AverageLength float64 `json:"average_length"`
	Fingerprint   string  `json:"fingerprint"`
	BuildMillis   int64   `json:"build_ms"`
}

// Report is the full outcome of a run. Results are ordered by query, then by
// the configured order of normalizers, modes and models.
type Report struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Field      string        `json:"field"`
	Slop       int           `json:"slop"`
	MaxDepth   int           `json:"max_depth"`
	Documents  int           `json:"documents"`
	Queries    []string      `json:"queries"`
	Indexes    []IndexStats  `json:"indexes"`
	Results    []QueryResult `json:"results"`
	Skipped    []Skip        `json:"skipped"`
	Summaries  []Summary     `json:"summaries"`
}

// summarize averages the rows of every combination in first-seen order.
func summarize(results []QueryResult, maxDepth int) []Summary {
	type acc struct {
		summary   Summary
		precision []float64
		recall    []float64
	}
	order := make([]Combination, 0)
	accs := make(map[Combination]*acc)
	for _, r := range results {
		a, ok := accs[r.Combination]
		if !ok {
			a = &acc{
				summary:   Summary{Combination: r.Combination},
				precision: make([]float64, maxDepth),
				recall:    make([]float64, maxDepth),
			}
			accs[r.Combination] = a
			order = append(order, r.Combination)
		}
		a.summary.Queries++
		if r.RecallDefined {
			a.summary.RecallQueries++
		}
		for _, row := range r.Rows {
			if row.Depth < 1 || row.Depth > maxDepth {
				continue
			}
			a.precision[row.Depth-1] += row.Precision
			if row.RecallDefined {
				a.recall[row.Depth-1] += row.Recall
			}
		}
	}
	summaries := make([]Summary, 0, len(order))
	for _, c := range order {
		a := accs[c]
		for d := 0; d < maxDepth; d++ {
			ds := DepthSummary{Depth: d + 1}
			if a.summary.Queries > 0 {
				ds.MeanPrecision = a.precision[d] / float64(a.summary.Queries)
			}
			if a.summary.RecallQueries > 0 {
				ds.MeanRecall = a.recall[d] / float64(a.summary.RecallQueries)
			}
			a.summary.Depths = append(a.summary.Depths, ds)
		}
		summaries = append(summaries, a.summary)
	}
	return summaries
}
