package report

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/harness"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// TableWriter renders one precision/recall table per query and combination,
// followed by the mean over queries of every combination.
type TableWriter struct {
	w io.Writer
}

func NewTableWriter(w io.Writer) *TableWriter {
	return &TableWriter{w: w}
}

func (t *TableWriter) Name() string { return "table" }

func (t *TableWriter) Write(_ context.Context, rep *harness.Report) error {
	fmt.Fprintln(t.w, titleStyle.Render(fmt.Sprintf("Run %s: %d documents, %d queries, field %s, slop %d",
		rep.RunID, rep.Documents, len(rep.Queries), rep.Field, rep.Slop)))
	for _, r := range rep.Results {
		fmt.Fprintln(t.w)
		fmt.Fprintln(t.w, titleStyle.Render(fmt.Sprintf("%q  %s / %s / %s", r.Query, r.Normalizer, r.Mode, r.Model)))
		fmt.Fprintln(t.w, mutedStyle.Render(fmt.Sprintf("relevant %d, returned %d", r.Relevant, r.Returned)))
		fmt.Fprintln(t.w, rowsTable(r.Rows))
	}
	if len(rep.Summaries) > 0 {
		fmt.Fprintln(t.w)
		fmt.Fprintln(t.w, titleStyle.Render(fmt.Sprintf("Mean at depth %d", rep.MaxDepth)))
		fmt.Fprintln(t.w, summaryTable(rep.Summaries))
	}
	for _, s := range rep.Skipped {
		fmt.Fprintln(t.w, mutedStyle.Render(fmt.Sprintf("skipped %q (%s): %s", s.Query, s.Normalizer, s.Kind)))
	}
	return nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func rowsTable(rows []evaluation.Row) string {
	tbl := newTable("Depth", "Precision", "Recall")
	for _, row := range rows {
		tbl.Row(strconv.Itoa(row.Depth), formatScore(row.Precision), formatRecall(row))
	}
	return tbl.String()
}

func summaryTable(summaries []harness.Summary) string {
	tbl := newTable("Normalizer", "Mode", "Model", "Queries", "Precision", "Recall")
	for _, s := range summaries {
		var last harness.DepthSummary
		if len(s.Depths) > 0 {
			last = s.Depths[len(s.Depths)-1]
		}
		recall := "n/a"
		if s.RecallQueries > 0 {
			recall = formatScore(last.MeanRecall)
		}
		tbl.Row(s.Normalizer, s.Mode, s.Model, strconv.Itoa(s.Queries), formatScore(last.MeanPrecision), recall)
	}
	return tbl.String()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatRecall(row evaluation.Row) string {
	if !row.RecallDefined {
		return "n/a"
	}
	return formatScore(row.Recall)
}
