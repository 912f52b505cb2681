package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/harness"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/resilience"
	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluation_runs (
    run_id      TEXT PRIMARY KEY,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    field       TEXT NOT NULL,
    slop        INT NOT NULL,
    max_depth   INT NOT NULL,
    documents   INT NOT NULL,
    queries     INT NOT NULL,
    summaries   JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS evaluation_rows (
    id         BIGSERIAL PRIMARY KEY,
    run_id     TEXT NOT NULL REFERENCES evaluation_runs(run_id) ON DELETE CASCADE,
    query      TEXT NOT NULL,
    normalizer TEXT NOT NULL,
    mode       TEXT NOT NULL,
    model      TEXT NOT NULL,
    depth      INT NOT NULL,
    precision  DOUBLE PRECISION NOT NULL,
    recall     DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS evaluation_rows_run_idx ON evaluation_rows (run_id);
`

var rowColumns = []string{"run_id", "query", "normalizer", "mode", "model", "depth", "precision", "recall"}

// RunSummary is the stored header of one run.
type RunSummary struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Field      string            `json:"field"`
	Slop       int               `json:"slop"`
	MaxDepth   int               `json:"max_depth"`
	Documents  int               `json:"documents"`
	Queries    int               `json:"queries"`
	Summaries  []harness.Summary `json:"summaries"`
}

// Store persists reports in PostgreSQL: one evaluation_runs row per run and
// one evaluation_rows row per (query, combination, depth). Undefined recall
// is stored as NULL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "report-store"),
	}
}

func (s *Store) Name() string { return "postgres" }

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating evaluation schema: %w", err)
	}
	return nil
}

// Write stores rep in a single transaction. Writing the same run twice
// replaces the earlier copy.
func (s *Store) Write(ctx context.Context, rep *harness.Report) error {
	summaries, err := json.Marshal(rep.Summaries)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("marshaling summaries: %w", err))
	}
	rows := flattenRows(rep)
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM evaluation_runs WHERE run_id = $1`, rep.RunID); err != nil {
			return fmt.Errorf("deleting previous run: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO evaluation_runs
			    (run_id, started_at, finished_at, field, slop, max_depth, documents, queries, summaries)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			rep.RunID, rep.StartedAt, rep.FinishedAt, rep.Field, rep.Slop, rep.MaxDepth,
			rep.Documents, len(rep.Queries), summaries,
		)
		if err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("evaluation_rows", rowColumns...))
		if err != nil {
			return fmt.Errorf("preparing copy: %w", err)
		}
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.values()...); err != nil {
				stmt.Close()
				return fmt.Errorf("copying row: %w", err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing copy: %w", err)
		}
		return stmt.Close()
	})
	if err != nil {
		return err
	}
	s.logger.Info("evaluation stored", "run_id", rep.RunID, "rows", len(rows))
	return nil
}

// LatestRun returns the most recently started run, or nil, nil when none
// is stored.
func (s *Store) LatestRun(ctx context.Context) (*RunSummary, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT run_id, started_at, finished_at, field, slop, max_depth, documents, queries, summaries
		 FROM evaluation_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		var summaries []byte
		if err := rows.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &run.Field, &run.Slop,
			&run.MaxDepth, &run.Documents, &run.Queries, &summaries); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if err := json.Unmarshal(summaries, &run.Summaries); err != nil {
			s.logger.Warn("skipping corrupt run summary", "run_id", run.RunID, "error", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type storedRow struct {
	runID      string
	query      string
	normalizer string
	mode       string
	model      string
	depth      int
	precision  float64
	recall     sql.NullFloat64
}

func (r storedRow) values() []any {
	return []any{r.runID, r.query, r.normalizer, r.mode, r.model, r.depth, r.precision, r.recall}
}

func flattenRows(rep *harness.Report) []storedRow {
	var out []storedRow
	for _, res := range rep.Results {
		for _, row := range res.Rows {
			out = append(out, storedRow{
				runID:      rep.RunID,
				query:      res.Query,
				normalizer: res.Normalizer,
				mode:       res.Mode,
				model:      res.Model,
				depth:      row.Depth,
				precision:  row.Precision,
				recall:     sql.NullFloat64{Float64: row.Recall, Valid: row.RecallDefined},
			})
		}
	}
	return out
}
