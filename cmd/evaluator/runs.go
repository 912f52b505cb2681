package main

import (
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/report"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/postgres"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored evaluation runs (requires postgres)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := postgres.New(cmd.Context(), cfg.Postgres)
		if err != nil {
			return err
		}
		defer client.Close()
		runs, err := report.NewStore(client).ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stdout, "no runs stored")
			return nil
		}
		tbl := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Run", "Started", "Docs", "Queries", "Best precision@max")
		for _, r := range runs {
			tbl.Row(r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"),
				fmt.Sprint(r.Documents), fmt.Sprint(r.Queries), bestCombination(r))
		}
		fmt.Fprintln(os.Stdout, tbl.String())
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "number of runs to list")
}

func bestCombination(r report.RunSummary) string {
	best, bestP := "", -1.0
	for _, s := range r.Summaries {
		if len(s.Depths) == 0 {
			continue
		}
		p := s.Depths[len(s.Depths)-1].MeanPrecision
		if p > bestP {
			best = fmt.Sprintf("%s/%s/%s %.4f", s.Normalizer, s.Mode, s.Model, p)
			bestP = p
		}
	}
	if best == "" {
		return "n/a"
	}
	return best
}
