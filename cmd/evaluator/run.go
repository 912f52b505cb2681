package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/harness"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/report"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/resilience"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	corpusPath string
	searchTask int
	noTable    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Index the corpus and evaluate every distinct query",
	Long: `Load the labelled corpus, build one index per normalizer and evaluate
precision and recall at depths 1..maxDepth for every query, mode and model.

Examples:
  # Reference evaluation with defaults
  evaluator run --corpus corpus_part2.xml

  # Evaluate another comparison scenario, store results in postgres
  evaluator run --config configs/evaluator.yaml --task 7`,
	Args: cobra.NoArgs,
	RunE: runEvaluation,
}

func init() {
	runCmd.Flags().StringVar(&corpusPath, "corpus", "", "corpus XML file (overrides corpus.path)")
	runCmd.Flags().IntVar(&searchTask, "task", -1, "comparison scenario to keep, 0 for all (overrides corpus.searchTask)")
	runCmd.Flags().BoolVar(&noTable, "no-table", false, "do not print result tables")
}

// deps holds the optional network dependencies of a run.
type deps struct {
	redis    *pkgredis.Client
	postgres *postgres.Client
	kafka    *kafka.Producer
}

func (d *deps) Close() {
	if d.redis != nil {
		d.redis.Close()
	}
	if d.postgres != nil {
		d.postgres.Close()
	}
	if d.kafka != nil {
		d.kafka.Close()
	}
}

func runEvaluation(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if corpusPath != "" {
		cfg.Corpus.Path = corpusPath
	}
	if searchTask >= 0 {
		cfg.Corpus.SearchTask = searchTask
	}
	runID := uuid.NewString()
	ctx := logger.WithRunID(cmd.Context(), runID)
	log := logger.FromContext(ctx)
	log.Info("starting evaluation", "corpus", cfg.Corpus.Path, "search_task", cfg.Corpus.SearchTask)

	opts, err := harness.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	d := connect(ctx, cfg)
	defer d.Close()
	preflight(ctx, d)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	var queryCache *cache.QueryCache
	if d.redis != nil {
		queryCache = cache.New(d.redis, cfg.Redis.CacheTTL, m)
		log.Info("ranking cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	docs, err := corpus.NewXMLSource(cfg.Corpus.Path, cfg.Corpus.SearchTask).Load(ctx)
	if err != nil {
		return err
	}

	rep, err := harness.New(opts, queryCache, m).Run(ctx, docs)
	if err != nil {
		return fmt.Errorf("running evaluation: %w", err)
	}

	sinks := buildSinks(ctx, cfg, d)
	sinkErr := report.WriteAll(ctx, rep, sinks...)

	if cfg.Metrics.Enabled {
		err := resilience.Retry(ctx, "metrics-push", retryConfig(cfg.Retry), func(ctx context.Context) error {
			return metrics.Push(ctx, cfg.Metrics.PushURL, cfg.Metrics.Job, runID, registry)
		})
		if err != nil {
			log.Error("metrics push failed", "error", err)
		}
	}
	if queryCache != nil {
		hits, misses := queryCache.Stats()
		log.Info("ranking cache", "hits", hits, "misses", misses)
	}
	return sinkErr
}

// connect opens every enabled network dependency. A dependency that cannot
// be reached is logged and left nil; the run continues without it.
func connect(ctx context.Context, cfg *config.Config) *deps {
	d := &deps{}
	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, ranking cache disabled", "error", err)
		} else {
			d.redis = client
		}
	}
	if cfg.Postgres.Enabled {
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, results will not be stored", "error", err)
		} else {
			d.postgres = client
		}
	}
	if cfg.Kafka.Enabled {
		d.kafka = kafka.NewProducer(cfg.Kafka)
	}
	return d
}

// preflight probes the connected dependencies and drops those that are down.
func preflight(ctx context.Context, d *deps) {
	checker := health.NewChecker()
	if d.redis != nil {
		checker.Register("redis", health.PingCheck(d.redis.Ping))
	}
	if d.postgres != nil {
		checker.Register("postgres", health.PingCheck(d.postgres.Ping))
	}
	if d.kafka != nil {
		checker.Register("kafka", health.PingCheck(d.kafka.Ping))
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rep := checker.Run(ctx)
	for _, name := range rep.Down() {
		slog.Warn("dependency down, disabling", "dependency", name, "error", rep.Components[name].Message)
		switch name {
		case "redis":
			d.redis.Close()
			d.redis = nil
		case "postgres":
			d.postgres.Close()
			d.postgres = nil
		case "kafka":
			d.kafka.Close()
			d.kafka = nil
		}
	}
}

func buildSinks(ctx context.Context, cfg *config.Config, d *deps) []report.Sink {
	var sinks []report.Sink
	if !noTable {
		sinks = append(sinks, report.NewTableWriter(os.Stdout))
	}
	rc := retryConfig(cfg.Retry)
	if d.postgres != nil {
		store := report.NewStore(d.postgres)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("postgres schema unavailable, results will not be stored", "error", err)
		} else {
			sinks = append(sinks, report.WithRetry(store, rc, cfg.Retry.AttemptTimeout))
		}
	}
	if d.kafka != nil {
		sinks = append(sinks, report.WithRetry(report.NewPublisher(d.kafka), rc, cfg.Retry.AttemptTimeout))
	}
	return sinks
}

func retryConfig(c config.RetryConfig) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.InitialDelay,
		MaxDelay:     c.MaxDelay,
	}
}
