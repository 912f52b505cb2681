// Package config loads and validates harness configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Corpus, Indexer, Search, Evaluation, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level harness configuration.
type Config struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	Search     SearchConfig     `yaml:"search"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Retry      RetryConfig      `yaml:"retry"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// CorpusConfig points at the labelled document collection.
type CorpusConfig struct {
	Path       string `yaml:"path"`
	SearchTask int    `yaml:"searchTask"`
}

// IndexerConfig controls which field is indexed, which normalizers build an
// index, and how many workers normalize documents.
type IndexerConfig struct {
	Field       string   `yaml:"field"`
	Normalizers []string `yaml:"normalizers"`
	Workers     int      `yaml:"workers"`
}

// SearchConfig controls query construction and the evaluated search matrix.
type SearchConfig struct {
	Slop    int      `yaml:"slop"`
	Modes   []string `yaml:"modes"`
	Models  []string `yaml:"models"`
	Workers int      `yaml:"workers"`
}

// EvaluationConfig controls the precision/recall sweep.
type EvaluationConfig struct {
	MaxDepth     int    `yaml:"maxDepth"`
	ShortRanking string `yaml:"shortRanking"`
}

// PostgresConfig holds PostgreSQL connection parameters for the result store.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings for evaluation events.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RedisConfig holds Redis connection and ranking-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// RetryConfig controls backoff for network report sinks. AttemptTimeout
// bounds each attempt.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"maxAttempts"`
	InitialDelay   time.Duration `yaml:"initialDelay"`
	MaxDelay       time.Duration `yaml:"maxDelay"`
	AttemptTimeout time.Duration `yaml:"attemptTimeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus Pushgateway export.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	PushURL string `yaml:"pushURL"`
	Job     string `yaml:"job"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration of the reference evaluation: comparison
// scenario 13, slop 15, depth 1..11, both normalizers, both modes, both models.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Path:       "corpus_part2.xml",
			SearchTask: 13,
		},
		Indexer: IndexerConfig{
			Field:       "body",
			Normalizers: []string{"plain", "stemmed"},
			Workers:     4,
		},
		Search: SearchConfig{
			Slop:    15,
			Modes:   []string{"phrase", "disjunction"},
			Models:  []string{"bm25", "tfidf"},
			Workers: 4,
		},
		Evaluation: EvaluationConfig{
			MaxDepth:     11,
			ShortRanking: "pad",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "relevance",
			User:            "relevance",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "relevance-evaluations",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 24 * time.Hour,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialDelay:   100 * time.Millisecond,
			MaxDelay:       5 * time.Second,
			AttemptTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Job: "relevance-harness",
		},
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Search.Slop < 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "search.slop must be >= 0, got %d", c.Search.Slop)
	}
	if c.Evaluation.MaxDepth < 1 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "evaluation.maxDepth must be >= 1, got %d", c.Evaluation.MaxDepth)
	}
	if err := oneOf("evaluation.shortRanking", []string{c.Evaluation.ShortRanking}, "pad", "strict"); err != nil {
		return err
	}
	if err := oneOf("indexer.field", []string{c.Indexer.Field}, "body", "title", "all"); err != nil {
		return err
	}
	if err := oneOf("indexer.normalizers", c.Indexer.Normalizers, "plain", "stemmed"); err != nil {
		return err
	}
	if err := oneOf("search.modes", c.Search.Modes, "phrase", "disjunction"); err != nil {
		return err
	}
	if err := oneOf("search.models", c.Search.Models, "bm25", "tfidf"); err != nil {
		return err
	}
	if len(c.Indexer.Normalizers) == 0 || len(c.Search.Modes) == 0 || len(c.Search.Models) == 0 {
		return apperrors.New(apperrors.ErrInvalidConfig, "normalizers, modes and models must not be empty")
	}
	if c.Indexer.Workers < 1 {
		c.Indexer.Workers = 1
	}
	if c.Search.Workers < 1 {
		c.Search.Workers = 1
	}
	if c.Metrics.Enabled && c.Metrics.PushURL == "" {
		return apperrors.New(apperrors.ErrInvalidConfig, "metrics.pushURL is required when metrics are enabled")
	}
	return nil
}

func oneOf(field string, values []string, allowed ...string) error {
	for _, v := range values {
		ok := false
		for _, a := range allowed {
			if v == a {
				ok = true
				break
			}
		}
		if !ok {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "%s: unknown value %q (allowed: %s)",
				field, v, strings.Join(allowed, ", "))
		}
	}
	return nil
}

// applyEnvOverrides reads IRH_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IRH_CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("IRH_CORPUS_SEARCH_TASK"); v != "" {
		if task, err := strconv.Atoi(v); err == nil {
			cfg.Corpus.SearchTask = task
		}
	}
	if v := os.Getenv("IRH_INDEXER_FIELD"); v != "" {
		cfg.Indexer.Field = v
	}
	if v := os.Getenv("IRH_SEARCH_SLOP"); v != "" {
		if slop, err := strconv.Atoi(v); err == nil {
			cfg.Search.Slop = slop
		}
	}
	if v := os.Getenv("IRH_EVALUATION_MAX_DEPTH"); v != "" {
		if depth, err := strconv.Atoi(v); err == nil {
			cfg.Evaluation.MaxDepth = depth
		}
	}
	if v := os.Getenv("IRH_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("IRH_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("IRH_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("IRH_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("IRH_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("IRH_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("IRH_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("IRH_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("IRH_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IRH_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("IRH_METRICS_PUSH_URL"); v != "" {
		cfg.Metrics.PushURL = v
	}
}
