package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 13, cfg.Corpus.SearchTask)
	assert.Equal(t, 15, cfg.Search.Slop)
	assert.Equal(t, 11, cfg.Evaluation.MaxDepth)
	assert.Equal(t, "pad", cfg.Evaluation.ShortRanking)
	assert.Equal(t, []string{"plain", "stemmed"}, cfg.Indexer.Normalizers)
	assert.Equal(t, []string{"phrase", "disjunction"}, cfg.Search.Modes)
	assert.Equal(t, []string{"bm25", "tfidf"}, cfg.Search.Models)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harness.yaml")
	yamlDoc := `
corpus:
  path: /data/corpus.xml
  searchTask: 7
search:
  slop: 3
  models: [bm25]
redis:
  enabled: true
  cacheTTL: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))
	t.Setenv("IRH_EVALUATION_MAX_DEPTH", "5")
	t.Setenv("IRH_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/corpus.xml", cfg.Corpus.Path)
	assert.Equal(t, 7, cfg.Corpus.SearchTask)
	assert.Equal(t, 3, cfg.Search.Slop)
	assert.Equal(t, []string{"bm25"}, cfg.Search.Models)
	assert.Equal(t, []string{"phrase", "disjunction"}, cfg.Search.Modes)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 5, cfg.Evaluation.MaxDepth)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative slop", func(c *Config) { c.Search.Slop = -1 }},
		{"zero depth", func(c *Config) { c.Evaluation.MaxDepth = 0 }},
		{"unknown model", func(c *Config) { c.Search.Models = []string{"lm"} }},
		{"unknown mode", func(c *Config) { c.Search.Modes = []string{"and"} }},
		{"unknown normalizer", func(c *Config) { c.Indexer.Normalizers = []string{"lemma"} }},
		{"unknown field", func(c *Config) { c.Indexer.Field = "url" }},
		{"unknown short ranking policy", func(c *Config) { c.Evaluation.ShortRanking = "clip" }},
		{"empty models", func(c *Config) { c.Search.Models = nil }},
		{"metrics without push url", func(c *Config) { c.Metrics.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidConfig))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
