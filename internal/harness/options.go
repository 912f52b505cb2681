package harness

import (
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/errors"
)

// Options is the evaluated matrix: every query is run for each normalizer,
// mode and model, in the order given.
type Options struct {
	Field         corpus.Field
	Normalizers   []tokenizer.Normalizer
	Modes         []parser.Mode
	Models        []ranker.Model
	Slop          int
	MaxDepth      int
	ShortRanking  evaluation.ShortRanking
	IndexWorkers  int
	SearchWorkers int
}

// DefaultOptions is the reference evaluation.
func DefaultOptions() Options {
	return Options{
		Field:         corpus.FieldBody,
		Normalizers:   []tokenizer.Normalizer{tokenizer.Plain, tokenizer.Stemmed},
		Modes:         []parser.Mode{parser.ModePhrase, parser.ModeDisjunction},
		Models:        []ranker.Model{ranker.ModelBM25, ranker.ModelTFIDF},
		Slop:          parser.DefaultSlop,
		MaxDepth:      evaluation.DefaultMaxDepth,
		ShortRanking:  evaluation.Pad,
		IndexWorkers:  4,
		SearchWorkers: 4,
	}
}

// OptionsFromConfig maps a validated configuration onto Options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := Options{
		Field:         corpus.Field(cfg.Indexer.Field),
		Slop:          cfg.Search.Slop,
		MaxDepth:      cfg.Evaluation.MaxDepth,
		IndexWorkers:  cfg.Indexer.Workers,
		SearchWorkers: cfg.Search.Workers,
	}
	for _, name := range cfg.Indexer.Normalizers {
		n, ok := tokenizer.Parse(name)
		if !ok {
			return Options{}, apperrors.Newf(apperrors.ErrInvalidConfig, "unknown normalizer %q", name)
		}
		opts.Normalizers = append(opts.Normalizers, n)
	}
	for _, name := range cfg.Search.Modes {
		m, ok := parser.ParseMode(name)
		if !ok {
			return Options{}, apperrors.Newf(apperrors.ErrInvalidConfig, "unknown mode %q", name)
		}
		opts.Modes = append(opts.Modes, m)
	}
	for _, name := range cfg.Search.Models {
		m, ok := ranker.ParseModel(name)
		if !ok {
			return Options{}, apperrors.Newf(apperrors.ErrInvalidConfig, "unknown model %q", name)
		}
		opts.Models = append(opts.Models, m)
	}
	policy, ok := evaluation.ParseShortRanking(cfg.Evaluation.ShortRanking)
	if !ok {
		return Options{}, apperrors.Newf(apperrors.ErrInvalidConfig, "unknown short ranking policy %q", cfg.Evaluation.ShortRanking)
	}
	opts.ShortRanking = policy
	return opts, nil
}
