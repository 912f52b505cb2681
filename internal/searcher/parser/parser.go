package parser

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/errors"
)

// DefaultSlop is the positional tolerance of phrase queries.
const DefaultSlop = 15

type Mode int

const (
	// ModePhrase keeps term order and matches within Slop positions.
	ModePhrase Mode = iota
	// ModeDisjunction matches any of the terms.
	ModeDisjunction
)

func (m Mode) String() string {
	switch m {
	case ModePhrase:
		return "phrase"
	case ModeDisjunction:
		return "disjunction"
	}
	return "unknown"
}

// ParseMode maps a configuration name to a Mode.
func ParseMode(name string) (Mode, bool) {
	switch name {
	case "phrase":
		return ModePhrase, true
	case "disjunction":
		return ModeDisjunction, true
	}
	return 0, false
}

// QueryPlan is the normalised form of a raw query. For ModePhrase, Terms is
// the ordered normalised sequence and Slop applies. For ModeDisjunction,
// Terms is the deduplicated term set in ascending order and Slop is zero.
type QueryPlan struct {
	Mode       Mode
	Terms      []string
	Slop       int
	Normalizer tokenizer.Normalizer
	RawQuery   string
}

// Plan normalises query with n and builds a plan for mode. It fails with
// ErrEmptyQuery when normalisation yields no terms.
func Plan(query string, n tokenizer.Normalizer, mode Mode, slop int) (*QueryPlan, error) {
	terms := n.Normalize(query)
	if len(terms) == 0 {
		return nil, apperrors.Newf(apperrors.ErrEmptyQuery, "query %q", query)
	}
	plan := &QueryPlan{
		Mode:       mode,
		Normalizer: n,
		RawQuery:   query,
	}
	switch mode {
	case ModePhrase:
		if slop < 0 {
			slop = 0
		}
		plan.Terms = terms
		plan.Slop = slop
	default:
		plan.Mode = ModeDisjunction
		plan.Terms = dedupe(terms)
	}
	return plan, nil
}

// UniqueTerms returns the distinct terms of the plan in ascending order.
func (p *QueryPlan) UniqueTerms() []string {
	return dedupe(p.Terms)
}

func dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	unique := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}
	sort.Strings(unique)
	return unique
}
