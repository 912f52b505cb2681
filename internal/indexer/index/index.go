package index

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// BuildConfig selects the normalizer, the indexed field and the number of
// goroutines used to normalise documents.
type BuildConfig struct {
	Normalizer tokenizer.Normalizer
	Field      corpus.Field
	Workers    int
}

// Index is an immutable positional inverted index over one document field.
// It is safe for concurrent reads.
type Index struct {
	normalizer     tokenizer.Normalizer
	field          corpus.Field
	postings       map[string]PostingList
	collectionFreq map[string]int
	fieldLengths   map[int]int
	docCount       int
	totalTokens    int64
	fingerprint    string
}

type analyzedDoc struct {
	length int
	terms  map[string]*Posting
}

// Build indexes docs in order. Documents are normalised concurrently and
// merged sequentially, so postings come out identical for any worker count.
func Build(ctx context.Context, docs []corpus.Document, cfg BuildConfig) (*Index, error) {
	if cfg.Field == "" {
		cfg.Field = corpus.FieldBody
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	analyzed := make([]analyzedDoc, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			analyzed[i] = analyze(docs[i], cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("normalizing documents: %w", err)
	}

	idx := &Index{
		normalizer:     cfg.Normalizer,
		field:          cfg.Field,
		postings:       make(map[string]PostingList),
		collectionFreq: make(map[string]int),
		fieldLengths:   make(map[int]int, len(docs)),
	}
	hash := sha256.New()
	hash.Write([]byte(cfg.Normalizer.String() + "|" + string(cfg.Field)))
	ordered := true
	lastID := -1
	for i, doc := range docs {
		if _, dup := idx.fieldLengths[doc.ID]; dup {
			return nil, apperrors.Newf(apperrors.ErrCorpus, "duplicate document id %d", doc.ID)
		}
		if doc.ID < lastID {
			ordered = false
		}
		lastID = doc.ID
		a := analyzed[i]
		idx.fieldLengths[doc.ID] = a.length
		idx.totalTokens += int64(a.length)
		idx.docCount++
		for term, p := range a.terms {
			idx.postings[term] = append(idx.postings[term], *p)
			idx.collectionFreq[term] += p.Frequency
		}
		hash.Write([]byte("|" + strconv.Itoa(doc.ID) + ":" + doc.Text(cfg.Field)))
	}
	if !ordered {
		for _, pl := range idx.postings {
			sort.Slice(pl, func(i, j int) bool {
				return pl[i].DocID < pl[j].DocID
			})
		}
	}
	idx.fingerprint = fmt.Sprintf("%x", hash.Sum(nil)[:16])

	slog.Default().With("component", "indexer").Info("index built",
		"normalizer", cfg.Normalizer.String(),
		"field", cfg.Field,
		"docs", idx.docCount,
		"terms", len(idx.postings),
		"avg_field_length", idx.AverageFieldLength(),
	)
	return idx, nil
}

func analyze(doc corpus.Document, cfg BuildConfig) analyzedDoc {
	tokens := cfg.Normalizer.Tokenize(doc.Text(cfg.Field))
	terms := make(map[string]*Posting)
	for _, token := range tokens {
		p, exists := terms[token.Term]
		if !exists {
			p = &Posting{
				DocID:     doc.ID,
				Positions: make([]int, 0, 4),
			}
			terms[token.Term] = p
		}
		p.Frequency++
		p.Positions = append(p.Positions, token.Position)
	}
	return analyzedDoc{length: len(tokens), terms: terms}
}

// Postings returns the posting list of term, ordered by DocID. The returned
// slice must not be modified.
func (idx *Index) Postings(term string) PostingList {
	return idx.postings[term]
}

// DocFrequency is the number of documents containing term.
func (idx *Index) DocFrequency(term string) int {
	return len(idx.postings[term])
}

// CollectionFrequency is the total number of occurrences of term.
func (idx *Index) CollectionFrequency(term string) int {
	return idx.collectionFreq[term]
}

// FieldLength is the normalised token count of docID's indexed field.
func (idx *Index) FieldLength(docID int) int {
	return idx.fieldLengths[docID]
}

func (idx *Index) DocumentCount() int {
	return idx.docCount
}

func (idx *Index) AverageFieldLength() float64 {
	if idx.docCount == 0 {
		return 0
	}
	return float64(idx.totalTokens) / float64(idx.docCount)
}

// Normalizer returns the normalizer that built the index. Queries against
// the index must be normalised with it.
func (idx *Index) Normalizer() tokenizer.Normalizer {
	return idx.normalizer
}

func (idx *Index) Field() corpus.Field {
	return idx.field
}

// Fingerprint identifies the indexed content and normalizer.
func (idx *Index) Fingerprint() string {
	return idx.fingerprint
}

func (idx *Index) Terms() int {
	return len(idx.postings)
}

// Snapshot returns every term with its postings, sorted by term.
func (idx *Index) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(idx.postings))
	for term, postings := range idx.postings {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}
