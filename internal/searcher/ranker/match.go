package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/parser"
)

// Search returns every document of idx that satisfies plan, ranked under
// model.
//
// Only candidate postings are scored; idf always uses the collection document
// frequency.
//
// plan must have been built with idx.Normalizer(); mixing normalizers is
// not detected and yields meaningless rankings.
func Search(plan *parser.QueryPlan, idx *index.Index, model Model) []ScoredDoc {
	terms := plan.UniqueTerms()
	candidates := Match(plan, idx)
	filtered := make(map[string]index.PostingList, len(terms))
	for _, term := range terms {
		postings := idx.Postings(term)
		kept := make(index.PostingList, 0, len(postings))
		for _, p := range postings {
			if _, ok := candidates[p.DocID]; ok {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			filtered[term] = kept
		}
	}
	params := RankParams{
		Model:        model,
		TotalDocs:    int64(idx.DocumentCount()),
		AvgDocLength: idx.AverageFieldLength(),
		DocFreq:      idx.DocFrequency,
	}
	getDocInfo := func(docID int) DocInfo {
		return DocInfo{DocLength: idx.FieldLength(docID)}
	}
	return Rank(terms, filtered, params, getDocInfo, 0)
}

// Match returns the candidate set of plan: the union of the term postings
// for a disjunction, and the documents containing a sloppy occurrence of the
// phrase for a phrase plan.
func Match(plan *parser.QueryPlan, idx *index.Index) map[int]struct{} {
	if plan.Mode == parser.ModePhrase {
		return matchPhrase(plan.Terms, plan.Slop, idx)
	}
	return matchAny(plan.Terms, idx)
}

func matchAny(terms []string, idx *index.Index) map[int]struct{} {
	result := make(map[int]struct{})
	for _, term := range terms {
		for _, p := range idx.Postings(term) {
			result[p.DocID] = struct{}{}
		}
	}
	return result
}

// matchPhrase keeps a document when some position p of the first term
// anchors the phrase: for each later term at phrase offset i there is an
// occurrence within [p+i-slop, p+i+slop].
func matchPhrase(terms []string, slop int, idx *index.Index) map[int]struct{} {
	result := make(map[int]struct{})
	if len(terms) == 0 {
		return result
	}
	lists := make([]index.PostingList, len(terms))
	for i, term := range terms {
		lists[i] = idx.Postings(term)
		if len(lists[i]) == 0 {
			return result
		}
	}
	positions := make([][]int, len(terms))
	for _, anchor := range lists[0] {
		positions[0] = anchor.Positions
		present := true
		for i := 1; i < len(terms); i++ {
			p, ok := findPosting(lists[i], anchor.DocID)
			if !ok {
				present = false
				break
			}
			positions[i] = p.Positions
		}
		if present && phraseOccurs(positions, slop) {
			result[anchor.DocID] = struct{}{}
		}
	}
	return result
}

func findPosting(list index.PostingList, docID int) (index.Posting, bool) {
	i := sort.Search(len(list), func(i int) bool {
		return list[i].DocID >= docID
	})
	if i < len(list) && list[i].DocID == docID {
		return list[i], true
	}
	return index.Posting{}, false
}

func phraseOccurs(positions [][]int, slop int) bool {
	for _, p := range positions[0] {
		ok := true
		for i := 1; i < len(positions); i++ {
			if !withinWindow(positions[i], p+i-slop, p+i+slop) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// withinWindow reports whether sorted contains a value in [lo, hi].
func withinWindow(sorted []int, lo, hi int) bool {
	j := sort.SearchInts(sorted, lo)
	return j < len(sorted) && sorted[j] <= hi
}
