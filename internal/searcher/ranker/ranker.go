package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/indexer/index"
)

const (
	k1 = 1.2
	b  = 0.75
)

type Model int

const (
	ModelBM25 Model = iota
	ModelTFIDF
)

func (m Model) String() string {
	switch m {
	case ModelBM25:
		return "bm25"
	case ModelTFIDF:
		return "tfidf"
	}
	return "unknown"
}

// ParseModel maps a configuration name to a Model.
func ParseModel(name string) (Model, bool) {
	switch name {
	case "bm25":
		return ModelBM25, true
	case "tfidf":
		return ModelTFIDF, true
	}
	return 0, false
}

type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

type RankParams struct {
	Model        Model
	TotalDocs    int64
	AvgDocLength float64
	// DocFreq returns the collection document frequency of a term. When nil
	// the length of the term's posting list is used, which is only correct
	// when the postings are unfiltered.
	DocFreq func(term string) int
}

type DocInfo struct {
	DocLength int
}

// Rank scores every posting in postingsPerTerm and returns the documents
// sorted by descending score, ties by ascending DocID. Terms are visited in
// the given order so that floating-point sums are reproducible. A limit <= 0
// returns all documents.
func Rank(
	terms []string,
	postingsPerTerm map[string]index.PostingList,
	params RankParams,
	getDocInfo func(docID int) DocInfo,
	limit int,
) []ScoredDoc {
	scores := make(map[int]float64)
	for _, term := range terms {
		postings, ok := postingsPerTerm[term]
		if !ok {
			continue
		}
		docFreq := int64(len(postings))
		if params.DocFreq != nil {
			docFreq = int64(params.DocFreq(term))
		}
		switch params.Model {
		case ModelTFIDF:
			idf := computeTFIDFWeight(params.TotalDocs, docFreq)
			for _, posting := range postings {
				scores[posting.DocID] += float64(posting.Frequency) * idf
			}
		default:
			idf := computeIDF(params.TotalDocs, docFreq)
			for _, posting := range postings {
				info := getDocInfo(posting.DocID)
				tfNorm := computeTFNorm(
					float64(posting.Frequency),
					float64(info.DocLength),
					params.AvgDocLength,
				)
				scores[posting.DocID] += idf * tfNorm
			}
		}
	}
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{
			DocID: docID,
			Score: score,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// computeIDF is the BM25 idf: ln(1 + (N - df + 0.5) / (df + 0.5)).
func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}

// computeTFIDFWeight is the classic idf: ln(1 + N / df).
func computeTFIDFWeight(totalDocs int64, docFreq int64) float64 {
	if docFreq == 0 {
		return 0
	}
	return math.Log(1 + float64(totalDocs)/float64(docFreq))
}
