package index

// Posting records one term's occurrences in one document. Positions are
// strictly increasing offsets into the document's normalised token stream
// and len(Positions) == Frequency.
type Posting struct {
	DocID     int   `json:"doc_id"`
	Frequency int   `json:"tf"`
	Positions []int `json:"positions"`
}

// PostingList is ordered by ascending DocID.
type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}
