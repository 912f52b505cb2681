package corpus

import "sort"

// DistinctQueries returns the deduplicated source queries of docs in
// lexicographic order. Blank queries are dropped.
func DistinctQueries(docs []Document) []string {
	seen := make(map[string]struct{})
	queries := make([]string, 0)
	for _, d := range docs {
		if d.Query == "" {
			continue
		}
		if _, ok := seen[d.Query]; ok {
			continue
		}
		seen[d.Query] = struct{}{}
		queries = append(queries, d.Query)
	}
	sort.Strings(queries)
	return queries
}

// RelevantIDs returns the ids of documents labelled relevant to query.
func RelevantIDs(docs []Document, query string) map[int]struct{} {
	ids := make(map[int]struct{})
	for _, d := range docs {
		if d.Relevant && d.Query == query {
			ids[d.ID] = struct{}{}
		}
	}
	return ids
}
