package corpus

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/errors"
)

// Source yields the ordered document collection.
type Source interface {
	Load(ctx context.Context) ([]Document, error)
}

// SliceSource serves documents held in memory. IDs are reassigned to the
// slice ordinal on every Load.
type SliceSource []Document

func (s SliceSource) Load(ctx context.Context) ([]Document, error) {
	docs := make([]Document, len(s))
	copy(docs, s)
	for i := range docs {
		docs[i].ID = i
	}
	return docs, nil
}

// XMLSource reads the course collection format:
//
//	<item>
//	  <title>...</title>
//	  <abstract>...</abstract>
//	  <search_task_number>13</search_task_number>
//	  <query>...</query>
//	  <relevance>1</relevance>
//	</item>
//
// Items may sit under any root element. When SearchTask is non-zero only
// items of that task are kept.
type XMLSource struct {
	Path       string
	SearchTask int
	logger     *slog.Logger
}

func NewXMLSource(path string, searchTask int) *XMLSource {
	return &XMLSource{
		Path:       path,
		SearchTask: searchTask,
		logger:     slog.Default().With("component", "corpus"),
	}
}

type xmlItem struct {
	Title      string `xml:"title"`
	Abstract   string `xml:"abstract"`
	SearchTask string `xml:"search_task_number"`
	Query      string `xml:"query"`
	Relevance  string `xml:"relevance"`
}

func (s *XMLSource) Load(ctx context.Context) ([]Document, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpus, "opening %s: %v", s.Path, err)
	}
	defer f.Close()
	s.logger.Info("loading documents", "path", s.Path, "search_task", s.SearchTask)
	docs, err := Decode(ctx, f, s.SearchTask)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.Path, err)
	}
	s.logger.Info("documents loaded", "count", len(docs))
	return docs, nil
}

// Decode streams items from r, keeping those of searchTask (all when 0), and
// numbers the kept documents from 0.
func Decode(ctx context.Context, r io.Reader, searchTask int) ([]Document, error) {
	dec := xml.NewDecoder(r)
	docs := make([]Document, 0, 256)
	logger := slog.Default().With("component", "corpus")
	ordinal := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorpus, "reading token: %v", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "item" {
			continue
		}
		var item xmlItem
		if err := dec.DecodeElement(&item, &start); err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorpus, "decoding item %d: %v", len(docs), err)
		}
		ordinal++
		task, err := strconv.Atoi(strings.TrimSpace(item.SearchTask))
		if err != nil {
			logger.Warn("unparseable search task number, treating as 0",
				"item", ordinal,
				"value", item.SearchTask,
				"query", strings.TrimSpace(item.Query),
			)
			task = 0
		}
		if searchTask != 0 && task != searchTask {
			continue
		}
		docs = append(docs, Document{
			ID:         len(docs),
			Title:      strings.TrimSpace(item.Title),
			Body:       strings.TrimSpace(item.Abstract),
			Query:      strings.TrimSpace(item.Query),
			Relevant:   parseRelevance(item.Relevance),
			SearchTask: task,
		})
	}
	return docs, nil
}

func parseRelevance(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
