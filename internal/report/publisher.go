package report

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/harness"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/kafka"
)

type EventType string

const (
	EventEvaluated EventType = "evaluated"
	EventSkipped   EventType = "skipped"
)

// EvaluationEvent is published once per query and combination.
type EvaluationEvent struct {
	Type       EventType        `json:"type"`
	RunID      string           `json:"run_id"`
	Query      string           `json:"query"`
	Normalizer string           `json:"normalizer"`
	Mode       string           `json:"mode,omitempty"`
	Model      string           `json:"model,omitempty"`
	Relevant   int              `json:"relevant"`
	Returned   int              `json:"returned"`
	TopDocs    []int            `json:"top_docs,omitempty"`
	Rows       []evaluation.Row `json:"rows,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// BatchPublisher is implemented by kafka.Producer.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Publisher emits every result and skip of a report as Kafka events keyed by
// query, so all events of a query land on one partition.
type Publisher struct {
	producer BatchPublisher
}

var _ BatchPublisher = (*kafka.Producer)(nil)

func NewPublisher(p BatchPublisher) *Publisher {
	return &Publisher{producer: p}
}

func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) Write(ctx context.Context, rep *harness.Report) error {
	events := Events(rep)
	if len(events) == 0 {
		return nil
	}
	if err := p.producer.PublishBatch(ctx, events); err != nil {
		return fmt.Errorf("publishing %d evaluation events: %w", len(events), err)
	}
	return nil
}

// Events converts rep into Kafka events in report order.
func Events(rep *harness.Report) []kafka.Event {
	ts := rep.FinishedAt
	events := make([]kafka.Event, 0, len(rep.Results)+len(rep.Skipped))
	for _, r := range rep.Results {
		events = append(events, kafka.Event{
			Key: r.Query,
			Value: EvaluationEvent{
				Type:       EventEvaluated,
				RunID:      rep.RunID,
				Query:      r.Query,
				Normalizer: r.Normalizer,
				Mode:       r.Mode,
				Model:      r.Model,
				Relevant:   r.Relevant,
				Returned:   r.Returned,
				TopDocs:    r.TopDocs,
				Rows:       r.Rows,
				Timestamp:  ts,
			},
		})
	}
	for _, s := range rep.Skipped {
		events = append(events, kafka.Event{
			Key: s.Query,
			Value: EvaluationEvent{
				Type:       EventSkipped,
				RunID:      rep.RunID,
				Query:      s.Query,
				Normalizer: s.Normalizer,
				Mode:       s.Mode,
				Model:      s.Model,
				Reason:     s.Kind,
				Timestamp:  ts,
			},
		})
	}
	return events
}
