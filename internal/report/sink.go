// Package report writes evaluation reports: human-readable tables, rows in
// PostgreSQL and events on Kafka.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/harness"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/resilience"
)

// Sink consumes a finished report.
type Sink interface {
	Name() string
	Write(ctx context.Context, rep *harness.Report) error
}

type retrying struct {
	sink    Sink
	cfg     resilience.RetryConfig
	timeout time.Duration
}

// WithRetry retries failed writes of sink with exponential backoff, bounding
// each attempt by timeout.
func WithRetry(sink Sink, cfg resilience.RetryConfig, timeout time.Duration) Sink {
	return &retrying{sink: sink, cfg: cfg, timeout: timeout}
}

func (r *retrying) Name() string { return r.sink.Name() }

func (r *retrying) Write(ctx context.Context, rep *harness.Report) error {
	return resilience.Retry(ctx, r.sink.Name(), r.cfg, func(ctx context.Context) error {
		return resilience.WithTimeout(ctx, r.timeout, r.sink.Name(), func(ctx context.Context) error {
			return r.sink.Write(ctx, rep)
		})
	})
}

// WriteAll writes rep to every sink. A failing sink does not stop the others;
// the returned error joins all failures.
func WriteAll(ctx context.Context, rep *harness.Report, sinks ...Sink) error {
	logger := slog.Default().With("component", "report")
	var errs []error
	for _, s := range sinks {
		start := time.Now()
		if err := s.Write(ctx, rep); err != nil {
			logger.Error("report sink failed", "sink", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
			continue
		}
		logger.Info("report written", "sink", s.Name(), "duration", time.Since(start))
	}
	return errors.Join(errs...)
}
