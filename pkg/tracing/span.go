// Package tracing times the phases of an evaluation run. Spans nest through
// the context and the finished tree is written to slog.
package tracing

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type contextKey struct{}

// Span is one timed phase. Children are attached by StartSpan when the
// parent is found in the context.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration
	mu       sync.Mutex
	children []*Span
	attrs    map[string]any
}

// StartSpan starts a span under the span in ctx, or a root span carrying
// traceID when ctx has none.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	span := &Span{
		Name:    name,
		TraceID: traceID,
		Start:   time.Now(),
		attrs:   make(map[string]any),
	}
	if parent := SpanFromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChildSpan starts a span under the span in ctx.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	return StartSpan(ctx, name, "")
}

func (s *Span) End() {
	s.mu.Lock()
	s.Duration = time.Since(s.Start)
	s.mu.Unlock()
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs[key] = value
	s.mu.Unlock()
}

// Children returns a copy of the child spans in start order.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Span, len(s.children))
	copy(out, s.children)
	return out
}

func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// Log writes the span tree to logger, one record per span.
func (s *Span) Log(logger *slog.Logger) {
	s.log(logger, 0)
}

func (s *Span) log(logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", s.Duration.Milliseconds(),
		"depth", depth,
	}
	keys := make([]string, 0, len(s.attrs))
	for k := range s.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, s.attrs[k])
	}
	children := s.children
	s.mu.Unlock()
	logger.Info("span", attrs...)
	for _, child := range children {
		child.log(logger, depth+1)
	}
}
