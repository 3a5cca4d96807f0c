package models

import (
	"context"
	"sync"
)

type sinkKey struct{}

// ResultSink captures the last rate limit decision made while serving a
// request, so the transport can advertise the remaining budget.
type ResultSink struct {
	mu     sync.Mutex
	result *RateLimitResult
}

// WithResultSink attaches a fresh sink to ctx.
func WithResultSink(ctx context.Context) (context.Context, *ResultSink) {
	sink := &ResultSink{}
	return context.WithValue(ctx, sinkKey{}, sink), sink
}

// RecordResult stores result in the sink carried by ctx, if any.
func RecordResult(ctx context.Context, result *RateLimitResult) {
	sink, ok := ctx.Value(sinkKey{}).(*ResultSink)
	if !ok || result == nil {
		return
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	cp := *result
	sink.result = &cp
}

// Result returns the last recorded decision, or nil.
func (s *ResultSink) Result() *RateLimitResult {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}
