package metrics

import (
	"context"
	"sync"
	"time"
)

// Tracer provides distributed tracing capabilities. The interface allows
// plugging in different backends; the library-facing packages depend only
// on this abstraction.
type Tracer interface {
	// StartSpan starts a new span with the given name.
	// Returns a context containing the span and a function to end the span.
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder)
}

// SpanEnder is a function that ends a span.
// Call with nil error for success, or pass an error to mark the span as failed.
type SpanEnder func(err error)

// SpanOption configures span behavior.
type SpanOption func(*spanConfig)

type spanConfig struct {
	attributes map[string]interface{}
}

// WithAttributes sets span attributes.
func WithAttributes(attrs map[string]interface{}) SpanOption {
	return func(c *spanConfig) {
		c.attributes = attrs
	}
}

// NoOpTracer is a tracer that does nothing. It is the default when tracing
// is not configured.
type NoOpTracer struct{}

// StartSpan returns the context unchanged and a no-op end function.
func (NoOpTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder) {
	return ctx, func(err error) {}
}

// RecordedSpan represents a completed span captured by RecordingTracer.
type RecordedSpan struct {
	Name       string
	StartTime  time.Time
	Duration   time.Duration
	Attributes map[string]interface{}
	Error      error
}

// RecordingTracer keeps completed spans in memory. Useful for tests and
// debugging.
type RecordingTracer struct {
	mu    sync.Mutex
	spans []RecordedSpan
}

// NewRecordingTracer creates an empty RecordingTracer.
func NewRecordingTracer() *RecordingTracer {
	return &RecordingTracer{}
}

// StartSpan records the span on end.
func (t *RecordingTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder) {
	cfg := &spanConfig{attributes: make(map[string]interface{})}
	for _, opt := range opts {
		opt(cfg)
	}

	start := time.Now()
	return ctx, func(err error) {
		t.mu.Lock()
		t.spans = append(t.spans, RecordedSpan{
			Name:       name,
			StartTime:  start,
			Duration:   time.Since(start),
			Attributes: cfg.attributes,
			Error:      err,
		})
		t.mu.Unlock()
	}
}

// Spans returns a copy of the recorded spans.
func (t *RecordingTracer) Spans() []RecordedSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RecordedSpan, len(t.spans))
	copy(out, t.spans)
	return out
}
