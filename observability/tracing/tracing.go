package tracing

import "context"

// Attribute represents a key/value pair attached to a span.
type Attribute struct {
	Key   string
	Value any
}

// Span represents an in-flight tracing span.
type Span interface {
	End(err error)
}

// Tracer starts spans for tracing operations.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// NoopTracer discards all tracing events.
type NoopTracer struct{}

// Start implements Tracer.
func (NoopTracer) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

// End implements Span.
func (noopSpan) End(error) {}

// fanoutTracer starts a span on every tracer. Only the first tracer's context is
// propagated to the caller.
type fanoutTracer []Tracer

func (f fanoutTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	spans := make(fanoutSpan, 0, len(f))
	out := ctx
	for i, tracer := range f {
		spanCtx, span := tracer.Start(ctx, name, attrs...)
		if i == 0 && spanCtx != nil {
			out = spanCtx
		}
		if span != nil {
			spans = append(spans, span)
		}
	}
	return out, spans
}

type fanoutSpan []Span

func (fs fanoutSpan) End(err error) {
	for _, span := range fs {
		span.End(err)
	}
}

// WithTracer combines the non-nil tracers into one. No tracers yields NoopTracer and a
// single tracer is returned unchanged.
func WithTracer(primary Tracer, others ...Tracer) Tracer {
	tracers := make([]Tracer, 0, 1+len(others))
	if primary != nil {
		tracers = append(tracers, primary)
	}
	for _, t := range others {
		if t != nil {
			tracers = append(tracers, t)
		}
	}
	switch len(tracers) {
	case 0:
		return NoopTracer{}
	case 1:
		return tracers[0]
	}
	return fanoutTracer(tracers)
}

func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }

func Int(key string, value int) Attribute { return Attribute{Key: key, Value: value} }

func Int64(key string, value int64) Attribute { return Attribute{Key: key, Value: value} }

func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }

func Strings(key string, values []string) Attribute {
	return Attribute{Key: key, Value: append([]string(nil), values...)}
}
