package mockbus

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/doudou/flexmock/coreengine/calls"
	"github.com/doudou/flexmock/coreengine/observability"
)

// =============================================================================
// LOGGING MIDDLEWARE
// =============================================================================

// LoggingMiddleware logs every dispatched call.
type LoggingMiddleware struct {
	logger Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware.
func NewLoggingMiddleware(logger Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// Before logs call receipt.
func (m *LoggingMiddleware) Before(ctx context.Context, inv calls.Invocation) (context.Context, error) {
	m.logger.Debug("dispatch_started", "mock", MockName(ctx), "call", inv.String())
	return ctx, nil
}

// After logs the call outcome.
func (m *LoggingMiddleware) After(ctx context.Context, inv calls.Invocation, result any, err error) (any, error) {
	if err != nil {
		m.logger.Warn("dispatch_failed",
			"mock", MockName(ctx),
			"call", inv.String(),
			"outcome", observability.Outcome(err),
			"error", err.Error(),
		)
	} else {
		m.logger.Debug("dispatch_completed", "mock", MockName(ctx), "call", inv.String())
	}
	return result, nil
}

// =============================================================================
// METRICS MIDDLEWARE
// =============================================================================

type dispatchStartKey struct{}

// MetricsMiddleware records dispatch counts and durations.
type MetricsMiddleware struct{}

// NewMetricsMiddleware creates a new MetricsMiddleware.
func NewMetricsMiddleware() *MetricsMiddleware {
	return &MetricsMiddleware{}
}

// Before stamps the dispatch start time.
func (m *MetricsMiddleware) Before(ctx context.Context, inv calls.Invocation) (context.Context, error) {
	return context.WithValue(ctx, dispatchStartKey{}, time.Now()), nil
}

// After records the dispatch outcome and duration.
func (m *MetricsMiddleware) After(ctx context.Context, inv calls.Invocation, result any, err error) (any, error) {
	var durationMS float64
	if start, ok := ctx.Value(dispatchStartKey{}).(time.Time); ok {
		durationMS = float64(time.Since(start).Microseconds()) / 1000.0
	}
	observability.RecordDispatch(MockName(ctx), inv.Method, observability.Outcome(err), durationMS)
	return result, nil
}

// =============================================================================
// TRACING MIDDLEWARE
// =============================================================================

type dispatchSpanKey struct{}

// TracingMiddleware opens one span per dispatched call. With a nil tracer it
// is a pass-through.
type TracingMiddleware struct {
	tracer trace.Tracer
}

// NewTracingMiddleware creates a new TracingMiddleware.
func NewTracingMiddleware(tracer trace.Tracer) *TracingMiddleware {
	return &TracingMiddleware{tracer: tracer}
}

// Before starts the dispatch span.
func (m *TracingMiddleware) Before(ctx context.Context, inv calls.Invocation) (context.Context, error) {
	if m.tracer == nil {
		return ctx, nil
	}
	ctx, span := observability.StartDispatchSpan(ctx, m.tracer, MockName(ctx), inv.Method, inv.String())
	return context.WithValue(ctx, dispatchSpanKey{}, span), nil
}

// After ends the dispatch span with the call outcome.
func (m *TracingMiddleware) After(ctx context.Context, inv calls.Invocation, result any, err error) (any, error) {
	if span, ok := ctx.Value(dispatchSpanKey{}).(trace.Span); ok {
		observability.EndDispatchSpan(span, err)
	}
	return result, nil
}

// Ensure all middleware types implement Middleware interface.
var (
	_ Middleware = (*LoggingMiddleware)(nil)
	_ Middleware = (*MetricsMiddleware)(nil)
	_ Middleware = (*TracingMiddleware)(nil)
)
