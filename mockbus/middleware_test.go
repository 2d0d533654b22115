package mockbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/doudou/flexmock/coreengine/testutil"
)

// =============================================================================
// LOGGING MIDDLEWARE TESTS
// =============================================================================

func TestLoggingMiddleware(t *testing.T) {
	logger := testutil.NewRecordingLogger()
	mw := NewLoggingMiddleware(logger)
	ctx := withMockName(context.Background(), "dog")
	inv := testutil.Call("bark", 1)

	next, err := mw.Before(ctx, inv)
	require.NoError(t, err)
	assert.Equal(t, ctx, next)

	result, err := mw.After(ctx, inv, "woof", nil)
	require.NoError(t, err)
	assert.Equal(t, "woof", result)

	_, err = mw.After(ctx, inv, nil, errors.New("boom"))
	require.NoError(t, err)

	started, ok := logger.Find("debug", "dispatch_started")
	require.True(t, ok)
	assert.Equal(t, "bark(1)", started.Fields["call"])

	failed, ok := logger.Find("warn", "dispatch_failed")
	require.True(t, ok)
	assert.Equal(t, "raised", failed.Fields["outcome"])
	assert.Equal(t, "boom", failed.Fields["error"])
}

// =============================================================================
// TRACING MIDDLEWARE TESTS
// =============================================================================

func TestTracingMiddlewareNilTracerPassesThrough(t *testing.T) {
	mw := NewTracingMiddleware(nil)
	ctx := context.Background()

	next, err := mw.Before(ctx, testutil.Call("bark"))
	require.NoError(t, err)
	assert.Equal(t, ctx, next)

	result, err := mw.After(next, testutil.Call("bark"), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result)
}

func TestTracingMiddlewareRecordsFailures(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	mw := NewTracingMiddleware(tp.Tracer("test"))
	inv := testutil.Call("bark")
	ctx, err := mw.Before(withMockName(context.Background(), "dog"), inv)
	require.NoError(t, err)

	_, err = mw.After(ctx, inv, nil, errors.New("boom"))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

// =============================================================================
// METRICS MIDDLEWARE TESTS
// =============================================================================

func TestMetricsMiddlewareKeepsResult(t *testing.T) {
	mw := NewMetricsMiddleware()
	inv := testutil.Call("bark")

	ctx, err := mw.Before(withMockName(context.Background(), "metrics-unit"), inv)
	require.NoError(t, err)
	assert.NotNil(t, ctx.Value(dispatchStartKey{}))

	result, err := mw.After(ctx, inv, "woof", nil)
	require.NoError(t, err)
	assert.Equal(t, "woof", result)
}
