package observability

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/doudou/flexmock/coreengine/failure"
	"github.com/doudou/flexmock/coreengine/responses"
)

// =============================================================================
// OUTCOME TESTS
// =============================================================================

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "ok"},
		{"no match", failure.NewCheckFailedError(failure.CheckNoMatch, "m", "x"), "no_match"},
		{"count", failure.NewCheckFailedError(failure.CheckCount, "m", "x"), "count"},
		{"order", failure.NewCheckFailedError(failure.CheckOrder, "m", "x"), "order"},
		{"signature", failure.NewCheckFailedError(failure.CheckSignature, "m", "x"), "signature"},
		{"no block", failure.NewCheckFailedError(failure.CheckNoBlock, "m", "x"), "no_block"},
		{"thrown", &responses.Thrown{Tag: "done"}, "thrown"},
		{"raised", errors.New("boom"), "raised"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

// =============================================================================
// METRICS TESTS
// =============================================================================

func TestRecordDispatch(t *testing.T) {
	tests := []struct {
		name       string
		mock       string
		method     string
		outcome    string
		durationMS float64
	}{
		{"successful call", "dog", "bark", "ok", 0.2},
		{"unmatched call", "dog", "wag", "no_match", 0.1},
		{"raised call", "cat", "meow", "raised", 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(dispatchTotal.WithLabelValues(tt.mock, tt.method, tt.outcome))
			RecordDispatch(tt.mock, tt.method, tt.outcome, tt.durationMS)
			after := testutil.ToFloat64(dispatchTotal.WithLabelValues(tt.mock, tt.method, tt.outcome))
			assert.Equal(t, before+1, after)
		})
	}
}

func TestRecordExpectationRegistered(t *testing.T) {
	before := testutil.ToFloat64(expectationsRegisteredTotal.WithLabelValues("registry"))
	RecordExpectationRegistered("registry")
	RecordExpectationRegistered("registry")
	assert.Equal(t, before+2, testutil.ToFloat64(expectationsRegisteredTotal.WithLabelValues("registry")))
}

func TestRecordVerification(t *testing.T) {
	passedBefore := testutil.ToFloat64(verificationsTotal.WithLabelValues("verifier", "passed"))
	failedBefore := testutil.ToFloat64(verificationsTotal.WithLabelValues("verifier", "failed"))
	failuresBefore := testutil.ToFloat64(verificationFailuresTotal.WithLabelValues("verifier"))

	RecordVerification("verifier", 0)
	RecordVerification("verifier", 3)

	assert.Equal(t, passedBefore+1, testutil.ToFloat64(verificationsTotal.WithLabelValues("verifier", "passed")))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(verificationsTotal.WithLabelValues("verifier", "failed")))
	assert.Equal(t, failuresBefore+3, testutil.ToFloat64(verificationFailuresTotal.WithLabelValues("verifier")))
}

func TestMetrics_Concurrent(t *testing.T) {
	before := testutil.ToFloat64(dispatchTotal.WithLabelValues("concurrent", "call", "ok"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RecordDispatch("concurrent", "call", "ok", 0.1)
			RecordVerification("concurrent", 0)
		}()
	}
	wg.Wait()

	assert.Equal(t, before+10, testutil.ToFloat64(dispatchTotal.WithLabelValues("concurrent", "call", "ok")))
}

// =============================================================================
// TRACING TESTS
// =============================================================================

func newRecordingTracer(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder, tp
}

func TestDispatchSpanSuccess(t *testing.T) {
	recorder, tp := newRecordingTracer(t)

	_, span := StartDispatchSpan(context.Background(), tp.Tracer(TracerName), "dog", "bark", "bark(1)")
	EndDispatchSpan(span, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "flexmock.dispatch bark", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "dog", attrs["flexmock.mock"])
	assert.Equal(t, "bark", attrs["flexmock.method"])
	assert.Equal(t, "bark(1)", attrs["flexmock.call"])
	assert.Equal(t, "ok", attrs["flexmock.outcome"])
}

func TestDispatchSpanFailure(t *testing.T) {
	recorder, tp := newRecordingTracer(t)

	err := failure.NewCheckFailedError(failure.CheckOrder, "dog", "out of order")
	_, span := StartDispatchSpan(context.Background(), tp.Tracer(TracerName), "dog", "bark", "bark()")
	EndDispatchSpan(span, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Status().Description, "out of order")
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestTracerUsesGlobalProvider(t *testing.T) {
	assert.NotNil(t, Tracer())
}
