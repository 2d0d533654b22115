package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of engine spans.
const TracerName = "github.com/doudou/flexmock"

// Attribute keys set on dispatch spans.
const (
	AttrMock    = attribute.Key("flexmock.mock")
	AttrMethod  = attribute.Key("flexmock.method")
	AttrCall    = attribute.Key("flexmock.call")
	AttrOutcome = attribute.Key("flexmock.outcome")
)

// InitTracer initializes OpenTelemetry tracing with an OTLP gRPC exporter.
// Returns a shutdown function that must be called on termination.
func InitTracer(serviceName, endpoint string) (func(context.Context) error, error) {
	ctx := context.Background()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Version is reported as the service version of exported spans.
var Version = "0.1.0"

// Tracer returns the engine tracer from the global provider.
func Tracer() oteltrace.Tracer {
	return otel.Tracer(TracerName)
}

// StartDispatchSpan opens the span of one dispatched call.
func StartDispatchSpan(ctx context.Context, tracer oteltrace.Tracer, mock, method, call string) (context.Context, oteltrace.Span) {
	return tracer.Start(ctx, "flexmock.dispatch "+method,
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal),
		oteltrace.WithAttributes(
			AttrMock.String(mock),
			AttrMethod.String(method),
			AttrCall.String(call),
		),
	)
}

// EndDispatchSpan records the outcome of err on span and ends it.
func EndDispatchSpan(span oteltrace.Span, err error) {
	span.SetAttributes(AttrOutcome.String(Outcome(err)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
