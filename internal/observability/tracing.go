package observability

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "gcdl-backend"

// InitTracing installs an OTLP/HTTP exporter when endpoint is set. Without an
// endpoint tracing stays a no-op and the returned shutdown does nothing.
func InitTracing(ctx context.Context, log logrus.FieldLogger, endpoint, environment string) (func(context.Context) error, error) {
	if endpoint == "" {
		log.Info("tracing disabled: OTEL_EXPORTER_OTLP_ENDPOINT not set")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(tracerName),
			semconv.DeploymentEnvironment(environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	log.WithField("endpoint", endpoint).Info("tracing initialized")
	return tp.Shutdown, nil
}

// Tracer returns the tracer used by the recorders.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
