// Package telemetry sets up OpenTelemetry tracing for bandsample.
package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	DefaultServiceName  = "bandsample"
	instrumentationName = "github.com/siiimooon/go-band"
)

// Tracing holds the tracer used by the application and how to flush it.
type Tracing struct {
	Tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// Setup exports spans over OTLP/HTTP when OTEL_EXPORTER_OTLP_ENDPOINT is set.
// Otherwise the returned tracer records nothing.
func Setup(ctx context.Context) (*Tracing, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return &Tracing{Tracer: noop.NewTracerProvider().Tracer(instrumentationName)}, nil
	}

	// the exporter reads the endpoint URL itself and appends /v1/traces
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	return &Tracing{
		Tracer:   provider.Tracer(instrumentationName),
		provider: provider,
	}, nil
}

// Enabled reports whether spans are exported.
func (t *Tracing) Enabled() bool {
	return t.provider != nil
}

// Shutdown flushes pending spans.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
