package observability

import (
	"context"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// NewResource exposes newResource for testing.
func NewResource(cfg Config) (*resource.Resource, error) {
	return newResource(context.Background(), cfg)
}

// SamplerDescription returns the description of the sampler selected for cfg.
func SamplerDescription(cfg Config) string {
	return newSampler(cfg).Description()
}

// RecordsRootSpan starts one root span under the sampler selected for cfg
// and reports whether it was exported.
func RecordsRootSpan(cfg Config) bool {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(newSampler(cfg)),
	)

	_, span := tp.Tracer("test").Start(context.Background(), "root")
	span.End()

	// Shutdown clears the exporter.
	spans := exporter.GetSpans()

	if tp.Shutdown(context.Background()) != nil {
		return false
	}

	return len(spans) > 0
}
