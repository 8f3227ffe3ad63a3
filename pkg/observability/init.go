package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const (
	instrumentationName = "dimlens"
	attrAppMode         = "app.mode"
)

// Providers holds the initialized observability providers.
type Providers struct {
	// Tracer is the named tracer for creating spans.
	Tracer trace.Tracer

	// Meter is the named meter for creating instruments.
	Meter metric.Meter

	// Logger is the context-aware structured logger.
	Logger *slog.Logger

	// Shutdown flushes pending telemetry. Must be called before exit.
	Shutdown func(ctx context.Context) error
}

// pipeline collects the providers built for one Init call together with the
// flush hooks that Shutdown runs in order.
type pipeline struct {
	cfg       Config
	res       *resource.Resource
	tracers   trace.TracerProvider
	meters    metric.MeterProvider
	flushHook []func(context.Context) error
}

// Init sets up tracing, metrics and logging and installs them as the OTel globals.
//
// Without an OTLP endpoint the tracer is a no-op. The meter is a no-op too
// unless extra readers (such as the Prometheus exporter) are supplied, in
// which case an SDK meter provider feeds them.
func Init(ctx context.Context, cfg Config, readers ...sdkmetric.Reader) (Providers, error) {
	res, err := newResource(ctx, cfg)
	if err != nil {
		return Providers{}, err
	}

	p := &pipeline{cfg: cfg, res: res}

	err = p.withTracing(ctx)
	if err != nil {
		return Providers{}, fmt.Errorf("build tracer provider: %w", err)
	}

	err = p.withMetrics(ctx, readers)
	if err != nil {
		return Providers{}, errors.Join(fmt.Errorf("build meter provider: %w", err), p.flush(ctx))
	}

	otel.SetTracerProvider(p.tracers)
	otel.SetMeterProvider(p.meters)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return Providers{
		Tracer:   p.tracers.Tracer(instrumentationName),
		Meter:    p.meters.Meter(instrumentationName),
		Logger:   NewLogger(os.Stderr, cfg),
		Shutdown: p.shutdown,
	}, nil
}

func (p *pipeline) withTracing(ctx context.Context) error {
	if p.cfg.OTLPEndpoint == "" {
		p.tracers = nooptrace.NewTracerProvider()

		return nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.cfg.OTLPEndpoint)}
	if p.cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(p.cfg.OTLPHeaders) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(p.cfg.OTLPHeaders))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(p.res),
		sdktrace.WithSampler(newSampler(p.cfg)),
	)

	p.tracers = tp
	p.flushHook = append(p.flushHook, tp.Shutdown)

	return nil
}

func (p *pipeline) withMetrics(ctx context.Context, readers []sdkmetric.Reader) error {
	if p.cfg.OTLPEndpoint != "" {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.cfg.OTLPEndpoint)}
		if p.cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}

		if len(p.cfg.OTLPHeaders) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(p.cfg.OTLPHeaders))
		}

		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("create metric exporter: %w", err)
		}

		readers = append(readers, sdkmetric.NewPeriodicReader(exporter))
	}

	if len(readers) == 0 {
		p.meters = noopmetric.NewMeterProvider()

		return nil
	}

	mpOpts := make([]sdkmetric.Option, 0, len(readers)+1)
	mpOpts = append(mpOpts, sdkmetric.WithResource(p.res))

	for _, reader := range readers {
		mpOpts = append(mpOpts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(mpOpts...)

	p.meters = mp
	p.flushHook = append(p.flushHook, mp.Shutdown)

	return nil
}

// flush runs every registered shutdown hook and joins their errors.
func (p *pipeline) flush(ctx context.Context) error {
	errs := make([]error, 0, len(p.flushHook))

	for _, hook := range p.flushHook {
		errs = append(errs, hook(ctx))
	}

	return errors.Join(errs...)
}

func (p *pipeline) shutdown(ctx context.Context) error {
	timeout := time.Duration(p.cfg.ShutdownTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultShutdownTimeoutSec * time.Second
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return p.flush(deadlineCtx)
}

// newResource describes the running binary: service name and version,
// deployment environment and launch mode.
func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}

	optional := []struct {
		value string
		kv    func(string) attribute.KeyValue
	}{
		{cfg.ServiceVersion, semconv.ServiceVersion},
		{cfg.Environment, semconv.DeploymentEnvironment},
		{string(cfg.Mode), attribute.Key(attrAppMode).String},
	}

	for _, opt := range optional {
		if opt.value != "" {
			attrs = append(attrs, opt.kv(opt.value))
		}
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	return res, nil
}

// newSampler maps the configured sampling policy to an SDK sampler.
// DebugTrace wins over SampleRatio. A ratio outside (0, 1) samples everything
// that has no sampled-out parent.
func newSampler(cfg Config) sdktrace.Sampler {
	if cfg.DebugTrace {
		return sdktrace.AlwaysSample()
	}

	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	}

	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

// ParseOTLPHeaders parses "key=value,key=value". Returns nil for empty or
// invalid input.
func ParseOTLPHeaders(raw string) map[string]string {
	result := make(map[string]string)

	for pair := range strings.SplitSeq(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}

		result[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	if len(result) == 0 {
		return nil
	}

	return result
}
