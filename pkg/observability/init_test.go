package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/dimlens/pkg/observability"
)

func TestInit_NoEndpointNoReadersIsNoop(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(context.Background(), observability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	assert.IsType(t, noopmetric.Meter{}, providers.Meter)
	require.NotNil(t, providers.Logger)

	_, span := providers.Tracer.Start(context.Background(), "compare")
	defer span.End()

	assert.False(t, span.IsRecording())
}

func TestInit_ReaderEnablesSDKMeter(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()

	providers, err := observability.Init(context.Background(), observability.DefaultConfig(), reader)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	_, isNoop := providers.Meter.(noopmetric.Meter)
	assert.False(t, isNoop)

	red, err := observability.NewREDMetrics(providers.Meter)
	require.NoError(t, err)

	red.RecordComparison(context.Background(), "compare", 1, 4)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(4), sumInt64(t, findMetric(rm, "dimlens.values.compared")))
}

func TestInit_ShutdownTwice(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(context.Background(), observability.DefaultConfig(), sdkmetric.NewManualReader())
	require.NoError(t, err)

	require.NoError(t, providers.Shutdown(context.Background()))
	assert.NotPanics(t, func() { _ = providers.Shutdown(context.Background()) })
}

func TestNewResource_Attributes(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "staging"
	cfg.Mode = observability.ModeServe

	res, err := observability.NewResource(cfg)
	require.NoError(t, err)

	got := make(map[string]string)
	for _, attr := range res.Attributes() {
		got[string(attr.Key)] = attr.Value.Emit()
	}

	assert.Equal(t, "dimlens", got["service.name"])
	assert.Equal(t, "1.2.3", got["service.version"])
	assert.Equal(t, "staging", got["deployment.environment"])
	assert.Equal(t, "serve", got["app.mode"])
}

func TestNewResource_SkipsEmptyOptionalAttributes(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Mode = ""

	res, err := observability.NewResource(cfg)
	require.NoError(t, err)

	for _, attr := range res.Attributes() {
		assert.NotEqual(t, "app.mode", string(attr.Key))
		assert.NotEqual(t, "service.version", string(attr.Key))
	}
}

func TestSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ratio      float64
		debug      bool
		wantPrefix string
	}{
		{"default_parent_based_always_on", 0, false, "ParentBased{root:AlwaysOnSampler"},
		{"sample_ratio", 0.25, false, "ParentBased{root:TraceIDRatioBased{0.25}"},
		{"full_ratio_is_always_on", 1, false, "ParentBased{root:AlwaysOnSampler"},
		{"negative_ratio_is_always_on", -0.5, false, "ParentBased{root:AlwaysOnSampler"},
		{"debug_trace_wins_over_ratio", 0.25, true, "AlwaysOnSampler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := observability.DefaultConfig()
			cfg.SampleRatio = tt.ratio
			cfg.DebugTrace = tt.debug

			assert.Contains(t, observability.SamplerDescription(cfg), tt.wantPrefix)
		})
	}
}

func TestSampler_DebugTraceRecordsEverySpan(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.SampleRatio = 1e-9
	cfg.DebugTrace = true

	for range 20 {
		assert.True(t, observability.RecordsRootSpan(cfg))
	}
}

func TestSampler_TinyRatioDropsRootSpans(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.SampleRatio = 1e-12

	assert.False(t, observability.RecordsRootSpan(cfg))
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{"empty", "", nil},
		{"single", "key=value", map[string]string{"key": "value"}},
		{"multiple", "k1=v1,k2=v2", map[string]string{"k1": "v1", "k2": "v2"}},
		{"spaces", " k1 = v1 , k2 = v2 ", map[string]string{"k1": "v1", "k2": "v2"}},
		{"value_with_equals", "authorization=Basic a2V5=", map[string]string{"authorization": "Basic a2V5="}},
		{"no_equals", "invalid", nil},
		{"empty_key", "=v", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, observability.ParseOTLPHeaders(tt.input))
		})
	}
}
