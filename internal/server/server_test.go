package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/dimlens/internal/server"
	"github.com/Sumatoshi-tech/dimlens/pkg/heatmap"
	"github.com/Sumatoshi-tech/dimlens/pkg/observability"
	"github.com/Sumatoshi-tech/dimlens/pkg/report"
	"github.com/Sumatoshi-tech/dimlens/pkg/resultcache"
)

const testPayload = `{
  "metric": {"name": "page_views", "dataset": {"name": "web"}},
  "current": {"breakdown": {
    "browser": {"chrome": 547246, "safari": 218694},
    "country": {"us": 700000, "": 65940}
  }},
  "baseline": {"breakdown": {
    "browser": {"chrome": 360666, "safari": 216624}
  }}
}`

func newTestServer(t *testing.T, deps server.Deps) http.Handler {
	t.Helper()

	if deps.Report.Formatter == (heatmap.Formatter{}) {
		deps.Report.Formatter = heatmap.DefaultFormatter()
	}

	return server.New(deps).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	return rec
}

func TestCompare(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Deps{})

	rec := do(t, h, http.MethodPost, "/api/v1/compare?order=country&top=2", testPayload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res report.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	require.Len(t, res.Columns, 2)
	assert.Equal(t, "country", res.Columns[0].Column)
	assert.Equal(t, "page_views", res.Metric.Name)

	chrome := res.Columns[1].DimensionComparisonData["chrome"]
	assert.InDelta(t, 186580, chrome.MetricValueDiff, 1e-9)
	require.NotNil(t, chrome.MetricValueDiffPercentage)
	assert.InDelta(t, 51.73, *chrome.MetricValueDiffPercentage, 0.01)

	assert.Len(t, res.Contributors, 2)
	assert.Len(t, res.FilterOptions, 4)
	assert.Equal(t, "chrome: 547.2k (51.73%)", res.Trees["browser"][1].Label)
}

func TestCompare_BadJSON(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, server.Deps{}), http.MethodPost, "/api/v1/compare", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body server.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
}

func TestCompare_WrongShapeIsBadRequest(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, server.Deps{}), http.MethodPost, "/api/v1/compare",
		`{"current": {"breakdown": {"browser": {"chrome": "many"}}}, "baseline": {"breakdown": {}}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompare_StrictValidation(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Deps{Strict: true})

	rec := do(t, h, http.MethodPost, "/api/v1/compare", `{"current": {"breakdown": {}}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/compare", testPayload)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompare_PermissiveMissingBaseline(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, server.Deps{}), http.MethodPost, "/api/v1/compare",
		`{"current": {"breakdown": {"os": {"linux": 3}}}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res report.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Columns, 1)
	assert.Nil(t, res.Columns[0].DimensionComparisonData["linux"].MetricValueDiffPercentage)
}

func TestCompare_InvalidQuery(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Deps{})

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/compare?top=-1", testPayload).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/compare?align=maybe", testPayload).Code)
}

func TestCompare_BodyTooLarge(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, server.Deps{MaxBodyBytes: 16}), http.MethodPost, "/api/v1/compare", testPayload)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCompare_CachesIdenticalRequests(t *testing.T) {
	t.Parallel()

	cache := resultcache.New(8, 0)
	h := newTestServer(t, server.Deps{Cache: cache})

	first := do(t, h, http.MethodPost, "/api/v1/compare", testPayload)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "miss", first.Header().Get("X-Dimlens-Cache"))

	second := do(t, h, http.MethodPost, "/api/v1/compare", testPayload)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "hit", second.Header().Get("X-Dimlens-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	reordered := do(t, h, http.MethodPost, "/api/v1/compare?order=country", testPayload)
	assert.Equal(t, "miss", reordered.Header().Get("X-Dimlens-Cache"))

	assert.Equal(t, int64(1), cache.Stats().Hits)
	assert.Equal(t, 2, cache.Len())
}

func TestCompare_LZ4Body(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	zw := lz4.NewWriter(&buf)
	_, err := zw.Write([]byte(testPayload))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compare", &buf)
	req.Header.Set("Content-Encoding", "lz4")

	rec := httptest.NewRecorder()
	newTestServer(t, server.Deps{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res report.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Columns, 2)
}

func TestCompare_UnsupportedEncoding(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compare", strings.NewReader(testPayload))
	req.Header.Set("Content-Encoding", "br")

	rec := httptest.NewRecorder()
	newTestServer(t, server.Deps{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCompare_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, server.Deps{}), http.MethodGet, "/api/v1/compare", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTreemap_HTML(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, server.Deps{}), http.MethodPost, "/api/v1/treemap", testPayload)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>page_views</title>")
}

func TestTreemap_JSON(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, server.Deps{}), http.MethodPost, "/api/v1/treemap?format=json", testPayload)
	require.Equal(t, http.StatusOK, rec.Code)

	var trees map[string][]heatmap.TreeNode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trees))

	require.Len(t, trees["country"], 3)
	assert.Equal(t, "country-parent", trees["country"][0].ID)
	assert.Nil(t, trees["country"][0].Parent)
	assert.Equal(t, "<EMPTY_VALUE>: 65.9k (100.00%)", trees["country"][1].Label)
}

func TestOptions(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, server.Deps{}), http.MethodPost, "/api/v1/options", testPayload)
	require.Equal(t, http.StatusOK, rec.Code)

	var body server.OptionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, []heatmap.FilterOption{
		{Key: "browser", Value: "chrome"},
		{Key: "browser", Value: "safari"},
		{Key: "country", Value: ""},
		{Key: "country", Value: "us"},
	}, body.FilterOptions)
}

func TestFiltersApplyAndParse(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Deps{})

	rec := do(t, h, http.MethodPost, "/api/v1/filters/apply", `{
	  "filters": [{"key": "browser", "value": "chrome"}, {"key": "country", "value": "us"}],
	  "delta": {"add": [{"key": "os", "value": "linux"}], "remove": [{"key": "country", "value": "us"}]}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var applied server.FiltersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &applied))
	assert.Equal(t, "browser='chrome',os='linux'", applied.Serialized)
	assert.Len(t, applied.Filters, 2)

	rec = do(t, h, http.MethodGet, "/api/v1/filters/parse?q="+"a%3D1%2Cc%3D2%3D4", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var parsed server.FiltersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, "a='1',c='2=4'", parsed.Serialized)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, server.Deps{Version: "v0.1.0"}), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "v0.1.0")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	reader, metricsHandler, err := observability.NewPrometheusReader()
	require.NoError(t, err)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	h := newTestServer(t, server.Deps{RED: red, Metrics: metricsHandler})

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/compare", testPayload).Code)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dimlens_requests_total")
	assert.Contains(t, rec.Body.String(), `"compare"`)
}

func TestServe_GracefulShutdown(t *testing.T) {
	t.Parallel()

	var lc net.ListenConfig

	listener, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.New(server.Deps{}).Serve(ctx, listener, server.Timeouts{Shutdown: time.Second})
	}()

	url := "http://" + listener.Addr().String() + "/healthz"

	require.Eventually(t, func() bool {
		req, reqErr := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
		if reqErr != nil {
			return false
		}

		resp, getErr := http.DefaultClient.Do(req)
		if getErr != nil {
			return false
		}

		resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case serveErr := <-done:
		require.NoError(t, serveErr)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
