package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/dimlens/cmd/dimlens/commands"
	"github.com/Sumatoshi-tech/dimlens/pkg/breakdown"
	"github.com/Sumatoshi-tech/dimlens/pkg/heatmap"
	"github.com/Sumatoshi-tech/dimlens/pkg/plotpage"
	"github.com/Sumatoshi-tech/dimlens/pkg/report"
)

const testPayload = `{
  "metric": {"name": "page_views"},
  "current": {"breakdown": {"browser": {"chrome": 547246, "safari": 218694}, "os": {"linux": 75, "mac": 25}}},
  "baseline": {"breakdown": {"browser": {"chrome": 360666, "safari": 216624}, "os": {"linux": 50, "mac": 50}}}
}`

const testConfig = `heatmap:
  top_contributors: 3
logging:
  level: error
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// run executes the root command with a temporary config and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	configPath := writeFile(t, "dimlens.yaml", testConfig)

	cmd := commands.NewRootCommand()

	var out, errOut bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", configPath}, args...))

	err := cmd.Execute()

	return out.String(), err
}

func TestCompare_JSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "payload.json", testPayload)

	out, err := run(t, "", "compare", path, "--format", "json", "--order", "os")
	require.NoError(t, err)

	var res report.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))

	require.Len(t, res.Columns, 2)
	assert.Equal(t, "os", res.Columns[0].Column)
	assert.Equal(t, "page_views", res.Metric.Name)
	assert.Len(t, res.Contributors, 3)
	assert.InDelta(t, 186580, res.Columns[1].DimensionComparisonData["chrome"].MetricValueDiff, 1e-9)
}

func TestCompare_TopOverridesConfig(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "payload.json", testPayload)

	out, err := run(t, "", "compare", path, "--format", "json", "--top", "1")
	require.NoError(t, err)

	var res report.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Contributors, 1)
}

func TestCompare_Table(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "payload.json", testPayload)

	out, err := run(t, "", "compare", path, "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "chrome")
	assert.Contains(t, out, "547,246")
	assert.NotContains(t, out, "\x1b[")
}

func TestCompare_YAMLFromStdin(t *testing.T) {
	t.Parallel()

	out, err := run(t, testPayload, "compare", "-", "--format", "yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "column: browser")
	assert.Contains(t, out, "metric_value_diff: 186580")
}

func TestCompare_YAMLPayloadFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "payload.yaml", `current:
  breakdown:
    os: {linux: 3}
baseline:
  breakdown:
    os: {linux: 1}
`)

	out, err := run(t, "", "compare", path, "--format", "json", "--strict")
	require.NoError(t, err)

	var res report.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 2, res.Columns[0].DimensionComparisonData["linux"].MetricValueDiff, 1e-9)
}

func TestCompare_Errors(t *testing.T) {
	t.Parallel()

	good := writeFile(t, "payload.json", testPayload)
	nonNumeric := writeFile(t, "bad.json",
		`{"current": {"breakdown": {"os": {"linux": "x"}}}, "baseline": {"breakdown": {}}}`)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "strict schema", args: []string{"compare", nonNumeric, "--strict"}, want: breakdown.ErrInvalidPayload},
		{name: "negative top", args: []string{"compare", good, "--top", "-1"}, want: commands.ErrNegativeTop},
		{name: "unknown format", args: []string{"compare", good, "--format", "csv"}, want: report.ErrUnknownFormat},
		{name: "unsupported extension", args: []string{"compare", "payload.txt"}, want: breakdown.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := run(t, "", tt.args...)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompare_MissingConfigFile(t *testing.T) {
	t.Parallel()

	cmd := commands.NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "compare", "-"})

	require.Error(t, cmd.Execute())
}

func TestRender_WritesHTML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "payload.json", testPayload)
	output := filepath.Join(t.TempDir(), "report.html")

	_, err := run(t, "", "render", path, "-o", output, "--theme", "dark", "--title", "Views")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	html := string(data)
	assert.Contains(t, html, "<title>Views</title>")
	assert.Contains(t, html, plotpage.EChartsURL)
	assert.Contains(t, html, "browser")
}

func TestRender_Stdout(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "payload.json", testPayload)

	out, err := run(t, "", "render", path, "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "<title>page_views</title>")
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "payload.json", testPayload)

	_, err := run(t, "", "render", path)
	require.ErrorIs(t, err, commands.ErrNoOutputFile)

	_, err = run(t, "", "render", path, "-o", "-", "--theme", "neon")
	require.ErrorIs(t, err, plotpage.ErrUnknownTheme)
}

func TestOptions(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "payload.json", testPayload)

	out, err := run(t, "", "options", path)
	require.NoError(t, err)
	assert.Equal(t, "browser=chrome\nbrowser=safari\nos=linux\nos=mac\n", out)

	out, err = run(t, "", "options", path, "--format", "json")
	require.NoError(t, err)

	var opts []heatmap.FilterOption
	require.NoError(t, json.Unmarshal([]byte(out), &opts))
	assert.Len(t, opts, 4)
}

func TestFiltersApply(t *testing.T) {
	t.Parallel()

	out, err := run(t, "", "filters", "apply",
		"--filters", "browser='chrome',os='linux'",
		"--add", "country=us",
		"--remove", "os=linux")
	require.NoError(t, err)
	assert.Equal(t, "browser='chrome',country='us'\n", out)
}

func TestFiltersParse(t *testing.T) {
	t.Parallel()

	out, err := run(t, "", "filters", "parse", "z='1',a='1',c='2=4'", "--format", "json")
	require.NoError(t, err)

	var opts []heatmap.FilterOption
	require.NoError(t, json.Unmarshal([]byte(out), &opts))
	assert.Equal(t, []heatmap.FilterOption{
		{Key: "z", Value: "1"},
		{Key: "a", Value: "1"},
		{Key: "c", Value: "2=4"},
	}, opts)

	out, err = run(t, "", "filters", "parse", "z='1',a='1',c='2=4'")
	require.NoError(t, err)
	assert.Equal(t, "a='1',c='2=4',z='1'\n", out)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "dimlens "))
}

func TestServeAndMCPCommands_Flags(t *testing.T) {
	t.Parallel()

	root := commands.NewRootCommand()

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("port"))
	assert.NotNil(t, serve.Flags().Lookup("host"))

	mcpCmd, _, err := root.Find([]string{"mcp"})
	require.NoError(t, err)
	assert.NotEmpty(t, mcpCmd.Long)

	debug := mcpCmd.Flags().Lookup("debug")
	require.NotNil(t, debug)
	assert.Equal(t, "false", debug.DefValue)
}
