// Package commands implements the dimlens cobra command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/dimlens/pkg/breakdown"
	"github.com/Sumatoshi-tech/dimlens/pkg/config"
	"github.com/Sumatoshi-tech/dimlens/pkg/observability"
	"github.com/Sumatoshi-tech/dimlens/pkg/report"
	"github.com/Sumatoshi-tech/dimlens/pkg/version"
)

const stdinPath = "-"

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the dimlens command tree.
func NewRootCommand() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "dimlens",
		Short: "Compare metric breakdowns by dimension",
		Long: `dimlens compares a current and a baseline breakdown of a metric by
dimension column and value, and shows which values drove the change.

Commands:
  compare   Print the comparison as a table, JSON or YAML
  render    Write an HTML treemap report
  options   List the filter options of a breakdown
  filters   Apply or parse filter sets
  serve     Run the HTTP API
  mcp       Run the MCP server on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default: ./dimlens.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newCompareCommand(g))
	rootCmd.AddCommand(newRenderCommand(g))
	rootCmd.AddCommand(newOptionsCommand(g))
	rootCmd.AddCommand(newFiltersCommand())
	rootCmd.AddCommand(newServeCommand(g))
	rootCmd.AddCommand(newMCPCommand(g))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// loadConfig reads the config file and applies the verbose flag.
func (g *globals) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}

	if g.verbose {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}

// observabilityConfig maps the telemetry and logging sections onto an observability.Config.
func observabilityConfig(cfg *config.Config, mode observability.AppMode) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.DebugTrace = cfg.Telemetry.DebugTrace
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogLevel = observability.ParseLogLevel(cfg.Logging.Level)
	obsCfg.LogJSON = cfg.Logging.JSON()

	return obsCfg
}

func initObservability(
	ctx context.Context, cfg *config.Config, mode observability.AppMode, readers ...sdkmetric.Reader,
) (observability.Providers, func(), error) {
	providers, err := observability.Init(ctx, observabilityConfig(cfg, mode), readers...)
	if err != nil {
		return observability.Providers{}, nil, fmt.Errorf("init observability: %w", err)
	}

	shutdown := func() {
		shutdownErr := providers.Shutdown(context.WithoutCancel(ctx))
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}

	return providers, shutdown, nil
}

// reportOptions returns the comparison defaults from the heatmap section.
func reportOptions(cfg *config.Config) report.Options {
	return report.Options{
		ColumnOrder:     cfg.Heatmap.ColumnOrder,
		Formatter:       cfg.Heatmap.Formatter(),
		TopContributors: cfg.Heatmap.TopContributors,
		Align:           cfg.Heatmap.Align,
	}
}

// loadPayload reads a payload file, or JSON from stdin when path is "-".
// Strict mode validates the raw document against the payload schema first.
func loadPayload(path string, stdin io.Reader, strict bool, logger *slog.Logger) (breakdown.Payload, error) {
	var (
		data   []byte
		format breakdown.Format
		err    error
	)

	if path == stdinPath {
		format = breakdown.FormatJSON

		data, err = io.ReadAll(stdin)
		if err != nil {
			return breakdown.Payload{}, fmt.Errorf("read stdin: %w", err)
		}
	} else {
		format, err = breakdown.FormatForPath(path)
		if err != nil {
			return breakdown.Payload{}, err
		}

		data, err = breakdown.ReadFile(path)
		if err != nil {
			return breakdown.Payload{}, err
		}
	}

	logger.Debug("payload read", "path", path, "format", format, "bytes", len(data))

	if strict {
		validateErr := breakdown.ValidateBytes(data, format)
		if validateErr != nil {
			return breakdown.Payload{}, validateErr
		}
	}

	return breakdown.DecodeBytes(data, format)
}
