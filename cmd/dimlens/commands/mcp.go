package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/dimlens/pkg/config"
	"github.com/Sumatoshi-tech/dimlens/pkg/mcp"
	"github.com/Sumatoshi-tech/dimlens/pkg/observability"
	"github.com/Sumatoshi-tech/dimlens/pkg/version"
)

func newMCPCommand(g *globals) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes the breakdown comparison as tools that AI agents
can discover and invoke:
  - dimlens_compare: compare a current and a baseline breakdown
  - dimlens_filter_options: list the filter options of a breakdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			// stdout carries the protocol; logs go to stderr as JSON.
			cfg.Logging.Format = config.LogFormatJSON

			if debug {
				cfg.Logging.Level = "debug"
				cfg.Telemetry.DebugTrace = true
			}

			providers, shutdown, err := initObservability(cmd.Context(), cfg, observability.ModeMCP)
			if err != nil {
				return err
			}
			defer shutdown()

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  providers.Logger,
				Metrics: red,
				Tracer:  providers.Tracer,
				Version: version.Version,
				Report:  reportOptions(cfg),
			})

			ctx, stop := notifyContext(cmd.Context())
			defer stop()

			return srv.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
