package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/dimlens/internal/server"
	"github.com/Sumatoshi-tech/dimlens/pkg/observability"
	"github.com/Sumatoshi-tech/dimlens/pkg/plotpage"
	"github.com/Sumatoshi-tech/dimlens/pkg/resultcache"
	"github.com/Sumatoshi-tech/dimlens/pkg/version"
)

func newServeCommand(g *globals) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the comparison API over HTTP",
		Long: `Serve the comparison API over HTTP.

Routes:
  POST /api/v1/compare        comparison, treemap nodes, filter options
  POST /api/v1/treemap        HTML treemap report (?format=json for nodes)
  POST /api/v1/options        filter options of the current breakdown
  POST /api/v1/filters/apply  apply a delta to a filter set
  GET  /api/v1/filters/parse  decode a filter set (?q=...)
  GET  /healthz               liveness
  GET  /metrics               Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}

			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			theme, err := plotpage.ParseTheme(cfg.Render.Theme)
			if err != nil {
				return err
			}

			cacheBytes, err := cfg.Server.CacheBytes()
			if err != nil {
				return err
			}

			reader, metricsHandler, err := observability.NewPrometheusReader()
			if err != nil {
				return err
			}

			providers, shutdown, err := initObservability(cmd.Context(), cfg, observability.ModeServe, reader)
			if err != nil {
				return err
			}
			defer shutdown()

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv := server.New(server.Deps{
				Tracer:       providers.Tracer,
				RED:          red,
				Logger:       providers.Logger,
				Metrics:      metricsHandler,
				Version:      version.Version,
				Report:       reportOptions(cfg),
				Strict:       cfg.Heatmap.Strict,
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
				Theme:        theme,
				Height:       cfg.Render.Height,
				Cache:        resultcache.New(cfg.Server.CacheEntries, cacheBytes),
			})

			ctx, stop := notifyContext(cmd.Context())
			defer stop()

			return srv.ListenAndServe(ctx, cfg.Server.Addr(), server.Timeouts{
				Read:     cfg.Server.ReadTimeout,
				Write:    cfg.Server.WriteTimeout,
				Idle:     cfg.Server.IdleTimeout,
				Shutdown: cfg.Server.ShutdownTimeout,
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default: config server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: config server.port)")

	return cmd
}
