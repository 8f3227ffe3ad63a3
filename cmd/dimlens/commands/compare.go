package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/dimlens/pkg/config"
	"github.com/Sumatoshi-tech/dimlens/pkg/observability"
	"github.com/Sumatoshi-tech/dimlens/pkg/report"
)

// ErrNegativeTop is returned when --top is negative.
var ErrNegativeTop = errors.New("--top must not be negative")

// comparisonFlags are shared by compare and render.
type comparisonFlags struct {
	order  []string
	top    int
	strict bool
	align  bool
}

func (cf *comparisonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&cf.order, "order", nil, "columns to list first, the rest follow alphabetically")
	cmd.Flags().IntVar(&cf.top, "top", 0, "number of top contributors (default: config heatmap.top_contributors)")
	cmd.Flags().BoolVar(&cf.strict, "strict", false, "validate the payload against the breakdown schema")
	cmd.Flags().BoolVar(&cf.align, "align", false, "zero-fill values missing from one of the windows")
}

// apply overlays explicitly set flags on the configured defaults.
func (cf *comparisonFlags) apply(cmd *cobra.Command, cfg *config.Config) (report.Options, bool, error) {
	opts := reportOptions(cfg)

	if len(cf.order) > 0 {
		opts.ColumnOrder = cf.order
	}

	if cmd.Flags().Changed("top") {
		if cf.top < 0 {
			return opts, false, fmt.Errorf("%w: %d", ErrNegativeTop, cf.top)
		}

		opts.TopContributors = cf.top
	}

	opts.Align = opts.Align || cf.align

	return opts, cfg.Heatmap.Strict || cf.strict, nil
}

func newCompareCommand(g *globals) *cobra.Command {
	var (
		cf      comparisonFlags
		format  string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "compare <payload>",
		Short: "Compare the current and baseline breakdowns of a payload",
		Long: `Compare the current and baseline breakdowns of a payload file.

The payload may be .json, .yaml/.yml, or either compressed as .lz4.
Use "-" to read JSON from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			opts, strict, err := cf.apply(cmd, cfg)
			if err != nil {
				return err
			}

			providers, shutdown, err := initObservability(cmd.Context(), cfg, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer shutdown()

			ctx, span := providers.Tracer.Start(cmd.Context(), "cli.compare",
				trace.WithAttributes(attribute.String("payload.path", args[0])))
			defer span.End()

			payload, err := loadPayload(args[0], cmd.InOrStdin(), strict, providers.Logger)
			if err != nil {
				span.RecordError(err)

				return err
			}

			res := report.Build(payload, opts)

			providers.Logger.DebugContext(ctx, "breakdowns compared",
				"columns", len(res.Columns), "values", res.ValueCount())

			return report.Write(cmd.OutOrStdout(), format, res, report.TableOptions{
				Formatter: opts.Formatter,
				NoColor:   noColor,
			})
		},
	}

	cf.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatTable, "output format: table, json, yaml")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored table output")

	return cmd
}
