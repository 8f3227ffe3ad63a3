package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/dimlens/pkg/filterset"
	"github.com/Sumatoshi-tech/dimlens/pkg/heatmap"
	"github.com/Sumatoshi-tech/dimlens/pkg/observability"
	"github.com/Sumatoshi-tech/dimlens/pkg/report"
)

// formatText prints one key=value pair per line.
const formatText = "text"

func newOptionsCommand(g *globals) *cobra.Command {
	var (
		format string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "options <payload>",
		Short: "List the filter options of the current breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			logger := observability.NewLogger(cmd.ErrOrStderr(), observabilityConfig(cfg, observability.ModeCLI))

			payload, err := loadPayload(args[0], cmd.InOrStdin(), strict || cfg.Heatmap.Strict, logger)
			if err != nil {
				return err
			}

			return writeOptions(cmd.OutOrStdout(), format, heatmap.ExtractFilterOptions(payload.Current.Breakdown))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json, yaml")
	cmd.Flags().BoolVar(&strict, "strict", false, "validate the payload against the breakdown schema")

	return cmd
}

func writeOptions(w io.Writer, format string, opts []filterset.Option) error {
	switch format {
	case formatText:
		for _, opt := range opts {
			_, err := fmt.Fprintln(w, filterset.Concat(opt, false))
			if err != nil {
				return fmt.Errorf("write option: %w", err)
			}
		}

		return nil
	case report.FormatJSON:
		return report.WriteJSON(w, opts)
	case report.FormatYAML:
		return report.WriteYAML(w, opts)
	default:
		return fmt.Errorf("%w: %s", report.ErrUnknownFormat, format)
	}
}
