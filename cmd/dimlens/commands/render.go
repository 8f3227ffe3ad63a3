package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/dimlens/pkg/observability"
	"github.com/Sumatoshi-tech/dimlens/pkg/plotpage"
	"github.com/Sumatoshi-tech/dimlens/pkg/report"
)

const (
	renderFilePerm    = 0o644
	renderOutputFlag  = "output"
	renderOutputShort = "o"
	renderOutputUsage = `output HTML file ("-" for stdout)`
	renderTitle       = "dimlens"
)

// ErrNoOutputFile is returned when the --output flag is not set.
var ErrNoOutputFile = errors.New("output file is required (use --output)")

func newRenderCommand(g *globals) *cobra.Command {
	var (
		cf     comparisonFlags
		output string
		theme  string
		title  string
		height int
	)

	cmd := &cobra.Command{
		Use:   "render <payload>",
		Short: "Render the comparison as an HTML treemap report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return ErrNoOutputFile
			}

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			opts, strict, err := cf.apply(cmd, cfg)
			if err != nil {
				return err
			}

			if theme == "" {
				theme = cfg.Render.Theme
			}

			parsedTheme, err := plotpage.ParseTheme(theme)
			if err != nil {
				return err
			}

			if height <= 0 {
				height = cfg.Render.Height
			}

			providers, shutdown, err := initObservability(cmd.Context(), cfg, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer shutdown()

			ctx, span := providers.Tracer.Start(cmd.Context(), "cli.render")
			defer span.End()

			payload, err := loadPayload(args[0], cmd.InOrStdin(), strict, providers.Logger)
			if err != nil {
				span.RecordError(err)

				return err
			}

			res := report.Build(payload, opts)

			if title == "" {
				title = renderTitle
				if res.Metric != nil && res.Metric.Name != "" {
					title = res.Metric.Name
				}
			}

			page := plotpage.ComparisonPage{
				Title:        title,
				Theme:        parsedTheme,
				Height:       height,
				Formatter:    opts.Formatter,
				Comparison:   res.Columns,
				Contributors: res.Contributors,
			}

			var buf bytes.Buffer

			renderErr := page.Render(&buf)
			if renderErr != nil {
				return fmt.Errorf("render page: %w", renderErr)
			}

			providers.Logger.DebugContext(ctx, "report rendered", "columns", len(res.Columns), "bytes", buf.Len())

			if output == stdinPath {
				_, writeErr := cmd.OutOrStdout().Write(buf.Bytes())

				return writeErr
			}

			writeErr := os.WriteFile(output, buf.Bytes(), renderFilePerm)
			if writeErr != nil {
				return fmt.Errorf("write report: %w", writeErr)
			}

			return nil
		},
	}

	cf.register(cmd)
	cmd.Flags().StringVarP(&output, renderOutputFlag, renderOutputShort, "", renderOutputUsage)
	cmd.Flags().StringVar(&theme, "theme", "", "color theme: light, dark (default: config render.theme)")
	cmd.Flags().StringVar(&title, "title", "", "page title (default: the metric name)")
	cmd.Flags().IntVar(&height, "height", 0, "treemap height in pixels (default: config render.height)")

	return cmd
}
