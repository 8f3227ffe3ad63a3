package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/dimlens/pkg/filterset"
)

func newFiltersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Apply or parse filter sets",
		Long: `Filter sets are lists of column=value pairs that narrow the next
breakdown request. Their query-string form is sorted, comma-joined and
single-quoted: browser='chrome',os='linux'.`,
	}

	cmd.AddCommand(newFiltersApplyCommand())
	cmd.AddCommand(newFiltersParseCommand())

	return cmd
}

func newFiltersApplyCommand() *cobra.Command {
	var (
		current string
		add     []string
		remove  []string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply additions and removals to a filter set",
		Example: `  dimlens filters apply --filters "browser='chrome'" --add os=linux
  dimlens filters apply --filters "browser='chrome',os='linux'" --remove os=linux`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			delta := filterset.Delta{
				Add:    parsePairs(add),
				Remove: parsePairs(remove),
			}

			next := filterset.Apply(filterset.Deserialize(current), delta)

			return writeFilters(cmd, format, next)
		},
	}

	cmd.Flags().StringVar(&current, "filters", "", "current filter set in query-string form")
	cmd.Flags().StringArrayVar(&add, "add", nil, "column=value pair to add (repeatable)")
	cmd.Flags().StringArrayVar(&remove, "remove", nil, "column=value pair to remove (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json, yaml")

	return cmd
}

func newFiltersParseCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "parse <filters>",
		Short: "Decode a filter set from its query-string form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeFilters(cmd, format, filterset.Deserialize(args[0]))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json, yaml")

	return cmd
}

// parsePairs reads column=value arguments. Quoted values are unquoted.
func parsePairs(pairs []string) []filterset.Option {
	opts := make([]filterset.Option, 0, len(pairs))

	for _, pair := range pairs {
		opts = append(opts, filterset.Deserialize(pair)...)
	}

	return opts
}

// writeFilters prints the serialized set for text output, the options otherwise.
func writeFilters(cmd *cobra.Command, format string, opts []filterset.Option) error {
	if format != formatText {
		return writeOptions(cmd.OutOrStdout(), format, opts)
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), filterset.Serialize(opts))
	if err != nil {
		return fmt.Errorf("write filters: %w", err)
	}

	return nil
}
