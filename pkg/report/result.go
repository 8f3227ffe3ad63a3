// Package report assembles the full comparison of a payload and writes it as
// a terminal table, JSON or YAML.
package report

import (
	"github.com/Sumatoshi-tech/dimlens/pkg/breakdown"
	"github.com/Sumatoshi-tech/dimlens/pkg/heatmap"
)

// Options controls how a payload is turned into a Result.
type Options struct {
	ColumnOrder     []string
	Formatter       heatmap.Formatter
	TopContributors int
	Align           bool
}

// Result is everything derived from one payload.
type Result struct {
	Metric        *breakdown.Metric             `json:"metric,omitempty"       yaml:"metric,omitempty"`
	Columns       []heatmap.ComparisonByColumn  `json:"columns"                yaml:"columns"`
	Trees         map[string][]heatmap.TreeNode `json:"trees"                  yaml:"trees"`
	FilterOptions []heatmap.FilterOption        `json:"filterOptions"          yaml:"filter_options"`
	Contributors  []heatmap.Contributor         `json:"contributors,omitempty" yaml:"contributors,omitempty"`
}

// Build runs the comparison pipeline over p.
// Contributors are ranked only when opts.TopContributors is positive.
func Build(p breakdown.Payload, opts Options) Result {
	if opts.Align {
		p = breakdown.Align(p)
	}

	current := p.Current.Breakdown
	columns := heatmap.Compare(current, p.Baseline.Breakdown, opts.ColumnOrder)

	trees := make(map[string][]heatmap.TreeNode, len(columns))
	for _, c := range columns {
		trees[c.Column] = opts.Formatter.ToTreeNodes(c.DimensionComparisonData, c.Column)
	}

	res := Result{
		Metric:        p.Metric,
		Columns:       columns,
		Trees:         trees,
		FilterOptions: heatmap.ExtractFilterOptions(current),
	}

	if opts.TopContributors > 0 {
		res.Contributors = heatmap.RankContributors(columns, opts.TopContributors)
	}

	return res
}

// ValueCount returns the number of dimension values across all columns.
func (r Result) ValueCount() int {
	var n int

	for _, c := range r.Columns {
		n += len(c.DimensionComparisonData)
	}

	return n
}
