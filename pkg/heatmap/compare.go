package heatmap

import (
	"slices"

	"github.com/Sumatoshi-tech/dimlens/pkg/breakdown"
)

const percentScale = 100

// Compare joins the current and baseline breakdowns column by column.
//
// Only columns of current are emitted. Without columnOrder they come out
// alphabetically; with it, see OrderColumns. Columns or values missing from
// baseline count as zero.
func Compare(current, baseline breakdown.Breakdown, columnOrder []string) []ComparisonByColumn {
	columns := current.Columns()
	if len(columnOrder) > 0 {
		columns = OrderColumns(columns, columnOrder)
	}

	result := make([]ComparisonByColumn, 0, len(current))

	for _, column := range columns {
		currentCounts, ok := current[column]
		if !ok {
			continue
		}

		result = append(result, ComparisonByColumn{
			Column:                  column,
			DimensionComparisonData: CompareColumn(currentCounts, baseline[column]),
		})
	}

	return result
}

// CompareColumn builds a ComparisonEntry for every value in the current summary.
// A column whose current counts sum to zero yields an empty mapping.
func CompareColumn(current, baseline map[string]float64) map[string]ComparisonEntry {
	currentTotal, currentSummary := Summarize(current)
	baselineTotal, baselineSummary := Summarize(baseline)

	entries := make(map[string]ComparisonEntry, len(currentSummary))

	for value, cur := range currentSummary {
		base := baselineSummary[value]

		entry := ComparisonEntry{
			Current:                        cur.Count,
			Baseline:                       base.Count,
			MetricValueDiff:                cur.Count - base.Count,
			CurrentContributionPercentage:  cur.Percentage,
			BaselineContributionPercentage: base.Percentage,
			ContributionDiff:               cur.Percentage - base.Percentage,
			CurrentTotalCount:              currentTotal,
			BaselineTotalCount:             baselineTotal,
		}

		if base.Count > 0 {
			pct := (cur.Count - base.Count) / base.Count * percentScale
			entry.MetricValueDiffPercentage = &pct
		}

		entries[value] = entry
	}

	return entries
}

// OrderColumns returns the entries of order first, in list order and without
// duplicates, followed by the remaining columns in ascending order.
// Entries of order that are not columns are kept; Compare skips them.
func OrderColumns(columns, order []string) []string {
	seen := make(map[string]struct{}, len(order)+len(columns))
	ordered := make([]string, 0, len(order)+len(columns))

	for _, column := range order {
		if _, dup := seen[column]; dup {
			continue
		}

		seen[column] = struct{}{}
		ordered = append(ordered, column)
	}

	rest := make([]string, 0, len(columns))

	for _, column := range columns {
		if _, dup := seen[column]; dup {
			continue
		}

		seen[column] = struct{}{}
		rest = append(rest, column)
	}

	slices.Sort(rest)

	return append(ordered, rest...)
}
