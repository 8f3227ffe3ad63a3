package heatmap

import "github.com/Sumatoshi-tech/dimlens/pkg/breakdown"

// ExtractFilterOptions lists every (column, value) pair of the current
// breakdown, columns then values in ascending order. Zero counts are included.
func ExtractFilterOptions(current breakdown.Breakdown) []FilterOption {
	var size int

	for _, counts := range current {
		size += len(counts)
	}

	opts := make([]FilterOption, 0, size)

	for _, column := range current.Columns() {
		for _, value := range current.Values(column) {
			opts = append(opts, FilterOption{Key: column, Value: value})
		}
	}

	return opts
}
