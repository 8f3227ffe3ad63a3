// Package breakdown models the metric breakdown payload compared by the heatmap:
// counts of a metric grouped by dimension column and dimension value, for a
// current window and a baseline window.
package breakdown

import (
	"maps"
	"slices"
)

// Breakdown maps dimension column -> dimension value -> count.
// Dimension value order is not significant.
type Breakdown map[string]map[string]float64

// Window wraps the breakdown observed over one time window.
type Window struct {
	Breakdown Breakdown `json:"breakdown" yaml:"breakdown"`
}

// Dataset names the dataset a metric is read from.
type Dataset struct {
	Name string `json:"name" yaml:"name"`
}

// Metric identifies the metric the breakdown was computed for.
type Metric struct {
	Name    string   `json:"name"              yaml:"name"`
	Dataset *Dataset `json:"dataset,omitempty" yaml:"dataset,omitempty"`
}

// Payload is the breakdown pair served by the heatmap endpoint.
type Payload struct {
	Metric   *Metric `json:"metric,omitempty" yaml:"metric,omitempty"`
	Current  Window  `json:"current"          yaml:"current"`
	Baseline Window  `json:"baseline"         yaml:"baseline"`
}

// Columns returns the dimension columns in ascending order.
func (b Breakdown) Columns() []string {
	if b == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(b))
}

// Values returns the dimension values of column in ascending order.
// Returns nil when the column is absent.
func (b Breakdown) Values(column string) []string {
	counts, ok := b[column]
	if !ok {
		return nil
	}

	return slices.Sorted(maps.Keys(counts))
}

// Clone returns a deep copy of b. Nil inner maps are preserved as nil.
func (b Breakdown) Clone() Breakdown {
	if b == nil {
		return nil
	}

	clone := make(Breakdown, len(b))

	for column, counts := range b {
		clone[column] = maps.Clone(counts)
	}

	return clone
}

// Align returns a copy of p in which every (column, value) pair observed in
// one window is present in the other, with a count of 0 when it was missing.
// p itself is not modified.
func Align(p Payload) Payload {
	current := p.Current.Breakdown.Clone()
	baseline := p.Baseline.Breakdown.Clone()

	current = fillMissingWithZeroes(baseline, current)
	baseline = fillMissingWithZeroes(current, baseline)

	return Payload{
		Metric:   p.Metric,
		Current:  Window{Breakdown: current},
		Baseline: Window{Breakdown: baseline},
	}
}

// fillMissingWithZeroes inserts into to every key present in from but absent in to.
func fillMissingWithZeroes(from, to Breakdown) Breakdown {
	if to == nil && len(from) > 0 {
		to = make(Breakdown, len(from))
	}

	for column, fromCounts := range from {
		toCounts := to[column]
		if toCounts == nil {
			toCounts = make(map[string]float64, len(fromCounts))
			to[column] = toCounts
		}

		for value := range fromCounts {
			if _, ok := toCounts[value]; !ok {
				toCounts[value] = 0
			}
		}
	}

	return to
}
