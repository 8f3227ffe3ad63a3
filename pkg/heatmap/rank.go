package heatmap

import (
	"cmp"
	"math"
	"slices"

	"github.com/Sumatoshi-tech/dimlens/pkg/alg/stats"
)

// Contributor is one dimension value ranked by how much its share of the metric moved.
type Contributor struct {
	Column string          `json:"column" yaml:"column"`
	Value  string          `json:"value"  yaml:"value"`
	Entry  ComparisonEntry `json:"entry"  yaml:"entry"`
	ZScore float64         `json:"zScore" yaml:"z_score"`
}

// RankContributors flattens the comparison and orders entries by absolute
// contribution change, largest first. ZScore is computed over the
// contribution changes of all entries. limit <= 0 returns every entry.
func RankContributors(cmps []ComparisonByColumn, limit int) []Contributor {
	var contributors []Contributor

	for _, c := range cmps {
		values := make([]string, 0, len(c.DimensionComparisonData))
		for value := range c.DimensionComparisonData {
			values = append(values, value)
		}

		slices.Sort(values)

		for _, value := range values {
			contributors = append(contributors, Contributor{
				Column: c.Column,
				Value:  value,
				Entry:  c.DimensionComparisonData[value],
			})
		}
	}

	diffs := make([]float64, len(contributors))
	for i, c := range contributors {
		diffs[i] = c.Entry.ContributionDiff
	}

	for i, z := range stats.ZScores(diffs) {
		contributors[i].ZScore = z
	}

	slices.SortStableFunc(contributors, func(a, b Contributor) int {
		if r := cmp.Compare(math.Abs(b.Entry.ContributionDiff), math.Abs(a.Entry.ContributionDiff)); r != 0 {
			return r
		}

		if r := cmp.Compare(a.Column, b.Column); r != 0 {
			return r
		}

		return cmp.Compare(a.Value, b.Value)
	})

	if limit > 0 && len(contributors) > limit {
		contributors = contributors[:limit]
	}

	return contributors
}
