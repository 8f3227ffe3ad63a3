package heatmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/dimlens/pkg/breakdown"
	"github.com/Sumatoshi-tech/dimlens/pkg/heatmap"
)

func browserBreakdowns() (current, baseline breakdown.Breakdown) {
	current = breakdown.Breakdown{
		"browser": {"chrome": 547246, "safari": 218694, "edge": 42},
		"country": {"us": 700000, "": 107982},
	}
	baseline = breakdown.Breakdown{
		"browser": {"chrome": 360666, "safari": 216624},
	}

	return current, baseline
}

func TestCompare_ChromeExample(t *testing.T) {
	t.Parallel()

	current, baseline := browserBreakdowns()

	cmps := heatmap.Compare(current, baseline, nil)
	require.Len(t, cmps, 2)
	assert.Equal(t, "browser", cmps[0].Column)
	assert.Equal(t, "country", cmps[1].Column)

	chrome := cmps[0].DimensionComparisonData["chrome"]

	assert.InDelta(t, 547246, chrome.Current, floatDelta)
	assert.InDelta(t, 360666, chrome.Baseline, floatDelta)
	assert.InDelta(t, 186580, chrome.MetricValueDiff, floatDelta)
	require.NotNil(t, chrome.MetricValueDiffPercentage)
	assert.InDelta(t, 51.73, *chrome.MetricValueDiffPercentage, 0.01)
	assert.InDelta(t, 547246+218694+42, chrome.CurrentTotalCount, floatDelta)
	assert.InDelta(t, 360666+216624, chrome.BaselineTotalCount, floatDelta)
	assert.InDelta(t,
		chrome.CurrentContributionPercentage-chrome.BaselineContributionPercentage,
		chrome.ContributionDiff, floatDelta)
}

func TestCompare_MissingBaselineValue(t *testing.T) {
	t.Parallel()

	current, baseline := browserBreakdowns()

	cmps := heatmap.Compare(current, baseline, nil)
	edge := cmps[0].DimensionComparisonData["edge"]

	assert.Zero(t, edge.Baseline)
	assert.Zero(t, edge.BaselineContributionPercentage)
	assert.Nil(t, edge.MetricValueDiffPercentage)
	assert.InDelta(t, 42, edge.MetricValueDiff, floatDelta)
}

func TestCompare_MissingBaselineColumn(t *testing.T) {
	t.Parallel()

	current, baseline := browserBreakdowns()

	cmps := heatmap.Compare(current, baseline, nil)
	country := cmps[1].DimensionComparisonData

	require.Len(t, country, 2)

	for _, entry := range country {
		assert.Zero(t, entry.Baseline)
		assert.Zero(t, entry.BaselineTotalCount)
		assert.Nil(t, entry.MetricValueDiffPercentage)
	}
}

func TestCompare_Invariants(t *testing.T) {
	t.Parallel()

	current, baseline := browserBreakdowns()

	for _, c := range heatmap.Compare(current, baseline, nil) {
		for value, entry := range c.DimensionComparisonData {
			assert.InDelta(t, entry.Current-entry.Baseline, entry.MetricValueDiff, floatDelta, value)
			assert.Equal(t, entry.Baseline == 0, entry.MetricValueDiffPercentage == nil, value)
		}
	}
}

func TestCompare_ZeroCurrentColumn(t *testing.T) {
	t.Parallel()

	cmps := heatmap.Compare(
		breakdown.Breakdown{"os": {"linux": 0}},
		breakdown.Breakdown{"os": {"linux": 10}},
		nil,
	)

	require.Len(t, cmps, 1)
	assert.Empty(t, cmps[0].DimensionComparisonData)
}

func TestCompare_ColumnOrder(t *testing.T) {
	t.Parallel()

	current, baseline := browserBreakdowns()

	cmps := heatmap.Compare(current, baseline, []string{"missing", "country"})
	require.Len(t, cmps, 2)
	assert.Equal(t, "country", cmps[0].Column)
	assert.Equal(t, "browser", cmps[1].Column)
}

func TestCompare_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	current, baseline := browserBreakdowns()
	wantCurrent, wantBaseline := current.Clone(), baseline.Clone()

	heatmap.Compare(current, baseline, []string{"country"})

	assert.Equal(t, wantCurrent, current)
	assert.Equal(t, wantBaseline, baseline)
}

func TestOrderColumns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		columns []string
		order   []string
		want    []string
	}{
		{
			name:    "order first then alphabetical",
			columns: []string{"c", "g", "a", "b", "f", "e", "z", "d"},
			order:   []string{"v", "a", "z"},
			want:    []string{"v", "a", "z", "b", "c", "d", "e", "f", "g"},
		},
		{
			name:    "duplicates in order",
			columns: []string{"b", "a"},
			order:   []string{"b", "b", "a"},
			want:    []string{"b", "a"},
		},
		{
			name:    "empty order",
			columns: []string{"b", "c", "a"},
			order:   nil,
			want:    []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, heatmap.OrderColumns(tt.columns, tt.order))
		})
	}
}
