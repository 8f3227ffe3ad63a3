// Package heatmap compares a current and a baseline breakdown of a metric by
// dimension and shapes the result for treemap rendering.
//
// The pipeline is Summarize -> Compare -> ToTreeNodes, with
// ExtractFilterOptions reading the same current breakdown. Every function is
// pure: inputs are never modified and outputs share no memory with them.
package heatmap

import "github.com/Sumatoshi-tech/dimlens/pkg/filterset"

// SummaryEntry is a dimension value's share of its column.
type SummaryEntry struct {
	Count      float64 `json:"count"      yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
	TotalCount float64 `json:"totalCount" yaml:"total_count"`
}

// ComparisonEntry holds the current-vs-baseline statistics of one dimension value.
// MetricValueDiffPercentage is nil when the baseline is not positive.
type ComparisonEntry struct {
	Current                        float64  `json:"current"                        yaml:"current"`
	Baseline                       float64  `json:"baseline"                       yaml:"baseline"`
	MetricValueDiff                float64  `json:"metricValueDiff"                yaml:"metric_value_diff"`
	MetricValueDiffPercentage      *float64 `json:"metricValueDiffPercentage"      yaml:"metric_value_diff_percentage"`
	CurrentContributionPercentage  float64  `json:"currentContributionPercentage"  yaml:"current_contribution_percentage"`
	BaselineContributionPercentage float64  `json:"baselineContributionPercentage" yaml:"baseline_contribution_percentage"`
	ContributionDiff               float64  `json:"contributionDiff"               yaml:"contribution_diff"`
	CurrentTotalCount              float64  `json:"currentTotalCount"              yaml:"current_total_count"`
	BaselineTotalCount             float64  `json:"baselineTotalCount"             yaml:"baseline_total_count"`
}

// ComparisonByColumn groups the comparison entries of one dimension column by value.
type ComparisonByColumn struct {
	Column                  string                     `json:"column"                  yaml:"column"`
	DimensionComparisonData map[string]ComparisonEntry `json:"dimensionComparisonData" yaml:"dimension_comparison_data"`
}

// NodeData is attached to every child tree node for tooltip rendering.
type NodeData struct {
	ComparisonEntry `yaml:",inline"`

	ColumnName string `json:"columnName" yaml:"column_name"`
}

// TreeNode is one tile of a column treemap. The root has a nil Parent and no ExtraData.
type TreeNode struct {
	ID        string    `json:"id"                  yaml:"id"`
	Parent    *string   `json:"parent"              yaml:"parent"`
	Size      float64   `json:"size"                yaml:"size"`
	Label     string    `json:"label"               yaml:"label"`
	ExtraData *NodeData `json:"extraData,omitempty" yaml:"extra_data,omitempty"`
}

// IsRoot reports whether n is the column root.
func (n TreeNode) IsRoot() bool {
	return n.Parent == nil
}

// FilterOption is a selectable (dimension column, dimension value) pair.
type FilterOption = filterset.Option
