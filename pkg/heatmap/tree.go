package heatmap

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

// Formatter defaults.
const (
	DefaultEmptyValueMarker = "<EMPTY_VALUE>"
	DefaultLabelDigits      = 1
)

const (
	parentSuffix  = "-parent"
	minTileSize   = 1
	fullIncrease  = " (100.00%)"
	labelSepValue = ": "
)

// Formatter turns a column comparison into treemap nodes.
// A zero-value Formatter uses DefaultEmptyValueMarker and DefaultLabelDigits.
type Formatter struct {
	// EmptyValueMarker replaces empty dimension values in labels.
	EmptyValueMarker string
	// LabelDigits is the number of decimals of abbreviated counts.
	LabelDigits int
}

// DefaultFormatter returns a Formatter with the default marker and digits.
func DefaultFormatter() Formatter {
	return Formatter{
		EmptyValueMarker: DefaultEmptyValueMarker,
		LabelDigits:      DefaultLabelDigits,
	}
}

// ParentID returns the root node id of a column treemap.
func ParentID(columnDisplayName string) string {
	return columnDisplayName + parentSuffix
}

// ToTreeNodes builds the two-level hierarchy for one column: a root node
// followed by one child per dimension value in ascending value order.
func (f Formatter) ToTreeNodes(cmp map[string]ComparisonEntry, columnDisplayName string) []TreeNode {
	rootID := ParentID(columnDisplayName)

	nodes := make([]TreeNode, 0, len(cmp)+1)
	nodes = append(nodes, TreeNode{
		ID:    rootID,
		Label: rootID,
	})

	values := make([]string, 0, len(cmp))
	for value := range cmp {
		values = append(values, value)
	}

	slices.Sort(values)

	for _, value := range values {
		entry := cmp[value]

		size := entry.Current
		if size == 0 {
			size = minTileSize
		}

		parent := rootID

		nodes = append(nodes, TreeNode{
			ID:     value,
			Parent: &parent,
			Size:   size,
			Label:  f.Label(value, entry),
			ExtraData: &NodeData{
				ComparisonEntry: entry,
				ColumnName:      columnDisplayName,
			},
		})
	}

	return nodes
}

// Label renders "<value>: <count>" with the change percentage when one applies.
func (f Formatter) Label(value string, entry ComparisonEntry) string {
	var sb strings.Builder

	sb.WriteString(f.DisplayValue(value))
	sb.WriteString(labelSepValue)
	sb.WriteString(HumanCount(entry.Current, f.digits()))

	switch {
	case entry.MetricValueDiffPercentage != nil:
		fmt.Fprintf(&sb, " (%.2f%%)", *entry.MetricValueDiffPercentage)
	case entry.Baseline == 0 && entry.Current > 0:
		sb.WriteString(fullIncrease)
	}

	return sb.String()
}

// DisplayValue substitutes the empty-value marker for an empty dimension value.
func (f Formatter) DisplayValue(value string) string {
	if value != "" {
		return value
	}

	if f.EmptyValueMarker == "" {
		return DefaultEmptyValueMarker
	}

	return f.EmptyValueMarker
}

func (f Formatter) digits() int {
	if f.LabelDigits <= 0 {
		return DefaultLabelDigits
	}

	return f.LabelDigits
}

// HumanCount abbreviates a count with an SI suffix, rounding the mantissa to
// digits decimals, e.g. 547246 -> "547.2k" and 218694 -> "218.7k". A mantissa
// that rounds up to 1000 moves to the next prefix. Magnitudes below one are
// printed without a suffix.
func HumanCount(v float64, digits int) string {
	if math.Abs(v) < 1 {
		return humanize.FtoaWithDigits(roundTo(v, digits), digits)
	}

	mantissa, prefix := humanize.ComputeSI(v)
	scale := math.Pow(10, math.Round(math.Log10(v/mantissa)))

	mantissa = roundTo(mantissa, digits)
	if math.Abs(mantissa) >= 1000 {
		mantissa, prefix = humanize.ComputeSI(mantissa * scale)
		mantissa = roundTo(mantissa, digits)
	}

	return humanize.FtoaWithDigits(mantissa, digits) + prefix
}

func roundTo(v float64, digits int) float64 {
	pow := math.Pow(10, float64(max(digits, 0)))

	return math.Round(v*pow) / pow
}

// NodeFilter converts a clicked child node into the filter option it selects.
// The column root selects nothing.
func NodeFilter(column string, node TreeNode) (FilterOption, bool) {
	if node.IsRoot() {
		return FilterOption{}, false
	}

	return FilterOption{Key: column, Value: node.ID}, true
}
