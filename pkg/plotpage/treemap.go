package plotpage

import (
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/dimlens/pkg/heatmap"
)

const (
	treeMapWidth     = "100%"
	treeMapLeafDepth = 1
)

// TreeMapRoots converts the flat node list of one column into echarts nodes.
// Children keep the order of nodes; their names are the node labels.
func TreeMapRoots(nodes []heatmap.TreeNode) []opts.TreeMapNode {
	if len(nodes) == 0 {
		return nil
	}

	var root *opts.TreeMapNode

	children := make([]opts.TreeMapNode, 0, len(nodes)-1)

	for _, node := range nodes {
		if node.IsRoot() {
			root = &opts.TreeMapNode{Name: node.Label}

			continue
		}

		children = append(children, opts.TreeMapNode{
			Name:  node.Label,
			Value: max(1, int(math.Round(node.Size))),
		})
	}

	if root == nil {
		return children
	}

	for _, child := range children {
		root.Value += child.Value
	}

	root.Children = children

	return []opts.TreeMapNode{*root}
}

// BuildTreeMap builds a treemap chart for one column.
func BuildTreeMap(co *ChartOpts, title, subtitle string, height string, nodes []heatmap.TreeNode) *charts.TreeMap {
	if co == nil {
		co = DefaultChartOpts()
	}

	tm := charts.NewTreeMap()
	tm.SetGlobalOptions(
		charts.WithInitializationOpts(co.Init(treeMapWidth, height)),
		charts.WithTitleOpts(co.Title(title, subtitle)),
		charts.WithTooltipOpts(co.Tooltip()),
	)

	tm.AddSeries(title, TreeMapRoots(nodes), charts.WithTreeMapOpts(opts.TreeMapChart{
		Animation:      opts.Bool(true),
		Roam:           opts.Bool(false),
		LeafDepth:      treeMapLeafDepth,
		ColorMappingBy: "value",
		Label:          &opts.Label{Show: opts.Bool(true), Formatter: "{b}"},
		UpperLabel:     &opts.UpperLabel{Show: opts.Bool(false)},
		Levels:         co.Levels(),
		Left:           "1%", Right: "1%", Top: "60", Bottom: "1%",
	}))

	return tm
}
