package plotpage

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"

	"github.com/Sumatoshi-tech/dimlens/pkg/heatmap"
)

const (
	pageDescription = "Current window compared against the baseline, one treemap per dimension."
	tileSubtitle    = "Tile size = current count. Label = change against baseline."
	contribTitle    = "Top contributors"
	contribSubtitle = "Dimension values ordered by how far their share of the metric moved."
)

// ComparisonPage describes an HTML report for one comparison.
type ComparisonPage struct {
	Title        string
	Theme        Theme
	Height       int
	Formatter    heatmap.Formatter
	Comparison   []heatmap.ComparisonByColumn
	Contributors []heatmap.Contributor
}

// Build assembles the page: a contributor table when contributors are set,
// then one treemap section per column.
func (cp ComparisonPage) Build() *Page {
	page := NewPage(cp.Title, pageDescription)
	page.Theme = cp.Theme

	co := NewChartOpts(cp.Theme)
	height := strconv.Itoa(cp.Height) + "px"

	if len(cp.Contributors) > 0 {
		page.Add(Section{
			Title:    contribTitle,
			Subtitle: contribSubtitle,
			Chart:    ContributorTable{Contributors: cp.Contributors, Formatter: cp.Formatter},
		})
	}

	for _, c := range cp.Comparison {
		nodes := cp.Formatter.ToTreeNodes(c.DimensionComparisonData, c.Column)

		page.Add(Section{
			Title:    c.Column,
			Subtitle: tileSubtitle,
			Chart:    chartFragment{chart: BuildTreeMap(co, c.Column, "", height, nodes)},
		})
	}

	return page
}

// Render builds and writes the page.
func (cp ComparisonPage) Render(w io.Writer) error {
	return cp.Build().Render(w)
}

type chartFragment struct {
	chart *charts.TreeMap
}

func (cf chartFragment) Render(w io.Writer) error {
	err := cf.chart.Render(w)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	return nil
}

// ContributorTable renders ranked contributors as an HTML table.
type ContributorTable struct {
	Contributors []heatmap.Contributor
	Formatter    heatmap.Formatter
}

type contributorRow struct {
	Column           string
	Value            string
	Current          string
	Baseline         string
	Change           string
	ContributionDiff string
	ZScore           string
	Class            string
}

// Render implements Renderable.
func (ct ContributorTable) Render(w io.Writer) error {
	digits := ct.Formatter.LabelDigits
	if digits <= 0 {
		digits = heatmap.DefaultLabelDigits
	}

	rows := make([]contributorRow, 0, len(ct.Contributors))

	for _, c := range ct.Contributors {
		row := contributorRow{
			Column:           c.Column,
			Value:            ct.Formatter.DisplayValue(c.Value),
			Current:          heatmap.HumanCount(c.Entry.Current, digits),
			Baseline:         heatmap.HumanCount(c.Entry.Baseline, digits),
			Change:           "n/a",
			ContributionDiff: fmt.Sprintf("%+.2f pp", c.Entry.ContributionDiff*100),
			ZScore:           fmt.Sprintf("%.2f", c.ZScore),
		}

		if pct := c.Entry.MetricValueDiffPercentage; pct != nil {
			row.Change = fmt.Sprintf("%+.2f%%", *pct)
		}

		switch {
		case c.Entry.ContributionDiff > 0:
			row.Class = "up"
		case c.Entry.ContributionDiff < 0:
			row.Class = "down"
		}

		rows = append(rows, row)
	}

	return renderTemplate(w, "contributors.html", rows)
}
