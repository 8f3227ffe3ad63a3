package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/dimlens/pkg/heatmap"
)

const (
	percentScale  = 100
	notApplicable = "n/a"
	msgNoColumns  = "No dimension columns to compare"
)

// TableOptions controls terminal rendering.
type TableOptions struct {
	Formatter heatmap.Formatter
	NoColor   bool
}

type palette struct {
	up     *color.Color
	down   *color.Color
	header *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		up:     color.New(color.FgGreen),
		down:   color.New(color.FgRed),
		header: color.New(color.Bold),
	}

	for _, c := range []*color.Color{p.up, p.down, p.header} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}

	return p
}

func (p palette) signed(v float64, text string) string {
	switch {
	case v > 0:
		return p.up.Sprint(text)
	case v < 0:
		return p.down.Sprint(text)
	default:
		return text
	}
}

// WriteTable writes one table per column, then the contributor ranking if present.
func WriteTable(w io.Writer, res Result, opts TableOptions) error {
	pal := newPalette(opts.NoColor)

	var sb strings.Builder

	if res.Metric != nil && res.Metric.Name != "" {
		sb.WriteString(pal.header.Sprintf("Metric: %s", res.Metric.Name))
		sb.WriteString("\n\n")
	}

	if len(res.Columns) == 0 {
		sb.WriteString(msgNoColumns)
		sb.WriteString("\n")
	}

	for _, c := range res.Columns {
		sb.WriteString(columnTable(c, opts.Formatter, pal))
		sb.WriteString("\n\n")
	}

	if len(res.Contributors) > 0 {
		sb.WriteString(contributorTable(res.Contributors, opts.Formatter, pal))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return nil
}

func newTable(title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(title)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

func columnTable(c heatmap.ComparisonByColumn, f heatmap.Formatter, pal palette) string {
	tbl := newTable(c.Column)
	tbl.AppendHeader(table.Row{
		"Value", "Current", "Baseline", "Change", "Change %",
		"Contrib (cur)", "Contrib (base)", "Contrib diff",
	})

	values := make([]string, 0, len(c.DimensionComparisonData))
	for value := range c.DimensionComparisonData {
		values = append(values, value)
	}

	slices.Sort(values)

	var currentTotal, baselineTotal float64

	for _, value := range values {
		e := c.DimensionComparisonData[value]
		currentTotal, baselineTotal = e.CurrentTotalCount, e.BaselineTotalCount

		tbl.AppendRow(table.Row{
			f.DisplayValue(value),
			humanize.Commaf(e.Current),
			humanize.Commaf(e.Baseline),
			pal.signed(e.MetricValueDiff, signedComma(e.MetricValueDiff)),
			pal.signed(e.MetricValueDiff, changePercent(e.MetricValueDiffPercentage)),
			percent(e.CurrentContributionPercentage),
			percent(e.BaselineContributionPercentage),
			pal.signed(e.ContributionDiff, points(e.ContributionDiff)),
		})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d values", len(values)),
		humanize.Commaf(currentTotal),
		humanize.Commaf(baselineTotal),
	})

	return tbl.Render()
}

func contributorTable(contributors []heatmap.Contributor, f heatmap.Formatter, pal palette) string {
	tbl := newTable("Top contributors")
	tbl.AppendHeader(table.Row{"#", "Column", "Value", "Contrib diff", "z-score", "Change %"})

	for i, c := range contributors {
		tbl.AppendRow(table.Row{
			i + 1,
			c.Column,
			f.DisplayValue(c.Value),
			pal.signed(c.Entry.ContributionDiff, points(c.Entry.ContributionDiff)),
			fmt.Sprintf("%.2f", c.ZScore),
			changePercent(c.Entry.MetricValueDiffPercentage),
		})
	}

	return tbl.Render()
}

func signedComma(v float64) string {
	if v > 0 {
		return "+" + humanize.Commaf(v)
	}

	return humanize.Commaf(v)
}

func changePercent(pct *float64) string {
	if pct == nil {
		return notApplicable
	}

	return fmt.Sprintf("%+.2f%%", *pct)
}

func percent(share float64) string {
	return fmt.Sprintf("%.2f%%", share*percentScale)
}

func points(diff float64) string {
	return fmt.Sprintf("%+.2f pp", diff*percentScale)
}
