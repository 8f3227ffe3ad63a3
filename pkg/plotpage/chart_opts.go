package plotpage

import "github.com/go-echarts/go-echarts/v2/opts"

const (
	tileBorderWidth = 1
	tileGapWidth    = 1
)

// ChartOpts provides themed chart options.
type ChartOpts struct {
	theme ThemeConfig
}

// NewChartOpts creates ChartOpts for theme.
func NewChartOpts(theme Theme) *ChartOpts {
	return &ChartOpts{theme: GetThemeConfig(theme)}
}

// DefaultChartOpts returns chart options for the light theme.
func DefaultChartOpts() *ChartOpts {
	return NewChartOpts(ThemeLight)
}

// Init returns initialization options with the themed background.
func (c *ChartOpts) Init(width, height string) opts.Initialization {
	return opts.Initialization{
		Width:           width,
		Height:          height,
		BackgroundColor: c.theme.ChartBackground,
	}
}

// Title returns title options with themed text colors.
func (c *ChartOpts) Title(title, subtitle string) opts.Title {
	return opts.Title{
		Title:         title,
		Subtitle:      subtitle,
		Left:          "center",
		TitleStyle:    &opts.TextStyle{Color: c.theme.ChartText},
		SubtitleStyle: &opts.TextStyle{Color: c.theme.ChartTextMuted},
	}
}

// Tooltip returns item tooltip options showing the tile label.
func (c *ChartOpts) Tooltip() opts.Tooltip {
	return opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: "{b}"}
}

// Levels returns the treemap level styling: a bordered column root over flat value tiles.
func (c *ChartOpts) Levels() *[]opts.TreeMapLevel {
	return &[]opts.TreeMapLevel{
		{
			ItemStyle:  &opts.ItemStyle{BorderColor: c.theme.ChartBorder, BorderWidth: tileBorderWidth, GapWidth: tileGapWidth},
			UpperLabel: &opts.UpperLabel{Show: opts.Bool(false)},
		},
		{
			ItemStyle: &opts.ItemStyle{BorderColor: c.theme.ChartBorder, BorderWidth: tileBorderWidth, GapWidth: tileGapWidth},
		},
	}
}
