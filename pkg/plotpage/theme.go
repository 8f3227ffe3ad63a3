// Package plotpage renders comparison treemaps as standalone HTML pages.
package plotpage

import (
	"errors"
	"fmt"
)

// Theme represents a color theme for visualizations.
type Theme string

const (
	// ThemeLight is the light color theme.
	ThemeLight Theme = "light"
	// ThemeDark is the dark color theme.
	ThemeDark Theme = "dark"
)

// ErrUnknownTheme is returned by ParseTheme for names other than light and dark.
var ErrUnknownTheme = errors.New("unknown theme")

// ParseTheme converts a configuration value into a Theme.
func ParseTheme(name string) (Theme, error) {
	switch Theme(name) {
	case ThemeLight, ThemeDark:
		return Theme(name), nil
	case "":
		return ThemeLight, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
}

// ThemeConfig holds theme-specific styling values.
type ThemeConfig struct {
	Background  string
	Surface     string
	Border      string
	TextPrimary string
	TextMuted   string

	// Tile colors for values that grew or shrank against the baseline.
	Increase string
	Decrease string

	ChartBackground string
	ChartBorder     string
	ChartText       string
	ChartTextMuted  string
}

// GetThemeConfig returns the configuration for a given theme.
func GetThemeConfig(theme Theme) ThemeConfig {
	if theme == ThemeDark {
		return darkTheme
	}

	return lightTheme
}

var lightTheme = ThemeConfig{
	Background:  "#fafaf9", // stone-50.
	Surface:     "#ffffff",
	Border:      "#e7e5e4", // stone-200.
	TextPrimary: "#1c1917", // stone-900.
	TextMuted:   "#78716c", // stone-500.

	Increase: "#16a34a", // green-600.
	Decrease: "#dc2626", // red-600.

	ChartBackground: "transparent",
	ChartBorder:     "#ffffff",
	ChartText:       "#44403c", // stone-700.
	ChartTextMuted:  "#78716c",
}

var darkTheme = ThemeConfig{
	Background:  "#0c0a09", // stone-950.
	Surface:     "#1c1917", // stone-900.
	Border:      "#44403c", // stone-700.
	TextPrimary: "#fafaf9",
	TextMuted:   "#a8a29e", // stone-400.

	Increase: "#22c55e", // green-500.
	Decrease: "#ef4444", // red-500.

	ChartBackground: "transparent",
	ChartBorder:     "#1c1917",
	ChartText:       "#d6d3d1", // stone-300.
	ChartTextMuted:  "#a8a29e",
}
