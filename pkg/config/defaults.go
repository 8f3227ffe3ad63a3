package config

// Server defaults.
const (
	DefaultServerHost   = "0.0.0.0"
	DefaultServerPort   = 8080
	DefaultMaxBodyBytes = 8 << 20 // 8 MiB.
	DefaultCacheEntries = 256
	DefaultCacheSize    = "64MB"
)

// Logging formats and defaults.
const (
	LogFormatText   = "text"
	LogFormatJSON   = "json"
	DefaultLogLevel = "info"
)

// Heatmap defaults.
const (
	DefaultTopContributors = 10
)

// Render themes and defaults.
const (
	ThemeLight          = "light"
	ThemeDark           = "dark"
	DefaultRenderTheme  = ThemeLight
	DefaultRenderHeight = 600
)

// Telemetry defaults.
const (
	DefaultSampleRatio = 1.0
)
