// Package config provides configuration loading and validation for dimlens.
package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/dimlens/pkg/heatmap"
)

// Sentinel validation errors.
var (
	ErrInvalidPort        = errors.New("invalid server port")
	ErrInvalidBodyLimit   = errors.New("server max body bytes must be positive")
	ErrInvalidLabelDigits = errors.New("heatmap label digits out of range")
	ErrInvalidLogFormat   = errors.New("unknown logging format")
	ErrInvalidSampleRatio = errors.New("telemetry sample ratio must be within [0, 1]")
	ErrInvalidHeight      = errors.New("render height must be positive")
	ErrInvalidTheme       = errors.New("unknown render theme")
	ErrInvalidCacheSize   = errors.New("invalid server cache size")
)

const (
	envPrefix      = "DIMLENS"
	configName     = "dimlens"
	maxPort        = 65535
	maxLabelDigits = 6
)

// Config holds all configuration for dimlens.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Heatmap   HeatmapConfig   `mapstructure:"heatmap"`
	Render    RenderConfig    `mapstructure:"render"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	Port            int           `mapstructure:"port"`
	// CacheEntries bounds the result cache; 0 disables it.
	CacheEntries int `mapstructure:"cache_entries"`
	// CacheSize bounds the payload bytes held by the result cache, e.g. "64MB".
	CacheSize string `mapstructure:"cache_size"`
}

// CacheBytes parses CacheSize. An empty size means no byte limit.
func (s ServerConfig) CacheBytes() (int64, error) {
	if s.CacheSize == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(s.CacheSize)
	if err != nil || n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCacheSize, s.CacheSize)
	}

	return int64(n), nil
}

// Addr returns the listen address. IPv6 hosts are bracketed.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// JSON reports whether logs are written as JSON.
func (l LoggingConfig) JSON() bool {
	return l.Format == LogFormatJSON
}

// HeatmapConfig holds comparison and labelling defaults.
type HeatmapConfig struct {
	EmptyValueMarker string   `mapstructure:"empty_value_marker"`
	ColumnOrder      []string `mapstructure:"column_order"`
	LabelDigits      int      `mapstructure:"label_digits"`
	TopContributors  int      `mapstructure:"top_contributors"`
	Align            bool     `mapstructure:"align"`
	Strict           bool     `mapstructure:"strict"`
}

// Formatter returns the tree formatter described by the configuration.
func (h HeatmapConfig) Formatter() heatmap.Formatter {
	return heatmap.Formatter{
		EmptyValueMarker: h.EmptyValueMarker,
		LabelDigits:      h.LabelDigits,
	}
}

// RenderConfig holds HTML treemap rendering options.
type RenderConfig struct {
	Theme  string `mapstructure:"theme"`
	Height int    `mapstructure:"height"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	DebugTrace   bool    `mapstructure:"debug_trace"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches the working directory, ./config and /etc/dimlens;
// a missing file there is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/dimlens")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("server.host", DefaultServerHost)
	viperCfg.SetDefault("server.port", DefaultServerPort)
	viperCfg.SetDefault("server.read_timeout", "30s")
	viperCfg.SetDefault("server.write_timeout", "30s")
	viperCfg.SetDefault("server.idle_timeout", "60s")
	viperCfg.SetDefault("server.shutdown_timeout", "10s")
	viperCfg.SetDefault("server.max_body_bytes", DefaultMaxBodyBytes)
	viperCfg.SetDefault("server.cache_entries", DefaultCacheEntries)
	viperCfg.SetDefault("server.cache_size", DefaultCacheSize)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", LogFormatText)

	viperCfg.SetDefault("heatmap.empty_value_marker", heatmap.DefaultEmptyValueMarker)
	viperCfg.SetDefault("heatmap.label_digits", heatmap.DefaultLabelDigits)
	viperCfg.SetDefault("heatmap.column_order", []string{})
	viperCfg.SetDefault("heatmap.top_contributors", DefaultTopContributors)
	viperCfg.SetDefault("heatmap.align", false)
	viperCfg.SetDefault("heatmap.strict", false)

	viperCfg.SetDefault("render.theme", DefaultRenderTheme)
	viperCfg.SetDefault("render.height", DefaultRenderHeight)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.debug_trace", false)
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, config.Server.Port)
	}

	if config.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBodyLimit, config.Server.MaxBodyBytes)
	}

	if config.Server.CacheEntries < 0 {
		return fmt.Errorf("%w: %d entries", ErrInvalidCacheSize, config.Server.CacheEntries)
	}

	_, cacheErr := config.Server.CacheBytes()
	if cacheErr != nil {
		return cacheErr
	}

	if config.Heatmap.LabelDigits < 0 || config.Heatmap.LabelDigits > maxLabelDigits {
		return fmt.Errorf("%w: %d", ErrInvalidLabelDigits, config.Heatmap.LabelDigits)
	}

	switch config.Logging.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, config.Telemetry.SampleRatio)
	}

	switch config.Render.Theme {
	case ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTheme, config.Render.Theme)
	}

	if config.Render.Height <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHeight, config.Render.Height)
	}

	return nil
}
