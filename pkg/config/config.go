// Package config provides configuration loading and validation for almanac.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidSeedMode  = errors.New("invalid seed mode")
	ErrInvalidFormat    = errors.New("invalid output format")
	ErrInvalidWorkers   = errors.New("workers must not be negative")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrInvalidRatio     = errors.New("sample ratio must be within [0, 1]")
	ErrEmptyUnit        = errors.New("chain units must not be empty")
)

// Seed modes.
const (
	// SeedModePoints maps every seed number on its own.
	SeedModePoints = "points"
	// SeedModeRanges reads the seeds as start/length pairs.
	SeedModeRanges = "ranges"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// envPrefix is the prefix for environment overrides, e.g. ALMANAC_SOLVE_WORKERS.
const envPrefix = "ALMANAC"

// Config holds all configuration for almanac.
type Config struct {
	Input     InputConfig     `mapstructure:"input"`
	Solve     SolveConfig     `mapstructure:"solve"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// InputConfig describes how the almanac file is read.
type InputConfig struct {
	Path     string `mapstructure:"path"`
	SeedMode string `mapstructure:"seed_mode"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// SolveConfig holds evaluation settings.
type SolveConfig struct {
	Format  string `mapstructure:"format"`
	Workers int    `mapstructure:"workers"`
	Trace   bool   `mapstructure:"trace"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	DumpMetrics  bool    `mapstructure:"dump_metrics"`
}

// SlogLevel converts the configured level name.
func (lc LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(lc.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, lc.Level)
	}

	return level, nil
}

// LoadConfig loads configuration from file and environment variables. An
// empty configPath searches the working directory and $HOME/.config/almanac
// for almanac.yaml and tolerates its absence.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	return load(viperCfg, configPath)
}

// LoadWith is LoadConfig on a caller-provided viper instance, so command
// flags bound to it take precedence over file and environment values.
func LoadWith(viperCfg *viper.Viper, configPath string) (*Config, error) {
	return load(viperCfg, configPath)
}

func load(viperCfg *viper.Viper, configPath string) (*Config, error) {
	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("almanac")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME/.config/almanac")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(readErr, &notFoundErr) {
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

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("input.path", "")
	viperCfg.SetDefault("input.seed_mode", DefaultSeedMode)
	viperCfg.SetDefault("input.from", DefaultFromUnit)
	viperCfg.SetDefault("input.to", DefaultToUnit)

	viperCfg.SetDefault("solve.format", DefaultFormat)
	viperCfg.SetDefault("solve.workers", DefaultWorkers)
	viperCfg.SetDefault("solve.trace", false)
	viperCfg.SetDefault("solve.no_color", false)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
	viperCfg.SetDefault("telemetry.dump_metrics", false)
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	switch config.Input.SeedMode {
	case SeedModePoints, SeedModeRanges:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSeedMode, config.Input.SeedMode)
	}

	if config.Input.From == "" || config.Input.To == "" {
		return ErrEmptyUnit
	}

	switch config.Solve.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, config.Solve.Format)
	}

	if config.Solve.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Solve.Workers)
	}

	if _, err := config.Logging.SlogLevel(); err != nil {
		return err
	}

	switch config.Logging.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidRatio, config.Telemetry.SampleRatio)
	}

	return nil
}
