// Package config loads regmetal settings from defaults, an optional
// .regmetal.yaml file and REGMETAL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidVendor      = errors.New("vendor must be a C identifier")
	ErrInvalidMacroPrefix = errors.New("macro prefix must be empty or a C identifier")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidInputSize   = errors.New("invalid max input size")
)

const envPrefix = "REGMETAL"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds all regmetal configuration.
type Config struct {
	Vendor        string              `mapstructure:"vendor"`
	Render        RenderConfig        `mapstructure:"render"`
	Output        OutputConfig        `mapstructure:"output"`
	Input         InputConfig         `mapstructure:"input"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// RenderConfig controls generated text.
type RenderConfig struct {
	MacroPrefix string `mapstructure:"macro_prefix"`
}

// OutputConfig controls where and how files are written.
type OutputConfig struct {
	BSPDir    string `mapstructure:"bsp_dir"`
	MetalDir  string `mapstructure:"metal_dir"`
	Overwrite bool   `mapstructure:"overwrite"`
	ShowDiff  bool   `mapstructure:"show_diff"`
}

// InputConfig bounds input documents.
type InputConfig struct {
	// MaxSize is a human-readable byte size ("64MiB"); "0" disables the limit.
	MaxSize string `mapstructure:"max_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ObservabilityConfig holds telemetry export settings.
type ObservabilityConfig struct {
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string `mapstructure:"otlp_headers"`
	OTLPInsecure    bool   `mapstructure:"otlp_insecure"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
	Environment     string `mapstructure:"environment"`
}

// LoadConfig loads configuration from configPath, or from the first
// .regmetal.yaml found in the search path when configPath is empty.
// A missing file in the search path is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(".regmetal")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/regmetal")
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
	viperCfg.SetDefault("vendor", DefaultVendor)

	viperCfg.SetDefault("render.macro_prefix", DefaultMacroPrefix)

	viperCfg.SetDefault("output.bsp_dir", DefaultBSPDir)
	viperCfg.SetDefault("output.metal_dir", DefaultMetalDir)
	viperCfg.SetDefault("output.overwrite", DefaultOverwrite)
	viperCfg.SetDefault("output.show_diff", DefaultShowDiff)

	viperCfg.SetDefault("input.max_size", DefaultMaxInputSize)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_headers", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.metrics_textfile", "")
	viperCfg.SetDefault("observability.environment", "")
}

func validateConfig(config *Config) error {
	if !identifierPattern.MatchString(config.Vendor) {
		return fmt.Errorf("%w: %q", ErrInvalidVendor, config.Vendor)
	}

	if config.Render.MacroPrefix != "" && !identifierPattern.MatchString(config.Render.MacroPrefix) {
		return fmt.Errorf("%w: %q", ErrInvalidMacroPrefix, config.Render.MacroPrefix)
	}

	if _, err := config.SlogLevel(); err != nil {
		return err
	}

	if _, err := config.MaxInputBytes(); err != nil {
		return err
	}

	return nil
}

// SlogLevel parses Logging.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.Logging.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return level, nil
}

// MaxInputBytes parses Input.MaxSize. Zero means unlimited.
func (c *Config) MaxInputBytes() (uint64, error) {
	if strings.TrimSpace(c.Input.MaxSize) == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(c.Input.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidInputSize, c.Input.MaxSize, err)
	}

	return size, nil
}

// ValidateVendor checks a vendor given outside the config file, such as a flag.
func ValidateVendor(vendor string) error {
	if !identifierPattern.MatchString(vendor) {
		return fmt.Errorf("%w: %q", ErrInvalidVendor, vendor)
	}

	return nil
}
