package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve without system zoneinfo

	"github.com/profillogger/profillogger/pkg/profillog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds all configuration for profillogger
type Config struct {
	// Dispatcher threshold (DEBUG, INFO, WARNING, ERROR, CRITICAL)
	Level string `mapstructure:"level"`

	// Side-channel diagnostics
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // text, json

	// Storage handlers, in dispatch order
	Handlers []profillog.HandlerConfig `mapstructure:"handlers"`

	// Name of the handler queried by the reader commands (default: first handler)
	ReaderHandler string `mapstructure:"reader_handler"`

	// Time zone for month grouping (IANA name, "UTC" or "Local")
	Timezone string `mapstructure:"timezone"`
	location *time.Location

	// Metrics
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig defines metrics configuration
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	Print     bool   `mapstructure:"print"`
}

// Load loads configuration from various sources
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Bind command line flags
	if err := bindFlags(cmd, v); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	// Read from config file if specified
	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Read from environment variables
	v.SetEnvPrefix("PROFILLOGGER")
	v.AutomaticEnv()

	// Unmarshal configuration
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Handlers given on the command line come after the configured ones
	if specs, err := cmd.Flags().GetStringArray("handler"); err == nil {
		for _, spec := range specs {
			hc, err := ParseHandlerSpec(spec)
			if err != nil {
				return nil, err
			}
			cfg.Handlers = append(cfg.Handlers, hc)
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("level", "DEBUG")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("reader_handler", "")
	v.SetDefault("timezone", "UTC")

	// Metrics defaults
	v.SetDefault("metrics.namespace", "profillogger")
	v.SetDefault("metrics.print", false)
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := map[string]string{
		"level":         "level",
		"log-level":     "log_level",
		"log-format":    "log_format",
		"reader":        "reader_handler",
		"timezone":      "timezone",
		"print-metrics": "metrics.print",
	}

	for flag, key := range flags {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}

	return nil
}

// ParseHandlerSpec parses a "type=path" or "type=path#table" handler flag
func ParseHandlerSpec(spec string) (profillog.HandlerConfig, error) {
	typ, path, ok := strings.Cut(spec, "=")
	if !ok || typ == "" || path == "" {
		return profillog.HandlerConfig{}, fmt.Errorf("invalid handler %q: expected type=path", spec)
	}

	hc := profillog.HandlerConfig{Type: strings.ToLower(typ), Path: path}
	if hc.Type == string(profillog.HandlerTypeSQLite) {
		if p, table, found := strings.Cut(path, "#"); found {
			hc.Path, hc.Table = p, table
		}
	}
	return hc, nil
}

// validate leaves Level unchecked: an unknown threshold is ignored by
// Logger.SetLevel, which keeps the previous one.
func validate(cfg *Config) error {
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be 'text' or 'json')", cfg.LogFormat)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	if len(cfg.Handlers) == 0 {
		return fmt.Errorf("at least one handler is required: specify via --handler type=path or the handlers config key")
	}

	names := make(map[string]bool, len(cfg.Handlers))
	for i := range cfg.Handlers {
		hc := &cfg.Handlers[i]
		defaultName := hc.Name == ""
		if err := profillog.ValidateHandlerConfig(hc); err != nil {
			return fmt.Errorf("handler %d: %w", i, err)
		}
		if names[hc.Name] {
			if !defaultName {
				return fmt.Errorf("duplicate handler name: %s", hc.Name)
			}
			// Default names repeat when a type is used twice
			hc.Name = fmt.Sprintf("%s-%d", hc.Name, i)
		}
		names[hc.Name] = true
	}

	if cfg.ReaderHandler != "" && !names[cfg.ReaderHandler] {
		return fmt.Errorf("reader_handler %q does not name a configured handler", cfg.ReaderHandler)
	}

	return nil
}

// Location returns the time zone used for month grouping
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// ReaderHandlerIndex returns the position of the handler used for queries
func (c *Config) ReaderHandlerIndex() int {
	for i, hc := range c.Handlers {
		if hc.Name == c.ReaderHandler {
			return i
		}
	}
	return 0
}
