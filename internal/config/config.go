// Package config provides configuration loading for crashwatch.
//
// Settings come from three layers, later layers winning: built-in defaults,
// an optional config.toml in the config directory, and CRASHWATCH_*
// environment variables. Command-line flags are applied on top by the app
// package. The result is a Config value that is never mutated after startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Default log rotation settings.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Dir returns the crashwatch config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/crashwatch if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "crashwatch"), nil
}

// StateDir returns the directory holding runtime state (PID file, logs).
// Defaults to ~/.crashwatch.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".crashwatch"), nil
}

// LogConfig describes where diagnostics go and how the log file rotates.
type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// fileConfig mirrors config.toml.
type fileConfig struct {
	Channels []string  `mapstructure:"channels"`
	Style    string    `mapstructure:"style"`
	SpoolDir string    `mapstructure:"spool_dir"`
	StateDir string    `mapstructure:"state_dir"`
	Log      LogConfig `mapstructure:"log"`
	Metrics  struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
}

// Config is the resolved startup configuration.
type Config struct {
	Mode     RunMode
	Channels ChannelSet
	Style    Style

	// StateDir holds the PID file on platforms that use one, and the
	// default log file.
	StateDir string
	// SpoolDir is watched for record files by the portable record source.
	SpoolDir string

	Log         LogConfig
	MetricsAddr string

	// DetachedChild is set in the process spawned by silent mode.
	DetachedChild bool
}

// LogFile returns the configured log file, defaulting to StateDir/crashwatch.log.
func (c Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.StateDir, "crashwatch.log")
}

// Load reads config.toml from dir, if present, and overlays CRASHWATCH_*
// environment variables. A missing file is not an error.
func Load(dir string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix("CRASHWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	stateDir, err := StateDir()
	if err != nil {
		return Config{}, err
	}

	v.SetDefault("channels", []string{})
	v.SetDefault("style", "text")
	v.SetDefault("spool_dir", filepath.Join(stateDir, "spool"))
	v.SetDefault("state_dir", stateDir)
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", DefaultMaxSizeMB)
	v.SetDefault("log.max_backups", DefaultMaxBackups)
	v.SetDefault("log.max_age_days", DefaultMaxAgeDays)
	v.SetDefault("log.compress", false)
	v.SetDefault("metrics.addr", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	return fc.resolve()
}

func (fc fileConfig) resolve() (Config, error) {
	cfg := Config{
		Mode:        ModeConsole,
		SpoolDir:    fc.SpoolDir,
		StateDir:    fc.StateDir,
		Log:         fc.Log,
		MetricsAddr: fc.Metrics.Addr,
	}

	for _, name := range fc.Channels {
		if strings.TrimSpace(name) == "" {
			continue
		}
		ch, err := ParseChannel(name)
		if err != nil {
			return Config{}, fmt.Errorf("config channels: %w", err)
		}
		cfg.Channels = cfg.Channels.With(ch)
	}

	style, err := ParseStyle(fc.Style)
	if err != nil {
		return Config{}, fmt.Errorf("config style: %w", err)
	}
	cfg.Style = style

	cfg.Log.MaxSizeMB = valOr(cfg.Log.MaxSizeMB, DefaultMaxSizeMB)
	cfg.Log.MaxBackups = valOr(cfg.Log.MaxBackups, DefaultMaxBackups)
	cfg.Log.MaxAgeDays = valOr(cfg.Log.MaxAgeDays, DefaultMaxAgeDays)

	return cfg, nil
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
