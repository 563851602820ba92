package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings shared by every command: where the
// database lives and which session the commands act for.
type Config struct {
	Database string `yaml:"database" mapstructure:"database"`
	Session  string `yaml:"session" mapstructure:"session"`
	Format   string `yaml:"format" mapstructure:"format"`
	Verbose  bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the configuration used when no config file or
// environment overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Database: "engram.db",
		Session:  "default",
		Format:   "text",
	}
}

// Load reads the configuration from config.yaml (current directory,
// then XDG config, then ~/.config/engram) with ENGRAM_* environment
// overrides. Missing config files are fine; defaults apply.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Register every key so environment-only overrides are visible to
	// Unmarshal even without a config file.
	v.SetDefault("database", cfg.Database)
	v.SetDefault("session", cfg.Session)
	v.SetDefault("format", cfg.Format)
	v.SetDefault("verbose", cfg.Verbose)

	v.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "engram"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "engram"))
	}

	v.SetEnvPrefix("ENGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file; defaults and environment apply.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("config: database is required")
	}
	if c.Session == "" {
		return fmt.Errorf("config: session is required")
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: format %q must be text or json", c.Format)
	}
	return nil
}
