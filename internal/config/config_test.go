package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "engram.db", cfg.Database)
	assert.Equal(t, "default", cfg.Session)
	assert.Equal(t, "text", cfg.Format)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing database", func(c *Config) { c.Database = "" }, "database is required"},
		{"missing session", func(c *Config) { c.Session = "" }, "session is required"},
		{"bad format", func(c *Config) { c.Format = "xml" }, "must be text or json"},
		{"json format ok", func(c *Config) { c.Format = "json" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ENGRAM_DATABASE", "/tmp/override.db")
	t.Setenv("ENGRAM_SESSION", "agent-7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Database)
	assert.Equal(t, "agent-7", cfg.Session)
}
