// Package config loads cartograph settings from a YAML file, then applies
// CARTOGRAPH_* environment overrides, then defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	// LibraryRoot is the asset library directory. Empty means the last
	// library recorded in the workspace.
	LibraryRoot string `yaml:"library_root" env:"CARTOGRAPH_LIBRARY"`
	// WorkspaceDB is the SQLite file remembering recent maps and libraries.
	WorkspaceDB string `yaml:"workspace_db" env:"CARTOGRAPH_WORKSPACE_DB"`

	HTTPAddr string `yaml:"http_addr" env:"CARTOGRAPH_HTTP_ADDR"`
	MaxConns int    `yaml:"max_conns" env:"CARTOGRAPH_MAX_CONNS"`
	MCPStdio bool   `yaml:"mcp_stdio" env:"CARTOGRAPH_MCP_STDIO"`

	TickInterval  time.Duration `yaml:"tick_interval" env:"CARTOGRAPH_TICK_INTERVAL"`
	WatchInterval time.Duration `yaml:"watch_interval" env:"CARTOGRAPH_WATCH_INTERVAL"`
	WatchDebounce time.Duration `yaml:"watch_debounce" env:"CARTOGRAPH_WATCH_DEBOUNCE"`

	// AbsolutePaths writes loadable identifiers instead of library-relative
	// paths into saved maps.
	AbsolutePaths bool `yaml:"absolute_paths" env:"CARTOGRAPH_ABSOLUTE_PATHS"`
	Workers       int  `yaml:"workers" env:"CARTOGRAPH_WORKERS"`
	EventBuffer   int  `yaml:"event_buffer" env:"CARTOGRAPH_EVENT_BUFFER"`

	LogLevel string `yaml:"log_level" env:"CARTOGRAPH_LOG_LEVEL"`
}

// Load reads path (skipped when empty), applies environment overrides and
// fills defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.WorkspaceDB == "" {
		c.WorkspaceDB = "cartograph.db"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = "127.0.0.1:7420"
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 64
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 50 * time.Millisecond
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = 2 * time.Second
	}
	if c.WatchDebounce <= 0 {
		c.WatchDebounce = 500 * time.Millisecond
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 256
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Level maps LogLevel to a slog level. Unknown names are an error.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: unknown log level %q", c.LogLevel)
}
