// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// LegalAI client.
//
// Configuration is read from ~/.legalai/config.toml (or $LEGALAI_DATA_DIR),
// layered over built-in defaults, then environment overrides, then
// validated.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/AnuGuin/LegalAI/internal/util"
)

// Environment variables recognised by ApplyEnvOverrides.
const (
	EnvAPIURL    = "LEGALAI_API_URL"
	EnvDataDir   = "LEGALAI_DATA_DIR"
	EnvLogLevel  = "LEGALAI_LOG_LEVEL"
	EnvRateLimit = "LEGALAI_RATE_LIMIT"
)

// DefaultAPIURL is the backend used when nothing else is configured.
const DefaultAPIURL = "http://localhost:5000"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete client configuration.
type Config struct {
	Version string `toml:"version"`

	// DataDir holds the session file, cache database and logs.
	DataDir string `toml:"data_dir"`

	API    APIConfig    `toml:"api"`
	Reveal RevealConfig `toml:"reveal"`
	UI     UIConfig     `toml:"ui"`
	Log    LogConfig    `toml:"log"`
	Cache  CacheConfig  `toml:"cache"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	// BaseURL of the backend. A trailing "/api" is stripped when used.
	BaseURL string `toml:"base_url"`

	// RateLimit caps outgoing requests per second. 0 disables throttling.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`

	UserAgent string `toml:"user_agent"`
}

// RevealConfig configures the response reveal animation.
type RevealConfig struct {
	BatchSize  int `toml:"batch_size"`
	IntervalMs int `toml:"interval_ms"`
}

// Interval returns the tick interval as a duration.
func (r RevealConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMs) * time.Millisecond
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	SidebarWidth   int    `toml:"sidebar_width"`
	Markdown       bool   `toml:"markdown"`
	ShowTimestamps bool   `toml:"show_timestamps"`
	TargetLang     string `toml:"target_lang"`
	NoColor        bool   `toml:"no_color"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
	// File defaults to <data_dir>/logs/legalai.log.
	File string `toml:"file"`
}

// CacheConfig configures the local history cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:   DefaultAPIURL,
			RateBurst: 1,
			UserAgent: "legalai-cli/0.1",
		},
		Reveal: RevealConfig{
			BatchSize:  3,
			IntervalMs: 60,
		},
		UI: UIConfig{
			SidebarWidth: 28,
			Markdown:     true,
			TargetLang:   "en",
		},
		Log: LogConfig{
			Level: "info",
		},
		Cache: CacheConfig{
			Enabled: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// DefaultDataDir returns $LEGALAI_DATA_DIR or ~/.legalai.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".legalai"), nil
}

// DefaultPath returns the path of the TOML config file.
func DefaultPath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// SessionPath returns the path of the persisted session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}

// CachePath returns the path of the history cache database.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(c.DataDir, "cache.db")
}

// LogPath returns the path of the log file.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, "logs", "legalai.log")
}

// HistoryPath returns the path of the REPL line history.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "chat_history")
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads configuration from the default path. A missing file is not an
// error: defaults plus environment overrides are returned.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from the given TOML file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, errors.Wrapf(err, "decode %s", path)
		}
		if cfg.DataDir == "" {
			cfg.DataDir = filepath.Dir(path)
		}
	} else if !os.IsNotExist(statErr) {
		return nil, errors.Wrapf(statErr, "stat %s", path)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// Save writes the configuration as TOML.
// SECURITY: Config files are written 0600 (owner read/write only).
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# LegalAI client configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(err, "encode config")
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// String returns the configuration encoded as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config encode error: %v>", err)
	}
	return buf.String()
}

// SetDefaults fills zero values that have no meaningful zero.
func (c *Config) SetDefaults() error {
	if c.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIURL
	}
	if c.API.RateBurst <= 0 {
		c.API.RateBurst = 1
	}
	if c.Reveal.BatchSize == 0 {
		c.Reveal.BatchSize = 3
	}
	if c.Reveal.IntervalMs == 0 {
		c.Reveal.IntervalMs = 60
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = 28
	}
	if c.UI.TargetLang == "" {
		c.UI.TargetLang = "en"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return nil
}

// ApplyEnvOverrides applies LEGALAI_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvRateLimit); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.API.RateLimit = rps
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

// Validate validates the configuration and returns ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL %q, must be an absolute http(s) URL", c.API.BaseURL),
		})
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "api.rate_limit", Message: "must not be negative"})
	}
	if c.Reveal.BatchSize < 1 {
		errs = append(errs, ValidationError{Field: "reveal.batch_size", Message: "must be at least 1"})
	}
	if c.Reveal.IntervalMs < 1 || c.Reveal.IntervalMs > 5000 {
		errs = append(errs, ValidationError{Field: "reveal.interval_ms", Message: "must be between 1 and 5000"})
	}
	if c.UI.SidebarWidth < 10 || c.UI.SidebarWidth > 80 {
		errs = append(errs, ValidationError{Field: "ui.sidebar_width", Message: "must be between 10 and 80"})
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level %q", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
