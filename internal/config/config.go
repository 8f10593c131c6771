// Package config loads beentity settings from a YAML or TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/beentity/internal/steps"
)

// Config holds the settings shared by the CLI commands.
type Config struct {
	// Database is the SQLite path fixtures are written to. ":memory:" gives
	// every run a throwaway database.
	Database string
	// SchemaDir holds CUE entity declarations. Empty means built-in types only.
	SchemaDir string
	// CommitMode is "batch" or "row".
	CommitMode string
	// LogLevel is debug, info, warn or error.
	LogLevel string
}

// fileConfig mirrors the on-disk keys. Pointers tell unset keys apart from
// empty ones.
type fileConfig struct {
	Database   *string `yaml:"database" toml:"database"`
	SchemaDir  *string `yaml:"schema_dir" toml:"schema_dir"`
	CommitMode *string `yaml:"commit_mode" toml:"commit_mode"`
	LogLevel   *string `yaml:"log_level" toml:"log_level"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Database:   ":memory:",
		CommitMode: steps.CommitPerBatch.String(),
		LogLevel:   "info",
	}
}

// Load reads path, chosen by extension: .yaml/.yml or .toml. Keys missing from
// the file keep their defaults. Unknown keys are an error. A relative
// schema_dir is resolved against the file's directory.
func Load(path string) (Config, error) {
	var raw fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	case ".toml":
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
		}
	default:
		return Config{}, fmt.Errorf("load config %s: unsupported extension %q (want .yaml, .yml or .toml)", path, ext)
	}

	cfg := Default()
	if raw.Database != nil {
		cfg.Database = strings.TrimSpace(*raw.Database)
	}
	if raw.SchemaDir != nil {
		cfg.SchemaDir = strings.TrimSpace(*raw.SchemaDir)
		if cfg.SchemaDir != "" && !filepath.IsAbs(cfg.SchemaDir) {
			cfg.SchemaDir = filepath.Join(filepath.Dir(path), cfg.SchemaDir)
		}
	}
	if raw.CommitMode != nil {
		cfg.CommitMode = strings.TrimSpace(*raw.CommitMode)
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.TrimSpace(*raw.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every setting.
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if _, err := steps.ParseCommitMode(c.CommitMode); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Mode returns the parsed commit mode. Call Validate first.
func (c Config) Mode() steps.CommitMode {
	mode, _ := steps.ParseCommitMode(c.CommitMode)
	return mode
}

// Level returns the parsed log level, or info when it is invalid.
func (c Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel parses debug, info, warn or error. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s)
	}
}
