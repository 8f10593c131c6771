package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beentity/internal/steps"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":memory:", cfg.Database)
	assert.Equal(t, steps.CommitPerBatch, cfg.Mode())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "beentity.yaml", `
database: fixtures.db
schema_dir: schema
commit_mode: row
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fixtures.db", cfg.Database)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "schema"), cfg.SchemaDir)
	assert.Equal(t, steps.CommitPerRow, cfg.Mode())
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "beentity.toml", `
database = "/tmp/fixtures.db"
schema_dir = "/etc/beentity/schema"
log_level = "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/fixtures.db", cfg.Database)
	assert.Equal(t, "/etc/beentity/schema", cfg.SchemaDir)
	assert.Equal(t, "batch", cfg.CommitMode)
	assert.Equal(t, slog.LevelWarn, cfg.Level())
}

func TestLoad_EmptyYAMLKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "databse: x.db\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "databse = \"x.db\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown key "databse"`)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad commit mode", "c.yaml", "commit_mode: sometimes\n", "invalid commit mode"},
		{"bad log level", "c.toml", "log_level = \"loud\"\n", "invalid log level"},
		{"empty database", "c.yaml", "database: \"\"\n", "database is required"},
		{"unsupported extension", "c.json", "{}", "unsupported extension"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("ERROR")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}
