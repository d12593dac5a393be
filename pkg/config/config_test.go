package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "okura.db", cfg.Database.Path)
	assert.Equal(t, 2.5, cfg.SRS.InitialEase)
	assert.Equal(t, 1.3, cfg.SRS.MinEase)
	assert.Equal(t, 36500, cfg.SRS.MaxInterval)
	assert.Equal(t, 30, cfg.SRS.HeatmapDays)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxBytes)
	assert.False(t, cfg.Dictionary.Offline)
	assert.Equal(t, "data/jmdict-eng.json", cfg.Dictionary.Resolve(cfg.Dictionary.JMdictPath))
	assert.Equal(t, "", cfg.Dictionary.Resolve(cfg.Dictionary.JLPTPath))
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := writeYAML(t, `
server:
  port: 9090
database:
  path: /var/lib/okura/okura.db
log:
  level: debug
  format: text
srs:
  timezone: Asia/Tokyo
dictionary:
  dir: /srv/dict
  jlpt_path: /etc/okura/jlpt.csv
`)
	t.Setenv("SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "/var/lib/okura/okura.db", cfg.Database.Path)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "/srv/dict/cedict_ts.u8", cfg.Dictionary.Resolve(cfg.Dictionary.CEDICTPath))
	assert.Equal(t, "/etc/okura/jlpt.csv", cfg.Dictionary.Resolve(cfg.Dictionary.JLPTPath))

	loc, err := cfg.SRS.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	path := writeYAML(t, "server:\n  port: 7000\n")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad log level", "log:\n  level: verbose\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"ease below floor", "srs:\n  initial_ease: 1.1\n  min_ease: 1.3\n"},
		{"short heatmap", "srs:\n  heatmap_days: 7\n"},
		{"interval cap too large", "srs:\n  max_interval: 400000\n"},
		{"unknown timezone", "srs:\n  timezone: Mars/Olympus\n"},
		{"negative workers", "ingest:\n  workers: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeYAML(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}
