package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "llhlsd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 6*time.Second, cfg.SegmentDuration())
	assert.Equal(t, time.Second, cfg.PartDuration())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 9000
  rtmp_addr: ":2935"
stream:
  segment_seconds: 4
  part_seconds: 0.5
  window_size: 5
log:
  level: debug
  pretty: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, ":2935", cfg.Server.RTMPAddr)
	// untouched keys keep their defaults
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 5, cfg.Stream.WindowSize)
	assert.Equal(t, 4*time.Second, cfg.SegmentDuration())
	assert.Equal(t, 500*time.Millisecond, cfg.PartDuration())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func TestLoadRejectsBadDurations(t *testing.T) {
	path := writeConfig(t, "stream:\n  segment_seconds: 0\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "stream: [oops\n")
	_, err := Load(path)
	assert.Error(t, err)
}
