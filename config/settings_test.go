package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheuscscp/world-net/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := config.LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, "info", s.Log.Level)
	assert.Equal(t, "text", s.Log.Format)
	assert.Nil(t, s.Log.File)
	assert.Empty(t, s.Metrics.Textfile)
	assert.Equal(t, config.DefaultHopLatency, s.Probe.HopLatency)
}

func TestLoadSettingsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
log:
  level: debug
  format: json
  file:
    filename: /tmp/world-net.log
    max_size: 10
metrics:
  textfile: /tmp/world-net.prom
probe:
  hop_latency: 40ms
`), 0o644))

	s, err := config.LoadSettings(file)
	require.NoError(t, err)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "json", s.Log.Format)
	require.NotNil(t, s.Log.File)
	assert.Equal(t, "/tmp/world-net.log", s.Log.File.Filename)
	assert.Equal(t, 10, s.Log.File.MaxSize)
	assert.Equal(t, "/tmp/world-net.prom", s.Metrics.Textfile)
	assert.Equal(t, 40*time.Millisecond, s.Probe.HopLatency)
}

func TestLoadSettingsEnv(t *testing.T) {
	t.Setenv("WORLD_NET_LOG_LEVEL", "warn")
	t.Setenv("WORLD_NET_PROBE_HOP_LATENCY", "1s")

	s, err := config.LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, "warn", s.Log.Level)
	assert.Equal(t, time.Second, s.Probe.HopLatency)
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := config.LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestYAMLFileRoundTrip(t *testing.T) {
	t.Parallel()

	type doc struct {
		Name  string   `yaml:"name"`
		Items []string `yaml:"items"`
	}
	file := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, config.MarshalYAMLAndWriteFile(file, &doc{Name: "a", Items: []string{"b", "c"}}))

	var d doc
	require.NoError(t, config.ReadYAMLFileAndUnmarshal(file, &d))
	assert.Equal(t, doc{Name: "a", Items: []string{"b", "c"}}, d)
}
