package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/matheuscscp/world-net/internal/logging"

	"github.com/spf13/viper"
)

type (
	// Settings are the process-wide settings of the world-net binary.
	// They come from an optional settings file and WORLD_NET_*
	// environment variables, e.g. WORLD_NET_LOG_LEVEL=debug.
	Settings struct {
		Log     logging.Config  `mapstructure:"log"`
		Metrics MetricsSettings `mapstructure:"metrics"`
		Probe   ProbeSettings   `mapstructure:"probe"`
	}

	// MetricsSettings controls the export of the prometheus registry.
	MetricsSettings struct {
		// Textfile is a node-exporter textfile written when the
		// command finishes. Empty disables the export.
		Textfile string `mapstructure:"textfile"`
	}

	// ProbeSettings configures the simulated ping/traceroute tools.
	ProbeSettings struct {
		HopLatency time.Duration `mapstructure:"hop_latency"`
		Capture    string        `mapstructure:"capture"`
	}
)

const (
	EnvPrefix = "WORLD_NET"

	DefaultHopLatency = 15 * time.Millisecond
)

// LoadSettings reads the settings file at path (optional, may be
// empty) and overlays environment variables.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// keys must be known to viper for AutomaticEnv() to reach
	// them through Unmarshal()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatText)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("probe.hop_latency", DefaultHopLatency)
	v.SetDefault("probe.capture", "")

	if path != "" {
		fileExt := filepath.Ext(path)
		v.SetConfigFile(path)
		v.SetConfigType(strings.TrimPrefix(fileExt, "."))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading settings file %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}
	applyDefaults(&s)

	return &s, nil
}

func applyDefaults(s *Settings) {
	if s.Probe.HopLatency <= 0 {
		s.Probe.HopLatency = DefaultHopLatency
	}
}
