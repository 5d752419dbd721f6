package cmd

import (
	"fmt"
	"strconv"

	"github.com/matheuscscp/world-net/config"
	"github.com/matheuscscp/world-net/internal/logging"
	"github.com/matheuscscp/world-net/layers/network"
	pkgnet "github.com/matheuscscp/world-net/pkg/net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	settingsFile string
	logLevel     string
	settings     *config.Settings

	rootCmd = &cobra.Command{
		Use:           "world-net",
		Short:         "world-net simulates the internetwork of a game world",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LoadSettings(settingsFile)
			if err != nil {
				return err
			}
			if logLevel != "" {
				s.Log.Level = logLevel
			}
			if err := logging.Setup(s.Log); err != nil {
				return err
			}
			settings = s
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if settings == nil || settings.Metrics.Textfile == "" {
				return nil
			}
			if err := prometheus.WriteToTextfile(settings.Metrics.Textfile, prometheus.DefaultGatherer); err != nil {
				return fmt.Errorf("error writing metrics textfile: %w", err)
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "settings file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "overrides the log level of the settings")
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logrus.
			WithError(err).
			Error("command failed")
		return err
	}
	return nil
}

// deviceInterface finds a device by name or, failing that, by numeric
// ID and returns its interface.
func deviceInterface(sim *network.NetworkSimulation, device string) (*network.NetworkInterface, error) {
	if d, ok := sim.DeviceByName(device); ok {
		return sim.Interface(d.ID)
	}
	id, err := strconv.ParseUint(device, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", network.ErrDeviceNotFound, device)
	}
	return sim.Interface(network.DeviceID(id))
}

// loadProbeTarget loads the topology and resolves the device and the
// address arguments shared by the probing commands.
func loadProbeTarget(args []string) (*network.NetworkInterface, pkgnet.Address, error) {
	sim, err := network.NewSimulationFromConfigFile(args[0])
	if err != nil {
		return nil, 0, err
	}
	intf, err := deviceInterface(sim, args[1])
	if err != nil {
		return nil, 0, err
	}
	target, err := pkgnet.ParseAddress(args[2])
	if err != nil {
		return nil, 0, err
	}
	return intf, target, nil
}

// describe renders a node with the names of the entities behind it.
func describe(sim *network.NetworkSimulation, node network.WebNode) string {
	switch node.Kind {
	case network.WebNodeDevice:
		if d, ok := sim.Device(node.Device); ok {
			n, _ := sim.Network(d.Network)
			return fmt.Sprintf("%s (%s in %s)", node, d.Name, n.Name)
		}
	case network.WebNodeNetwork:
		if n, ok := sim.Network(node.Network); ok {
			return fmt.Sprintf("%s (%s)", node, n.Name)
		}
	}
	return node.String()
}
