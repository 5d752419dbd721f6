package cmd

import (
	"fmt"

	"github.com/matheuscscp/world-net/layers/application"

	"github.com/spf13/cobra"
)

var (
	captureFile string

	pingCmd = &cobra.Command{
		Use:   "ping <yaml-topology-file> <device> <address>",
		Short: "Ping an address from a device and print the simulated round trip",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			intf, target, err := loadProbeTarget(args)
			if err != nil {
				return err
			}
			res, err := application.Ping(intf, target, probeConfig())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reply from %s: node=%s hops=%d time=%s\n",
				res.Target, describe(intf.Simulation(), res.Node), res.Hops, res.RTT)
			return nil
		},
	}
)

func init() {
	pingCmd.Flags().StringVar(&captureFile, "capture", "", "write the probes to this pcapng file")
	rootCmd.AddCommand(pingCmd)
}

// probeConfig builds the probe settings, the --capture flag taking
// precedence over the settings file.
func probeConfig() application.ProbeConfig {
	conf := application.ProbeConfig{
		HopLatency: settings.Probe.HopLatency,
	}
	filename := settings.Probe.Capture
	if captureFile != "" {
		filename = captureFile
	}
	if filename != "" {
		conf.Capture = &application.CaptureConfig{Filename: filename}
	}
	return conf
}
