package cmd

import (
	"fmt"

	"github.com/matheuscscp/world-net/layers/application"

	"github.com/spf13/cobra"
)

var tracerouteCmd = &cobra.Command{
	Use:   "traceroute <yaml-topology-file> <device> <address>",
	Short: "List the networks crossed from a device to an address",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		intf, target, err := loadProbeTarget(args)
		if err != nil {
			return err
		}
		trace, err := application.Traceroute(intf, target, probeConfig())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "traceroute to %s (%s), %d hops\n",
			trace.Target, describe(intf.Simulation(), trace.Node), len(trace.Hops))
		for _, hop := range trace.Hops {
			fmt.Fprintln(out, hop.String())
		}
		return nil
	},
}

func init() {
	tracerouteCmd.Flags().StringVar(&captureFile, "capture", "", "write the probes to this pcapng file")
	rootCmd.AddCommand(tracerouteCmd)
}
