package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/matheuscscp/world-net/layers/network"

	"github.com/spf13/cobra"
)

var (
	allHops bool

	hopsCmd = &cobra.Command{
		Use:   "hops <yaml-topology-file> [<device> <address>]",
		Short: "Print the hop count from a device to an address, or between every pair of devices with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if allHops {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if allHops {
				sim, err := network.NewSimulationFromConfigFile(args[0])
				if err != nil {
					return err
				}
				return printHopsMatrix(cmd, sim)
			}

			intf, target, err := loadProbeTarget(args)
			if err != nil {
				return err
			}
			node, ok, err := intf.MapAddressToNode(target)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: no such host", target)
			}
			hops, err := intf.GetHopsCount(node)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", describe(intf.Simulation(), node), formatHops(hops))
			return nil
		},
	}
)

func init() {
	hopsCmd.Flags().BoolVar(&allHops, "all", false, "print the hop matrix of every pair of devices")
	rootCmd.AddCommand(hopsCmd)
}

func printHopsMatrix(cmd *cobra.Command, sim *network.NetworkSimulation) error {
	devices := sim.Devices()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)

	fmt.Fprint(w, "\t")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t", d.Name)
	}
	fmt.Fprintln(w)
	for _, from := range devices {
		fmt.Fprintf(w, "%s\t", from.Name)
		for _, to := range devices {
			hops, err := sim.CalculateHops(from.ID, network.DeviceEndpoint(to.ID))
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t", formatHops(hops))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func formatHops(hops int) string {
	if hops == network.Unreachable {
		return "unreachable"
	}
	return strconv.Itoa(hops)
}
