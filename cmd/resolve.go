package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <yaml-topology-file> <device> <address>",
	Short: "Map an address to a node as seen from the network interface of a device",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		intf, target, err := loadProbeTarget(args)
		if err != nil {
			return err
		}
		node, ok, err := intf.MapAddressToNode(target)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: no such host\n", target)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", target, describe(intf.Simulation(), node))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
