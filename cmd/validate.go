package cmd

import (
	"fmt"

	"github.com/matheuscscp/world-net/config"
	"github.com/matheuscscp/world-net/layers/network"

	"github.com/spf13/cobra"
)

var (
	snapshotFile string

	validateCmd = &cobra.Command{
		Use:   "validate <yaml-topology-file>",
		Short: "Load a topology, check its invariants and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := network.NewSimulationFromConfigFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "world %s is valid\n", sim.Name())
			for _, isp := range sim.ISPs() {
				fmt.Fprintf(out, "isp %d %s %s\n", isp.ID, isp.Name, isp.CIDR())
			}
			for _, n := range sim.Networks() {
				public := "*"
				if n.PublicAddress != 0 {
					public = n.PublicAddress.String()
				}
				fmt.Fprintf(out, "network %d %s %s public=%s members=%d\n",
					n.ID, n.Name, n.CIDR(), public, len(sim.Members(n.ID)))
			}
			fmt.Fprintf(out, "%d devices, %d directed links\n", len(sim.Devices()), len(sim.Links()))

			if snapshotFile != "" {
				if err := config.MarshalYAMLAndWriteFile(snapshotFile, sim.Snapshot()); err != nil {
					return fmt.Errorf("error writing snapshot: %w", err)
				}
			}
			return nil
		},
	}
)

func init() {
	validateCmd.Flags().StringVar(&snapshotFile, "snapshot", "", "write the normalized topology (explicit ids) to this file")
	rootCmd.AddCommand(validateCmd)
}
