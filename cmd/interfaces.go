package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"handshakewatch/internal/pcapsrc"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List interfaces usable by the pcap source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ifaces, err := pcapsrc.ListInterfaces()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tADDRESS\tUP\tLOOPBACK")
		for _, iface := range ifaces {
			fmt.Fprintf(w, "%s\t%s\t%t\t%t\n", iface.Name, iface.Net.String(), iface.Up, iface.Loop)
		}
		return w.Flush()
	},
}
