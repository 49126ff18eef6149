// Command roundlink is the CLI entry point.
//
// A headless client for the round synchronization protocol. It joins a
// server over WebSocket or WebRTC, follows the lobby, and takes part in the
// round start handshake. Rounds need a simulation to run, which this build
// does not ship, so starts end in the lobby with an explanation.
package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "roundlink",
		Short:         "Headless round synchronization client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		connectCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}
