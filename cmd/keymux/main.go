// Command keymux is both the background remapping daemon and its own
// control client: `keymux daemon` runs the orchestrator, every other
// subcommand talks to a running daemon over the control socket
// (internal/ipc), mirroring the original's single-binary main.rs
// while replacing its arg-matching with a cobra command tree (spec
// §6 "CLI").
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "keymux:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "keymux",
		Short:         "Adaptive keyboard remapping daemon and client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newDaemonCmd(),
		newListCmd(),
		newToggleCmd(),
		newGameModeCmd(),
		newReloadCmd(),
		newValidateCmd(),
		newDebugCmd(),
		newAdaptiveStatsCmd(),
		newClearStatsCmd(),
	)
	return root
}
