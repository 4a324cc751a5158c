package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fibsussy/keymux/internal/ipc"
)

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload config for every active user and resync keyboards",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := roundTrip(ipc.Request{Type: ipc.ReqReload}); err != nil {
				return err
			}
			fmt.Println("reloaded")
			return nil
		},
	}
}

func newClearStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-stats",
		Short: "Delete the adaptive timing stats of every user the daemon has loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := roundTrip(ipc.Request{Type: ipc.ReqClearStats}); err != nil {
				return err
			}
			fmt.Println("cleared")
			return nil
		},
	}
}
