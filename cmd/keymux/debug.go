package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fibsussy/keymux/internal/ipc"
)

func newDebugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Attach to the daemon's live decoded-key event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := ipc.Dial()
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := ipc.WriteRequest(conn, ipc.Request{Type: ipc.ReqDebugAttach}); err != nil {
				return fmt.Errorf("send request: %w", err)
			}

			for {
				resp, err := ipc.ReadResponse(conn)
				if err != nil {
					return nil
				}
				if resp.Type != ipc.RespDebugEvent {
					continue
				}
				state := "released"
				if resp.DebugPressed {
					state = "pressed"
				}
				fmt.Printf("%-30s %-20s %s\n", resp.DebugKeyboard, resp.DebugKeycode, state)
			}
		},
	}
}
