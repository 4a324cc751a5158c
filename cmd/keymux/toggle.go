package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fibsussy/keymux/internal/ipc"
)

func newToggleCmd() *cobra.Command {
	var enable, disable bool

	cmd := &cobra.Command{
		Use:   "toggle <hardware-id>",
		Short: "Enable, disable, or toggle a keyboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.Request{HardwareID: args[0]}
			switch {
			case enable && disable:
				return fmt.Errorf("--enable and --disable are mutually exclusive")
			case enable:
				req.Type = ipc.ReqEnableKeyboard
			case disable:
				req.Type = ipc.ReqDisableKeyboard
			default:
				req.Type = ipc.ReqToggleKeyboards
			}

			if _, err := roundTrip(req); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}

	cmd.Flags().BoolVar(&enable, "enable", false, "force the keyboard enabled")
	cmd.Flags().BoolVar(&disable, "disable", false, "force the keyboard disabled")
	return cmd
}
