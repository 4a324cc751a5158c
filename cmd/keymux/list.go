package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fibsussy/keymux/internal/ipc"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every keyboard the daemon knows about",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := roundTrip(ipc.Request{Type: ipc.ReqListKeyboards})
			if err != nil {
				return err
			}
			return printKeyboards(resp.Keyboards)
		},
	}
}

func printKeyboards(kbs []ipc.KeyboardInfo) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HARDWARE ID\tNAME\tPATH\tENABLED\tCONNECTED")
	for _, k := range kbs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\n", k.HardwareID, k.Name, k.DevicePath, k.Enabled, k.Connected)
	}
	return w.Flush()
}
