package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fibsussy/keymux/internal/ipc"
	"github.com/fibsussy/keymux/internal/keymap"
	"github.com/fibsussy/keymux/internal/stats"
)

// newAdaptiveStatsCmd pretty-prints the per-key rolling tap stats
// (src/adaptive_stats.rs's show_adaptive_stats, colored box table
// replaced with a plain tabwriter column layout matching the
// teacher's own stdout-only style).
func newAdaptiveStatsCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "adaptive-stats",
		Short: "Show collected adaptive timing statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				p, err := stats.UserStatsPath(os.Getuid())
				if err != nil {
					return err
				}
				path = p
			}

			// Ask the daemon to flush in-memory stats first, best
			// effort -- a cached view is still useful if it's down.
			if _, err := roundTrip(ipc.Request{Type: ipc.ReqSaveAdaptiveStats}); err != nil {
				fmt.Println("warning: daemon not running, showing cached data")
			}

			store := stats.NewStore()
			if err := store.Load(path); err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}

			snap := store.Snapshot()
			if len(snap) == 0 {
				fmt.Println("no adaptive statistics collected yet")
				return nil
			}

			names := make([]string, 0, len(snap))
			byName := make(map[string]keymap.RollingStats, len(snap))
			for k, v := range snap {
				names = append(names, k.Name())
				byName[k.Name()] = v
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tSAMPLES\tAVG(ms)\tTHRESHOLD(ms)")
			for _, name := range names {
				v := byName[name]
				fmt.Fprintf(w, "%s\t%d\t%.1f\t%.1f\n", name, v.TapSampleCount, v.AvgTapDuration, v.AdaptiveThreshold)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&path, "config", "", "path to all_key_stats.json (defaults to the per-user XDG path)")
	return cmd
}
