package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fibsussy/keymux/internal/config"
	"github.com/fibsussy/keymux/internal/focus"
	"github.com/fibsussy/keymux/internal/ipc"
)

func newGameModeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gamemode [on|off]",
		Short: "Force game mode on/off, or manage the window predicate",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("expected 'on' or 'off', or the 'window' subcommand")
			}
			var active bool
			switch args[0] {
			case "on":
				active = true
			case "off":
				active = false
			default:
				return fmt.Errorf("unknown gamemode argument %q", args[0])
			}
			_, err := roundTrip(ipc.Request{Type: ipc.ReqSetGameMode, GameMode: active})
			if err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
	cmd.AddCommand(newGameModeWindowCmd())
	return cmd
}

// newGameModeWindowCmd implements `keymux gamemode window ...`,
// persisting a PredicateMode + app-id allowlist into the user's
// config (src/niri.rs's predicate modes, named explicitly in
// SPEC_FULL's supplemented features).
func newGameModeWindowCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "window [app-id...]",
		Short: "Configure the window-focus game-mode predicate",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode == "list" {
				return printPredicateModes()
			}
			switch focus.PredicateMode(mode) {
			case focus.PredicateNormal, focus.PredicateInvert, focus.PredicateToggleInvert,
				focus.PredicateAlwaysOn, focus.PredicateAlwaysOff:
			default:
				return fmt.Errorf("unknown predicate mode %q", mode)
			}

			path, err := config.DefaultPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			cfg.GameMode.WindowPredicate = config.WindowPredicate{Mode: mode, AppIDs: args}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			fmt.Printf("gamemode window predicate set to %s %v\n", mode, args)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(focus.PredicateNormal), "normal|invert|toggle-invert|always-on|always-off|list")
	return cmd
}

func printPredicateModes() error {
	for _, m := range []focus.PredicateMode{
		focus.PredicateNormal, focus.PredicateInvert, focus.PredicateToggleInvert,
		focus.PredicateAlwaysOn, focus.PredicateAlwaysOff,
	} {
		fmt.Println(m)
	}
	return nil
}
