package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fibsussy/keymux/internal/config"
)

// newValidateCmd implements the config validator as a standalone
// subcommand (src/config/validator.rs's SOCD symmetry, layer
// reference, and timing-range checks), operating directly on the
// config file without requiring the daemon to be running.
func newValidateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the on-disk config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}

			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}

			result, err := config.Validate(cfg)
			if err != nil {
				return fmt.Errorf("validate %s: %w", path, err)
			}

			for _, w := range result.Warnings {
				fmt.Println("warning:", w)
			}
			for _, e := range result.Errors {
				fmt.Println("error:", e)
			}

			if !result.OK() {
				return fmt.Errorf("%d validation error(s)", len(result.Errors))
			}
			fmt.Println("config is valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "config", "", "path to config.yaml (defaults to the XDG config path)")
	return cmd
}
