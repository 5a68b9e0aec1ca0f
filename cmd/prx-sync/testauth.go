package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ampers-mn/prx-sync/internal/app"
)

func newTestAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-auth",
		Short: "Verify credentials against the PRX API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			runtime, err := app.New(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.Client().TestConnection(cmd.Context()); err != nil {
				return fmt.Errorf("authentication check failed: %w", err)
			}
			fmt.Printf("Authenticated against %s as client %s\n", cfg.CMSBaseURL(), cfg.ClientID)
			return nil
		},
	}
}
