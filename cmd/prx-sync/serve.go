package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ampers-mn/prx-sync/internal/app"
	"github.com/ampers-mn/prx-sync/internal/logger"
)

func newServeCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the periodic sync loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			logger.InfoObj("prx-sync starting", "config", cfg.Redacted())

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runtime, err := app.New(ctx, cfg, dryRun)
			if err != nil {
				logger.ErrorObj("failed to initialize syncer", "error", err)
				return err
			}
			defer runtime.Close()

			if err := runtime.Run(ctx); err != nil {
				return fmt.Errorf("sync loop: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log intended changes without writing anything")

	return cmd
}
