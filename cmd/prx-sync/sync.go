package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ampers-mn/prx-sync/internal/app"
)

func newSyncCmd() *cobra.Command {
	var (
		accountID int64
		page      int
		perPage   int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			runtime, err := app.New(cmd.Context(), cfg, dryRun)
			if err != nil {
				return err
			}
			defer runtime.Close()

			params := runtime.DefaultParams()
			if accountID > 0 {
				params.AccountID = accountID
			}
			if page > 0 {
				params.Page = page
			}
			if perPage > 0 {
				params.PerPage = perPage
			}

			res, err := runtime.RunOnce(cmd.Context(), params)
			if err != nil {
				return err
			}

			label := "Import completed"
			if dryRun {
				label = "Dry run completed"
			}
			fmt.Printf("%s. Success: %d, Failed: %d\n", label, res.Success, res.Failed)
			for _, line := range res.Errors {
				fmt.Printf("  %s\n", line)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&accountID, "account-id", 0, "PRX account to sync (default from config)")
	cmd.Flags().IntVar(&page, "page", 0, "result page to fetch (default 1)")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "stories per page (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log intended changes without writing anything")

	return cmd
}
