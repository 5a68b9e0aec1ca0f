package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ampers-mn/prx-sync/internal/config"
	"github.com/ampers-mn/prx-sync/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "prx-sync",
	Short: "Synchronize PRX stories into local content",
	Long:  "Pulls published stories from the PRX CMS API and imports them as local content items with media attachments.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTestAuthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "prx-sync: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config and initializes the logger for a command run. The
// returned cleanup flushes buffered log entries.
func setup() (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := logger.Init(cfg); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, func() { _ = logger.Close() }, nil
}
