package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mhellwig/mapdeck/internal/cli"
	"github.com/mhellwig/mapdeck/internal/logger"
)

var (
	configPath string
	verbose    bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapdeck",
		Short: "A downloadable map cache manager",
		Long: `mapdeck keeps a local cache of aviation maps in sync with a remote
catalogue:
- CLI: update, download, upgrade, remove
- Library: reconcile the cache against the server's manifest
- Tooling: inspect installed maps and clean the cache`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := "info"
			if verbose {
				level = "debug"
			}
			logger.InitLogger(level)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose

	// Add subcommands
	cmd.AddCommand(
		cli.NewUpdateCmd(),
		cli.NewDownloadCmd(),
		cli.NewUpgradeCmd(),
		cli.NewRemoveCmd(),
		cli.NewListCmd(),
		cli.NewDescribeCmd(),
		cli.NewCleanCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
