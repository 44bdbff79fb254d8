package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhellwig/mapdeck/internal/logger"
	"github.com/mhellwig/mapdeck/pkg/config"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mapdeck configuration",
		Long:  "Show and initialize the mapdeck configuration file",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE:  runConfigShow,
	}

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		RunE:  runConfigInit,
	}

	return cmd
}

func runConfigShow(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("Manifest URL:    %s\n", cfg.Manifest.URL)
	fmt.Printf("Cache directory: %s\n", cfg.Settings.CacheDir)
	fmt.Printf("State directory: %s\n", cfg.Settings.StateDir)
	fmt.Printf("Network allowed: %t\n", cfg.Settings.NetworkAllowed)
	fmt.Printf("HTTP timeout:    %s\n", cfg.Settings.HTTPTimeout)
	fmt.Printf("Check interval:  %s\n", cfg.Settings.CheckInterval)
	fmt.Printf("Retry interval:  %s\n", cfg.Settings.RetryInterval)
	fmt.Printf("Stale after:     %s\n", cfg.Settings.StaleAfter)
	fmt.Printf("Watch cache:     %t\n", cfg.Settings.WatchCache)
	fmt.Printf("Log level:       %s\n", cfg.Settings.LogLevel)
	return nil
}

func runConfigInit(*cobra.Command, []string) error {
	path := ""
	if ConfigPath != nil {
		path = *ConfigPath
	}
	if path == "" {
		defaultPath, err := config.GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
		path = defaultPath
	}

	cfg := config.DefaultConfig()
	if err := cfg.SaveConfig(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	logger.Info("Wrote default configuration", logger.Fields{"path": path})
	return nil
}
