package cli

import (
	"github.com/spf13/cobra"

	"github.com/mhellwig/mapdeck/internal/logger"
	"github.com/mhellwig/mapdeck/pkg/datamanager"
)

// NewCleanCmd creates the clean command.
func NewCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the map cache",
		Long: `Remove files from the map cache that belong to no known map, then
remove directories the sweep left empty.`,
		RunE: runClean,
	}

	return cmd
}

func runClean(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withManager(cmd.Context(), cfg, datamanager.Hooks{}, func(mgr *datamanager.Manager) error {
		if err := mgr.Cleanup(); err != nil {
			return err
		}
		logger.Info("Cache cleaned", logger.Fields{"dir": cfg.Settings.CacheDir})
		return nil
	})
}
