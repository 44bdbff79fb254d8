package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhellwig/mapdeck/internal/logger"
	"github.com/mhellwig/mapdeck/pkg/datamanager"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Refresh the map catalogue",
		Long: `Refresh the map catalogue by downloading the latest manifest from
the map server and reconciling the local cache against it.`,
		RunE: runUpdate,
	}

	return cmd
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Debug("Refreshing map catalogue...")
	return withManager(cmd.Context(), cfg, datamanager.Hooks{}, func(mgr *datamanager.Manager) error {
		if err := mgr.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("failed to refresh catalogue: %w", err)
		}

		infos, err := mgr.Resources(datamanager.GroupAll)
		if err != nil {
			return err
		}
		logger.Info("Catalogue refreshed", logger.Fields{"maps": len(infos)})
		return nil
	})
}
