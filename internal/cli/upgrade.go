package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhellwig/mapdeck/internal/logger"
	"github.com/mhellwig/mapdeck/pkg/datamanager"
)

// NewUpgradeCmd creates the upgrade command.
func NewUpgradeCmd() *cobra.Command {
	var groupName string

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Update installed maps",
		Long: `Refresh the map catalogue, then re-download every installed map the
server offers a newer file for.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpgrade(cmd, groupName)
		},
	}

	cmd.Flags().StringVar(&groupName, "group", "all", "Content group (all, vector, tiles, databases)")

	return cmd
}

func runUpgrade(cmd *cobra.Command, groupName string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	id, err := resolveGroup(groupName)
	if err != nil {
		return err
	}

	return withManager(cmd.Context(), cfg, datamanager.Hooks{}, func(mgr *datamanager.Manager) error {
		if err := mgr.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("failed to refresh catalogue: %w", err)
		}

		agg, err := mgr.GroupAggregates(id)
		if err != nil {
			return err
		}
		if !agg.Updatable {
			logger.Info("All installed maps are up to date")
			return nil
		}
		logger.Info("Updating installed maps", logger.Fields{"download_size": agg.UpdateSize})

		names := updatableNames(mgr, id)
		if _, err := mgr.UpdateAll(id); err != nil {
			return fmt.Errorf("failed to start updates: %w", err)
		}
		for _, name := range names {
			// Waits for the transfer already in flight.
			if err := mgr.Download(cmd.Context(), name); err != nil {
				return fmt.Errorf("failed to update %s: %w", name, err)
			}
		}
		logger.Info("Update complete", logger.Fields{"maps": len(names)})
		return nil
	})
}

func updatableNames(mgr *datamanager.Manager, id datamanager.GroupID) []string {
	infos, err := mgr.Resources(id)
	if err != nil {
		return nil
	}
	var names []string
	for _, info := range infos {
		if info.Updatable {
			names = append(names, info.Name)
		}
	}
	return names
}
