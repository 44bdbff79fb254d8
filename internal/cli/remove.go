package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhellwig/mapdeck/internal/logger"
	"github.com/mhellwig/mapdeck/pkg/datamanager"
)

// NewRemoveCmd creates the remove command.
func NewRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove NAME...",
		Short: "Remove installed maps",
		Long: `Delete the local files of one or more maps. Maps the catalogue
still offers stay listed and can be downloaded again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRemove,
	}

	return cmd
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withManager(cmd.Context(), cfg, datamanager.Hooks{}, func(mgr *datamanager.Manager) error {
		for _, name := range args {
			if err := mgr.Remove(name); err != nil {
				return fmt.Errorf("failed to remove %s: %w", name, err)
			}
			logger.Info("Removed map", logger.Fields{"name": name})
		}
		return nil
	})
}
