package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhellwig/mapdeck/internal/logger"
	"github.com/mhellwig/mapdeck/pkg/datamanager"
)

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download NAME...",
		Short: "Download maps",
		Long: `Download one or more maps into the local cache. Already installed
maps are re-downloaded when the server offers a newer file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDownload,
	}

	return cmd
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withManager(cmd.Context(), cfg, datamanager.Hooks{}, func(mgr *datamanager.Manager) error {
		for _, name := range args {
			logger.Info("Downloading map", logger.Fields{"name": name})
			if err := mgr.Download(cmd.Context(), name); err != nil {
				return fmt.Errorf("failed to download %s: %w", name, err)
			}
		}
		logger.Info("Download complete", logger.Fields{"maps": len(args)})
		return nil
	})
}
