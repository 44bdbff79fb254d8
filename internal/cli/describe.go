package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhellwig/mapdeck/pkg/datamanager"
)

// NewDescribeCmd creates the describe command.
func NewDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe NAME",
		Short: "Show details about an installed map",
		Long: `Print install date, file size and data attribution of an installed
map.`,
		Args: cobra.ExactArgs(1),
		RunE: runDescribe,
	}

	return cmd
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withManager(cmd.Context(), cfg, datamanager.Hooks{}, func(mgr *datamanager.Manager) error {
		desc, err := mgr.Describe(args[0])
		if err != nil {
			return fmt.Errorf("failed to describe %s: %w", args[0], err)
		}
		fmt.Println(desc)
		return nil
	})
}
