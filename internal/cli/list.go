package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mhellwig/mapdeck/pkg/datamanager"
	"github.com/mhellwig/mapdeck/pkg/resource"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var (
		groupName string
		installed bool
		updatable bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available maps",
		Long: `List the maps known to mapdeck together with their install state.

By default, shows every map the catalogue offers plus any installed
maps the catalogue no longer lists. Use --group to restrict the output
to one content group and --installed or --updatable to filter rows.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, groupName, installed, updatable)
		},
	}

	cmd.Flags().StringVar(&groupName, "group", "all", "Content group (all, vector, tiles, databases)")
	cmd.Flags().BoolVar(&installed, "installed", false, "Show only installed maps")
	cmd.Flags().BoolVar(&updatable, "updatable", false, "Show only maps with a pending update")

	return cmd
}

func runList(cmd *cobra.Command, groupName string, installed, updatable bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	id, err := resolveGroup(groupName)
	if err != nil {
		return err
	}

	return withManager(cmd.Context(), cfg, datamanager.Hooks{}, func(mgr *datamanager.Manager) error {
		infos, err := mgr.Resources(id)
		if err != nil {
			return err
		}

		var rows []datamanager.Info
		for _, info := range infos {
			if installed && !info.HasFile {
				continue
			}
			if updatable && !info.Updatable {
				continue
			}
			rows = append(rows, info)
		}

		if len(rows) == 0 {
			fmt.Println("No maps found")
			return nil
		}

		fmt.Printf("%-25s %-15s %-10s %s\n", "NAME", "CATEGORY", "SIZE", "STATUS")
		fmt.Println(strings.Repeat("-", 65))
		for _, info := range rows {
			fmt.Printf("%-25s %-15s %-10s %s\n", info.Name, info.Category, sizeColumn(info), statusColumn(info))
		}
		return nil
	})
}

func sizeColumn(info datamanager.Info) string {
	if info.HasFile {
		return humanize.Bytes(uint64(info.LocalSize))
	}
	if info.RemoteSize > 0 {
		return humanize.Bytes(uint64(info.RemoteSize))
	}
	return "-"
}

func statusColumn(info datamanager.Info) string {
	switch {
	case info.State == resource.StateDownloading:
		return "downloading"
	case info.State == resource.StateFailed:
		return "failed"
	case info.HasFile && !info.Supported:
		return "installed (no longer offered)"
	case info.HasFile && info.Updatable:
		return "update available"
	case info.HasFile:
		return "installed"
	default:
		return "available"
	}
}
