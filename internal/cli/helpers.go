package cli

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/afero"

	"github.com/mhellwig/mapdeck/pkg/config"
	"github.com/mhellwig/mapdeck/pkg/datamanager"
	"github.com/mhellwig/mapdeck/pkg/download"
)

// UserAgent identifies mapdeck to the map server.
const UserAgent = "mapdeck/" + Version

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
)

// loadConfig loads the configuration from the path given on the
// command line, falling back to the default location.
func loadConfig() (*config.Config, error) {
	configPath := ""
	if ConfigPath != nil {
		configPath = *ConfigPath
	}
	if configPath == "" {
		defaultPath, err := config.GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		configPath = defaultPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	return cfg, nil
}

// withManager builds a data manager from the config, runs its loop for
// the duration of fn and shuts it down afterwards. Shutdown cancels
// in-flight transfers and sweeps unattached files from the cache.
func withManager(ctx context.Context, cfg *config.Config, hooks datamanager.Hooks, fn func(*datamanager.Manager) error) error {
	manifestURL, err := url.Parse(cfg.Manifest.URL)
	if err != nil {
		return fmt.Errorf("invalid manifest URL %q: %w", cfg.Manifest.URL, err)
	}

	fs := afero.NewOsFs()
	dl := download.NewManager(fs, cfg.Settings.HTTPTimeout, UserAgent)
	mgr := datamanager.New(fs, dl, cfg, hooks, datamanager.Options{
		ManifestURL:   manifestURL,
		CacheDir:      cfg.Settings.CacheDir,
		StatePath:     cfg.StatePath(),
		CheckInterval: cfg.Settings.CheckInterval,
		RetryInterval: cfg.Settings.RetryInterval,
		StaleAfter:    cfg.Settings.StaleAfter,
		WatchCache:    cfg.Settings.WatchCache,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ran := make(chan error, 1)
	go func() { ran <- mgr.Run(runCtx) }()

	fnErr := fn(mgr)
	cancel()
	if runErr := <-ran; fnErr == nil && runErr != nil {
		return runErr
	}
	return fnErr
}

// resolveGroup maps the --group flag to a group ID.
func resolveGroup(name string) (datamanager.GroupID, error) {
	switch name {
	case "", "all":
		return datamanager.GroupAll, nil
	case "vector":
		return datamanager.GroupVector, nil
	case "tiles":
		return datamanager.GroupTiles, nil
	case "databases":
		return datamanager.GroupDatabases, nil
	}
	return "", fmt.Errorf("unknown group %q (expected all, vector, tiles or databases)", name)
}
