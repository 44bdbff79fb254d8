// Package config provides configuration management for mapdeck. It
// handles loading, validating and saving application settings from a
// YAML file and provides sensible defaults when no file exists.
package config

import (
	"bytes"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/mhellwig/mapdeck/pkg/errors"
	"github.com/mhellwig/mapdeck/pkg/fsutil"
)

// Config represents the application configuration.
type Config struct {
	// Manifest describes the remote map catalogue.
	Manifest ManifestConfig `yaml:"manifest"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// ManifestConfig points at the remote manifest document.
type ManifestConfig struct {
	URL string `yaml:"url"`
}

// Settings represents general application settings.
type Settings struct {
	// Cache settings
	CacheDir string `yaml:"cache_dir,omitempty"`
	StateDir string `yaml:"state_dir,omitempty"`

	// Network settings
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// NetworkAllowed gates all network activity. While false, no
	// fetch of any kind is started.
	NetworkAllowed bool `yaml:"network_allowed"`

	// WatchCache enables the fsnotify watcher on the cache root so
	// externally deleted files are noticed immediately. Only takes
	// effect on a real filesystem.
	WatchCache bool `yaml:"watch_cache"`

	// Auto-update scheduling.
	CheckInterval time.Duration `yaml:"check_interval"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	StaleAfter    time.Duration `yaml:"stale_after"`

	LogLevel string `yaml:"log_level"`
}

// Default configuration values.
const (
	// DefaultManifestURL is the remote map catalogue queried when the
	// config file does not name one.
	DefaultManifestURL = "https://maps.mapdeck.dev/v1/maps.json"

	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultCheckInterval is how often the auto-update timer fires
	// when the manifest is fresh.
	DefaultCheckInterval = 24 * time.Hour

	// DefaultRetryInterval is the short re-arm interval used while a
	// refresh is overdue.
	DefaultRetryInterval = time.Hour

	// DefaultStaleAfter is the age at which the last successful
	// refresh is considered overdue.
	DefaultStaleAfter = 6 * 24 * time.Hour

	// YAMLIndent is the number of spaces used for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = "."
	}
	stateDir, err := os.UserConfigDir()
	if err != nil {
		stateDir = cacheDir
	}

	return &Config{
		Manifest: ManifestConfig{URL: DefaultManifestURL},
		Settings: Settings{
			CacheDir:      filepath.Join(cacheDir, "mapdeck"),
			StateDir:      filepath.Join(stateDir, "mapdeck"),
			HTTPTimeout:   DefaultHTTPTimeout,
			CheckInterval: DefaultCheckInterval,
			RetryInterval: DefaultRetryInterval,
			StaleAfter:    DefaultStaleAfter,
			WatchCache:    true,
			LogLevel:      "info",
		},
	}
}

// GetDefaultConfigPath returns the default location of the config file.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to determine user config directory")
	}
	return filepath.Join(configDir, "mapdeck", "config.yml"), nil
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig saves the configuration to a file, atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	_ = encoder.Close()

	return fsutil.WriteFileAtomic(afero.NewOsFs(), absPath, buf.Bytes(), fsutil.FileModeDefault)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	parsed, err := url.Parse(c.Manifest.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return errors.Wrapf(errors.ErrConfigValidation, "manifest URL %q is not a valid http(s) URL", c.Manifest.URL)
	}
	if c.Settings.CacheDir == "" {
		return errors.Wrap(errors.ErrConfigValidation, "cache_dir cannot be empty")
	}
	if c.Settings.CheckInterval <= 0 || c.Settings.RetryInterval <= 0 || c.Settings.StaleAfter <= 0 {
		return errors.Wrap(errors.ErrConfigValidation, "update intervals must be positive")
	}
	if c.Settings.RetryInterval > c.Settings.CheckInterval {
		return errors.Wrap(errors.ErrConfigValidation, "retry_interval must not exceed check_interval")
	}
	return nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Manifest.URL == "" {
		c.Manifest.URL = def.Manifest.URL
	}
	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = def.Settings.CacheDir
	}
	if c.Settings.StateDir == "" {
		c.Settings.StateDir = def.Settings.StateDir
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = def.Settings.HTTPTimeout
	}
	if c.Settings.CheckInterval == 0 {
		c.Settings.CheckInterval = def.Settings.CheckInterval
	}
	if c.Settings.RetryInterval == 0 {
		c.Settings.RetryInterval = def.Settings.RetryInterval
	}
	if c.Settings.StaleAfter == 0 {
		c.Settings.StaleAfter = def.Settings.StaleAfter
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = def.Settings.LogLevel
	}
}

// ManifestPath returns the local path of the cached manifest document.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Settings.CacheDir, "maps.json")
}

// MapsDir returns the directory holding downloaded map files.
func (c *Config) MapsDir() string {
	return filepath.Join(c.Settings.CacheDir, "maps")
}

// StatePath returns the path of the persisted scheduling state.
func (c *Config) StatePath() string {
	return filepath.Join(c.Settings.StateDir, "state.yml")
}

// NetworkAllowed reports whether the user has accepted network use.
func (c *Config) NetworkAllowed() bool {
	return c.Settings.NetworkAllowed
}
