// Package config provides configuration management for brewse. It handles
// loading, validating, and saving application settings: the catalog
// endpoints, the cache location, network limits, and the Homebrew prefix.
// The package supports YAML configuration files and provides sensible
// defaults computed once at startup; nothing reads ambient global state
// after construction.
package config

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cperrin88/brewse/pkg/errors"
	"github.com/cperrin88/brewse/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Endpoints for the two bulk catalog downloads.
	Endpoints Endpoints `yaml:"endpoints"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// Endpoints holds the remote catalog URLs.
type Endpoints struct {
	FormulaURL string `yaml:"formula_url"`
	CaskURL    string `yaml:"cask_url"`
}

// Settings represents general application settings.
type Settings struct {
	// Cache settings
	CacheDir string `yaml:"cache_dir,omitempty"`

	// BrewPath is the brew executable; BrewPrefix the installation root whose
	// state directories drive filesystem staleness checks.
	BrewPath   string `yaml:"brew_path,omitempty"`
	BrewPrefix string `yaml:"brew_prefix,omitempty"`

	// Network settings
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	DownloadBaseDelay time.Duration `yaml:"download_base_delay"`

	// Output settings
	SearchLimit int    `yaml:"search_limit"`
	LogLevel    string `yaml:"log_level"` // error, warn, info, debug
}

// Default configuration values.
const (
	// DefaultFormulaURL is the Homebrew bulk formula catalog endpoint.
	DefaultFormulaURL = "https://formulae.brew.sh/api/formula.json"
	// DefaultCaskURL is the Homebrew bulk cask catalog endpoint.
	DefaultCaskURL = "https://formulae.brew.sh/api/cask.json"

	// DefaultHTTPTimeout is the default timeout for metadata requests. Bulk
	// downloads are bounded by caller cancellation, not by this timer.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultDownloadBaseDelay is the base retry backoff unit.
	DefaultDownloadBaseDelay = 500 * time.Millisecond

	// DefaultSearchLimit caps results per variant.
	DefaultSearchLimit = 50

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultBrewPrefix returns the conventional Homebrew prefix for the current
// platform. Computed once at startup and carried in the config from then on.
func DefaultBrewPrefix() string {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return "/opt/homebrew"
	}
	if runtime.GOOS == "linux" {
		return "/home/linuxbrew/.linuxbrew"
	}
	return "/usr/local"
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		// Fallback to current directory if we can't determine the cache dir
		cacheDir = "."
	}

	return &Config{
		Endpoints: Endpoints{
			FormulaURL: DefaultFormulaURL,
			CaskURL:    DefaultCaskURL,
		},
		Settings: Settings{
			CacheDir:          cacheDir,
			BrewPath:          "brew",
			BrewPrefix:        DefaultBrewPrefix(),
			HTTPTimeout:       DefaultHTTPTimeout,
			DownloadBaseDelay: DefaultDownloadBaseDelay,
			SearchLimit:       DefaultSearchLimit,
			LogLevel:          "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidPath, err.Error())
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

// SaveConfig saves configuration to a file, replacing it atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(err, "failed to create config file")
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to encode config")
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to replace config file")
	}

	return nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Endpoints.FormulaURL == "" || c.Endpoints.CaskURL == "" {
		return errors.Wrap(errors.ErrConfigValidation, "catalog endpoints cannot be empty")
	}
	if c.Settings.HTTPTimeout < 0 {
		return errors.Wrap(errors.ErrConfigValidation, "http_timeout cannot be negative")
	}
	if c.Settings.SearchLimit <= 0 {
		return errors.Wrap(errors.ErrConfigValidation, "search_limit must be positive")
	}
	return nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Endpoints.FormulaURL == "" {
		c.Endpoints.FormulaURL = def.Endpoints.FormulaURL
	}
	if c.Endpoints.CaskURL == "" {
		c.Endpoints.CaskURL = def.Endpoints.CaskURL
	}
	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = def.Settings.CacheDir
	}
	if c.Settings.BrewPath == "" {
		c.Settings.BrewPath = def.Settings.BrewPath
	}
	if c.Settings.BrewPrefix == "" {
		c.Settings.BrewPrefix = def.Settings.BrewPrefix
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = def.Settings.HTTPTimeout
	}
	if c.Settings.DownloadBaseDelay == 0 {
		c.Settings.DownloadBaseDelay = def.Settings.DownloadBaseDelay
	}
	if c.Settings.SearchLimit == 0 {
		c.Settings.SearchLimit = def.Settings.SearchLimit
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = def.Settings.LogLevel
	}
}

// GetCatalogDir returns the directory holding downloaded catalog artifacts.
func (c *Config) GetCatalogDir() string {
	return filepath.Join(c.Settings.CacheDir, "catalogs")
}

// GetCatalogPath returns the canonical artifact path for a catalog source.
// File identity is the source name with a .json suffix.
func (c *Config) GetCatalogPath(source string) string {
	return filepath.Join(c.GetCatalogDir(), source+".json")
}

// GetInstalledCachePath returns the artifact path for the installed-state cache.
func (c *Config) GetInstalledCachePath() string {
	return filepath.Join(c.Settings.CacheDir, "state", "installed.json")
}

// GetDefaultConfigPath returns the default path for the config file.
func GetDefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user config directory")
	}
	return filepath.Join(configDir, "config.yaml"), nil
}
