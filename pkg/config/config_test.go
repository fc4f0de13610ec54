package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/brewse/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultFormulaURL, cfg.Endpoints.FormulaURL)
	assert.Equal(t, DefaultCaskURL, cfg.Endpoints.CaskURL)
	assert.Equal(t, "brew", cfg.Settings.BrewPath)
	assert.NotEmpty(t, cfg.Settings.BrewPrefix)
	assert.Equal(t, DefaultHTTPTimeout, cfg.Settings.HTTPTimeout)
	assert.Equal(t, DefaultSearchLimit, cfg.Settings.SearchLimit)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectError error
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "partial config gets defaults applied",
			content: `
settings:
  cache_dir: /tmp/brewse-test
  log_level: debug
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/tmp/brewse-test", cfg.Settings.CacheDir)
				assert.Equal(t, "debug", cfg.Settings.LogLevel)
				assert.Equal(t, DefaultFormulaURL, cfg.Endpoints.FormulaURL)
				assert.Equal(t, DefaultSearchLimit, cfg.Settings.SearchLimit)
			},
		},
		{
			name: "explicit settings survive",
			content: `
endpoints:
  formula_url: https://mirror.example.com/formula.json
  cask_url: https://mirror.example.com/cask.json
settings:
  http_timeout: 5s
  search_limit: 10
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://mirror.example.com/formula.json", cfg.Endpoints.FormulaURL)
				assert.Equal(t, 5*time.Second, cfg.Settings.HTTPTimeout)
				assert.Equal(t, 10, cfg.Settings.SearchLimit)
			},
		},
		{
			name:        "malformed yaml",
			content:     "settings: [not a map",
			expectError: errors.ErrConfigParse,
		},
		{
			name: "negative timeout rejected",
			content: `
settings:
  http_timeout: -1s
`,
			expectError: errors.ErrConfigValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfigFromReader(strings.NewReader(tt.content))
			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultFormulaURL, cfg.Endpoints.FormulaURL)
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Settings.CacheDir = "/tmp/brewse-roundtrip"
	cfg.Settings.SearchLimit = 25
	require.NoError(t, cfg.SaveConfig(path))

	// No temp leftovers next to the config.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/brewse-roundtrip", loaded.Settings.CacheDir)
	assert.Equal(t, 25, loaded.Settings.SearchLimit)
}

func TestCatalogPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.CacheDir = "/var/cache/brewse"

	assert.Equal(t, "/var/cache/brewse/catalogs", cfg.GetCatalogDir())
	assert.Equal(t, "/var/cache/brewse/catalogs/formula.json", cfg.GetCatalogPath("formula"))
	assert.Equal(t, "/var/cache/brewse/state/installed.json", cfg.GetInstalledCachePath())
}
