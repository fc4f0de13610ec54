package fsutil

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the name of the application used in paths.
	AppName = "brewse"
)

// GetCacheDir returns the platform-specific cache directory for the application.
// On Linux: ~/.cache/brewse/
// On macOS: ~/Library/Caches/brewse/
// On Windows: %LOCALAPPDATA%\brewse\cache\
func GetCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// GetCatalogDir returns the directory holding downloaded catalog artifacts.
// Format: <cache_dir>/catalogs/
func GetCatalogDir() (string, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "catalogs"), nil
}

// GetConfigDir returns the platform-specific config directory for the application.
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}
