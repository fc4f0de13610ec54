package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cperrin88/brewse/internal/logger"
	"github.com/cperrin88/brewse/pkg/cache"
)

// NewCacheCmd creates the cache command with subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local cache",
		Long:  "Inspect and clean the downloaded catalogs and the installed-state snapshot",
	}

	cmd.AddCommand(
		newCacheCleanCmd(),
		newCacheInfoCmd(),
		newCacheDirCmd(),
	)

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	var (
		catalogs bool
		state    bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove cached files",
		Long:  "Remove cached catalogs and state to free disk space. With no flags everything is removed.",
		RunE: func(*cobra.Command, []string) error {
			return runCacheClean(catalogs, state)
		},
	}

	cmd.Flags().BoolVar(&catalogs, "catalogs", false, "remove only downloaded catalogs")
	cmd.Flags().BoolVar(&state, "state", false, "remove only the installed-state snapshot")

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache contents",
		RunE: func(*cobra.Command, []string) error {
			return runCacheInfo()
		},
	}
}

func newCacheDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "Show the cache directory path",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Println(cfg.Settings.CacheDir)
			return nil
		},
	}
}

func runCacheClean(catalogs, state bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager := cache.NewManager(cfg.Settings.CacheDir)
	result, err := manager.Clean(cache.CleanOptions{Catalogs: catalogs, State: state})
	if err != nil {
		return err
	}

	if result.CatalogFreed > 0 {
		logger.Info("Removed catalogs", logger.Fields{"freed": cache.FormatBytes(result.CatalogFreed)})
	}
	if result.StateFreed > 0 {
		logger.Info("Removed installed state", logger.Fields{"freed": cache.FormatBytes(result.StateFreed)})
	}
	fmt.Printf("Freed %s\n", cache.FormatBytes(result.TotalFreed))
	return nil
}

func runCacheInfo() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager := cache.NewManager(cfg.Settings.CacheDir)
	info, err := manager.GetInfo()
	if err != nil {
		return err
	}

	fmt.Printf("Cache directory: %s\n", info.Directory)
	fmt.Printf("Total size:      %s\n", cache.FormatBytes(info.TotalSize))
	fmt.Printf("Catalogs:        %s (%d files)\n", cache.FormatBytes(info.CatalogSize), info.CatalogFiles)
	fmt.Printf("Installed state: %s (%d files)\n", cache.FormatBytes(info.StateSize), info.StateFiles)
	return nil
}
