package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cperrin88/brewse/internal/logger"
	"github.com/cperrin88/brewse/pkg/config"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and initialize brewse configuration settings",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long:  "Create a configuration file with the default settings",
		RunE: func(*cobra.Command, []string) error {
			return runConfigInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	return cmd
}

func runConfigShow(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tabWriter := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "SETTING\tVALUE")
	_, _ = fmt.Fprintln(tabWriter, "-------\t-----")
	_, _ = fmt.Fprintf(tabWriter, "formula_url\t%s\n", cfg.Endpoints.FormulaURL)
	_, _ = fmt.Fprintf(tabWriter, "cask_url\t%s\n", cfg.Endpoints.CaskURL)
	_, _ = fmt.Fprintf(tabWriter, "cache_dir\t%s\n", cfg.Settings.CacheDir)
	_, _ = fmt.Fprintf(tabWriter, "brew_path\t%s\n", cfg.Settings.BrewPath)
	_, _ = fmt.Fprintf(tabWriter, "brew_prefix\t%s\n", cfg.Settings.BrewPrefix)
	_, _ = fmt.Fprintf(tabWriter, "http_timeout\t%s\n", cfg.Settings.HTTPTimeout)
	_, _ = fmt.Fprintf(tabWriter, "download_base_delay\t%s\n", cfg.Settings.DownloadBaseDelay)
	_, _ = fmt.Fprintf(tabWriter, "search_limit\t%d\n", cfg.Settings.SearchLimit)
	_, _ = fmt.Fprintf(tabWriter, "log_level\t%s\n", cfg.Settings.LogLevel)
	return tabWriter.Flush()
}

func runConfigInit(force bool) error {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(path); statErr == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.DefaultConfig()
	if err := cfg.SaveConfig(path); err != nil {
		return err
	}

	logger.Info("Configuration file created", logger.Fields{"path": path})
	return nil
}
