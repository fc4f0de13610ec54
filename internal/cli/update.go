package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cperrin88/brewse/internal/logger"
	"github.com/cperrin88/brewse/pkg/catalog"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Refresh the cached catalogs",
		Long: `Download fresh formula and cask catalogs, bypassing the freshness check.

Both catalogs are fetched concurrently with progress on stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return reportError(runUpdate(cmd))
		},
	}

	return cmd
}

func runUpdate(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cache := newCatalogCache(cfg)

	group, gctx := errgroup.WithContext(cmd.Context())
	group.Go(func() error {
		_, gerr := cache.Refresh(gctx, catalog.SourceFormula, progressPrinter("formulae"))
		return gerr
	})
	group.Go(func() error {
		_, gerr := cache.Refresh(gctx, catalog.SourceCask, progressPrinter("casks"))
		return gerr
	})
	if err := group.Wait(); err != nil {
		return err
	}

	logger.Info("Catalogs updated")
	return nil
}
