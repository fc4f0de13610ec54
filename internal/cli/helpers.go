package cli

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/cperrin88/brewse/internal/logger"
	"github.com/cperrin88/brewse/pkg/brew"
	"github.com/cperrin88/brewse/pkg/catalog"
	"github.com/cperrin88/brewse/pkg/config"
	"github.com/cperrin88/brewse/pkg/download"
	"github.com/cperrin88/brewse/pkg/errors"
	"github.com/cperrin88/brewse/pkg/freshness"
	"github.com/cperrin88/brewse/pkg/model"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
)

// loadConfig resolves and loads the configuration, applies CLI flag
// overrides, and initializes the global logger.
func loadConfig() (*config.Config, error) {
	configPath := ""
	if ConfigPath != nil {
		configPath = *ConfigPath
	}
	if configPath == "" {
		defaultPath, err := config.GetDefaultConfigPath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get default config path")
		}
		configPath = defaultPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	logger.InitLogger(cfg.Settings.LogLevel)

	return cfg, nil
}

// newCatalogCache wires the fetch pipeline: retrying downloader, HTTP
// freshness checker, and the deduplicating catalog cache.
func newCatalogCache(cfg *config.Config) *catalog.Cache {
	fetcher := download.NewFetcher("", cfg.Settings.DownloadBaseDelay)
	checker := freshness.NewHTTPChecker(cfg.Settings.HTTPTimeout)
	urls := map[catalog.Source]string{
		catalog.SourceFormula: cfg.Endpoints.FormulaURL,
		catalog.SourceCask:    cfg.Endpoints.CaskURL,
	}
	return catalog.New(fetcher, checker, cfg.GetCatalogDir(), urls)
}

// newInstalled wires the brew subprocess runner and the installed-state
// fetcher with the platform's staleness sentinels.
func newInstalled(cfg *config.Config) *brew.Installed {
	runner := brew.NewRunner(cfg.Settings.BrewPath)
	sentinels := freshness.DefaultSentinels(cfg.Settings.BrewPrefix)
	return brew.NewInstalled(runner, cfg.GetInstalledCachePath(), sentinels)
}

// fetchCatalogs loads both catalogs concurrently. Either fetch failing (or
// the context being canceled) fails the whole operation.
func fetchCatalogs(ctx context.Context, cache *catalog.Cache) (formulae, casks model.Catalog, err error) {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var gerr error
		formulae, gerr = cache.Get(gctx, catalog.SourceFormula, nil)
		return gerr
	})
	group.Go(func() error {
		var gerr error
		casks, gerr = cache.Get(gctx, catalog.SourceCask, nil)
		return gerr
	})
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	return formulae, casks, nil
}

// annotateInstalled copies installed state from a brew state snapshot onto
// catalog records and derives the outdated flag for sparse entries.
func annotateInstalled(cat model.Catalog, state *brew.State) {
	if state == nil {
		return
	}
	for _, rec := range cat {
		inst := state.Find(rec.Kind, rec.Name)
		if inst == nil {
			continue
		}
		rec.InstalledVersions = append([]string(nil), inst.InstalledVersions...)
		rec.Pinned = rec.Pinned || inst.Pinned
		rec.Outdated = rec.Outdated || inst.Outdated
	}
	brew.MarkOutdated(cat)
}

// progressPrinter renders download progress for one catalog on stderr.
// Reports arrive throttled from the fetch pipeline, so printing every one
// is fine.
func progressPrinter(label string) model.ProgressFunc {
	return func(p model.Progress) {
		switch p.Phase {
		case model.PhaseDownloading:
			if pct := p.Percent(); pct >= 0 {
				fmt.Fprintf(os.Stderr, "\r%s: downloading %3.0f%%", label, pct)
			} else {
				fmt.Fprintf(os.Stderr, "\r%s: downloading %d bytes", label, p.BytesDone)
			}
		case model.PhaseProcessing:
			fmt.Fprintf(os.Stderr, "\r%s: processing %d packages", label, p.ItemsDone)
		case model.PhaseComplete:
			fmt.Fprintf(os.Stderr, "\r%s: done (%d packages)\n", label, p.ItemsTotal)
		case model.PhaseFailed:
			fmt.Fprintf(os.Stderr, "\r%s: failed\n", label)
		}
	}
}

// reportError maps the error taxonomy to user-facing messages. Cancellation
// is not a failure and lock contention gets a hint instead of a stack of
// wrapped errors.
func reportError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.IsAborted(err):
		logger.Debug("operation canceled")
		return nil
	case errors.IsLock(err):
		return fmt.Errorf("Homebrew is busy (another brew process is running), try again in a moment")
	default:
		return err
	}
}

// truncateString shortens a string for tabular display.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
