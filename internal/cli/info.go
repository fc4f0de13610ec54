package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cperrin88/brewse/pkg/catalog"
	"github.com/cperrin88/brewse/pkg/model"
)

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	var caskOnly bool

	cmd := &cobra.Command{
		Use:   "info <name>",
		Short: "Show package details",
		Long: `Show catalog and installed-state details for one package.

Formulae and casks have independent namespaces; when a name exists in both,
the formula is shown unless --cask is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportError(runInfo(cmd, args[0], caskOnly))
		},
	}

	cmd.Flags().BoolVar(&caskOnly, "cask", false, "treat the name as a cask")

	return cmd
}

func runInfo(cmd *cobra.Command, name string, caskOnly bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cache := newCatalogCache(cfg)

	var rec *model.Record
	if !caskOnly {
		formulae, ferr := cache.Get(cmd.Context(), catalog.SourceFormula, nil)
		if ferr != nil {
			return ferr
		}
		rec = formulae.Find(name)
	}
	if rec == nil {
		casks, cerr := cache.Get(cmd.Context(), catalog.SourceCask, nil)
		if cerr != nil {
			return cerr
		}
		rec = casks.Find(name)
	}
	if rec == nil {
		return fmt.Errorf("no formula or cask named %q", name)
	}

	// Enrich with local installed state when available.
	if state, stateErr := newInstalled(cfg).Fast(cmd.Context()); stateErr == nil {
		if inst := state.Find(rec.Kind, rec.Name); inst != nil {
			rec.InstalledVersions = append([]string(nil), inst.InstalledVersions...)
			rec.Pinned = rec.Pinned || inst.Pinned
			rec.Outdated = rec.Outdated || inst.Outdated
		}
	}

	printRecord(rec)
	return nil
}

func printRecord(rec *model.Record) {
	fmt.Printf("%s: %s\n", rec.Kind, rec.DisplayName())
	if rec.Desc != "" {
		fmt.Println(rec.Desc)
	}
	if rec.Homepage != "" {
		fmt.Println(rec.Homepage)
	}
	if rec.Version != "" {
		fmt.Printf("Latest version: %s\n", rec.Version)
	}

	if rec.Installed() {
		status := fmt.Sprintf("Installed: %s", strings.Join(rec.InstalledVersions, ", "))
		if rec.Outdated {
			status += " (outdated)"
		}
		if rec.Pinned {
			status += " (pinned)"
		}
		fmt.Println(status)
	} else {
		fmt.Println("Not installed")
	}

	if rec.Kind == model.KindCask && rec.AutoUpdates {
		fmt.Println("Auto-updates: yes")
	}
	if len(rec.Dependencies) > 0 {
		fmt.Printf("Dependencies: %s\n", strings.Join(rec.Dependencies, ", "))
	}
}
