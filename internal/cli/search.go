package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cperrin88/brewse/pkg/model"
	"github.com/cperrin88/brewse/pkg/search"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var (
		limit         int
		formulaOnly   bool
		caskOnly      bool
		installedOnly bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for packages",
		Long: `Search formulae and casks by name and description.

Matches are ranked: an exact name match first, then name prefixes, then any
other substring hit. Formulae and casks are searched independently and shown
in separate sections.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportError(runSearch(cmd, args[0], limit, formulaOnly, caskOnly, installedOnly))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results per section (default from config)")
	cmd.Flags().BoolVar(&formulaOnly, "formula", false, "search formulae only")
	cmd.Flags().BoolVar(&caskOnly, "cask", false, "search casks only")
	cmd.Flags().BoolVar(&installedOnly, "installed", false, "only show installed packages")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, limit int, formulaOnly, caskOnly, installedOnly bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = cfg.Settings.SearchLimit
	}

	cache := newCatalogCache(cfg)
	formulae, casks, err := fetchCatalogs(cmd.Context(), cache)
	if err != nil {
		return err
	}
	if caskOnly {
		formulae = nil
	}
	if formulaOnly {
		casks = nil
	}

	// Installed state is advisory here; search must still work without brew.
	if state, stateErr := newInstalled(cfg).Fast(cmd.Context()); stateErr == nil {
		annotateInstalled(formulae, state)
		annotateInstalled(casks, state)
	}

	if installedOnly {
		formulae = filterInstalled(formulae)
		casks = filterInstalled(casks)
	}

	results := search.Search(formulae, casks, query, limit)
	if len(results.Formulae) == 0 && len(results.Casks) == 0 {
		fmt.Printf("No packages found matching '%s'\n", query)
		return nil
	}

	printResultSection("Formulae", results.Formulae, results.TotalFormulae)
	printResultSection("Casks", results.Casks, results.TotalCasks)
	return nil
}

func filterInstalled(cat model.Catalog) model.Catalog {
	var out model.Catalog
	for _, rec := range cat {
		if rec.Installed() {
			out = append(out, rec)
		}
	}
	return out
}

func printResultSection(title string, records model.Catalog, total int) {
	if len(records) == 0 {
		return
	}

	fmt.Printf("\n%s:\n", title)
	fmt.Println(strings.Repeat("-", 90))
	fmt.Printf("%-30s %-15s %-4s %s\n", "NAME", "VERSION", "", "DESCRIPTION")
	fmt.Println(strings.Repeat("-", 90))

	for _, rec := range records {
		marker := ""
		switch {
		case rec.Outdated:
			marker = "(o)"
		case rec.Installed():
			marker = "(i)"
		}
		fmt.Printf("%-30s %-15s %-4s %s\n",
			truncateString(rec.Name, 30),
			truncateString(rec.Version, MaxVersionLength),
			marker,
			truncateString(rec.Desc, MaxSearchDescriptionLength))
	}

	if total > len(records) {
		fmt.Printf("... and %d more (raise --limit to see them)\n", total-len(records))
	}
}
