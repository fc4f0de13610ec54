package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cperrin88/brewse/pkg/brew"
)

// NewOutdatedCmd creates the outdated command.
func NewOutdatedCmd() *cobra.Command {
	var skipUpdate bool

	cmd := &cobra.Command{
		Use:   "outdated",
		Short: "Show packages with newer versions available",
		Long: `Run 'brew update' and report outdated formulae and casks.

--skip-update skips the tap refresh; the report is then only as current as
the last update.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return reportError(runOutdated(cmd, skipUpdate))
		},
	}

	cmd.Flags().BoolVar(&skipUpdate, "skip-update", false, "do not run 'brew update' first")

	return cmd
}

func runOutdated(cmd *cobra.Command, skipUpdate bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner := brew.NewRunner(cfg.Settings.BrewPath)
	report, err := brew.Outdated(cmd.Context(), runner, skipUpdate)
	if err != nil {
		return err
	}

	if report.Empty() {
		fmt.Println("Everything is up to date.")
		return nil
	}

	printOutdatedSection("Formulae", report.Formulae)
	printOutdatedSection("Casks", report.Casks)
	fmt.Printf("\n%d outdated package(s)\n", len(report.Formulae)+len(report.Casks))
	return nil
}

func printOutdatedSection(title string, packages []brew.OutdatedPackage) {
	if len(packages) == 0 {
		return
	}

	fmt.Printf("\n%s:\n", title)
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("%-30s %-15s %-15s %s\n", "NAME", "INSTALLED", "CURRENT", "")
	fmt.Println(strings.Repeat("-", 70))

	for _, pkg := range packages {
		marker := ""
		if pkg.Pinned {
			marker = "(pinned)"
		}
		fmt.Printf("%-30s %-15s %-15s %s\n",
			truncateString(pkg.Name, 30),
			truncateString(strings.Join(pkg.InstalledVersions, ", "), MaxVersionLength),
			truncateString(pkg.CurrentVersion, MaxVersionLength),
			marker)
	}
}
