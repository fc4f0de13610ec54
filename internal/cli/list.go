package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cperrin88/brewse/internal/logger"
	"github.com/cperrin88/brewse/pkg/brew"
	"github.com/cperrin88/brewse/pkg/errors"
	"github.com/cperrin88/brewse/pkg/model"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Long: `List installed formulae and casks.

By default the cheap fast path is used: the persisted state snapshot when one
exists, otherwise a brew listing without descriptions. --full waits for the
authoritative state from brew, refreshing the snapshot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return reportError(runList(cmd, full))
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "fetch complete package details from brew")

	return cmd
}

func runList(cmd *cobra.Command, full bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	inst := newInstalled(cfg)

	// Fast result first; the full result replaces it only because it is
	// richer. If brew is busy we still have something to show.
	fast, fastErr := inst.Fast(cmd.Context())
	if fastErr != nil && errors.IsAborted(fastErr) {
		return fastErr
	}
	state := brew.Coalesce(nil, fast)

	if full {
		fullState, fullErr := inst.Full(cmd.Context(), true)
		switch {
		case fullErr == nil:
			state = brew.Coalesce(state, fullState)
		case errors.IsLock(fullErr) && state != nil:
			logger.Warn("Homebrew is busy, showing cached state")
		default:
			return fullErr
		}
	}
	if state == nil && fastErr != nil {
		return fastErr
	}

	if state == nil || (len(state.Formulae) == 0 && len(state.Casks) == 0) {
		fmt.Println("No packages installed.")
		return nil
	}

	printInstalledSection("Formulae", state.Formulae, state.Complete)
	printInstalledSection("Casks", state.Casks, state.Complete)
	fmt.Printf("\n%d formulae, %d casks installed\n", len(state.Formulae), len(state.Casks))
	return nil
}

func printInstalledSection(title string, records model.Catalog, complete bool) {
	if len(records) == 0 {
		return
	}

	fmt.Printf("\n%s:\n", title)
	fmt.Println(strings.Repeat("-", 90))
	if complete {
		fmt.Printf("%-30s %-15s %-4s %s\n", "NAME", "INSTALLED", "", "DESCRIPTION")
	} else {
		fmt.Printf("%-30s %s\n", "NAME", "INSTALLED")
	}
	fmt.Println(strings.Repeat("-", 90))

	for _, rec := range records {
		versions := strings.Join(rec.InstalledVersions, ", ")
		if complete {
			marker := ""
			if rec.Outdated {
				marker = "(o)"
			}
			if rec.Pinned {
				marker = "(p)"
			}
			fmt.Printf("%-30s %-15s %-4s %s\n",
				truncateString(rec.Name, 30),
				truncateString(versions, MaxVersionLength),
				marker,
				truncateString(rec.Desc, MaxDescriptionLength))
		} else {
			fmt.Printf("%-30s %s\n", truncateString(rec.Name, 30), versions)
		}
	}
}
