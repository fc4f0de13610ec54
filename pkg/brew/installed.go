package brew

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cperrin88/brewse/pkg/errors"
	"github.com/cperrin88/brewse/pkg/freshness"
	"github.com/cperrin88/brewse/pkg/fsutil"
	"github.com/cperrin88/brewse/pkg/model"
)

// State is the installed-package view of the local Homebrew prefix.
// Complete distinguishes the rich full-path result from the sparse fast-path
// one; Coalesce uses it so sparse data never overwrites rich data.
type State struct {
	Formulae  model.Catalog `json:"formulae"`
	Casks     model.Catalog `json:"casks"`
	Complete  bool          `json:"complete"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Find returns the installed record of the given kind, or nil.
func (s *State) Find(kind model.Kind, name string) *model.Record {
	if s == nil {
		return nil
	}
	if kind == model.KindCask {
		return s.Casks.Find(name)
	}
	return s.Formulae.Find(name)
}

// Installed fetches installed-package state in two phases: Fast returns
// something usable immediately, Full returns the authoritative rich state.
type Installed struct {
	runner    Runner
	cachePath string
	sentinels []string
}

// NewInstalled creates an installed-state fetcher persisting its full results
// to cachePath. sentinels are the Homebrew paths whose mtimes invalidate that
// persisted state (see freshness.DefaultSentinels).
func NewInstalled(runner Runner, cachePath string, sentinels []string) *Installed {
	return &Installed{runner: runner, cachePath: cachePath, sentinels: sentinels}
}

// Fast returns installed state as quickly as possible: the persisted full
// state when one exists, otherwise minimal records synthesized from
// `brew list --versions`. The result may be stale or sparse; callers wanting
// authoritative data follow up with Full and coalesce.
func (i *Installed) Fast(ctx context.Context) (*State, error) {
	if state, err := i.readCache(); err == nil {
		return state, nil
	}

	formulae, err := i.listVersions(ctx, false)
	if err != nil {
		return nil, err
	}
	casks, err := i.listVersions(ctx, true)
	if err != nil {
		return nil, err
	}

	return &State{
		Formulae:  formulae,
		Casks:     casks,
		FetchedAt: time.Now(),
	}, nil
}

// Full returns the rich installed state from `brew info --json=v2
// --installed` and persists it for later Fast calls. With useCache set, a
// persisted state still newer than every Homebrew sentinel is returned
// without running brew at all.
func (i *Installed) Full(ctx context.Context, useCache bool) (*State, error) {
	if useCache && freshness.FreshAgainst(i.cachePath, i.sentinels) {
		if state, err := i.readCache(); err == nil && state.Complete {
			return state, nil
		}
	}

	out, err := i.runner.Output(ctx, "info", "--json=v2", "--installed")
	if err != nil {
		return nil, err
	}

	state, err := parseInfoV2(out)
	if err != nil {
		return nil, err
	}

	// Persisting is best effort; a read-only cache dir only costs speed.
	_ = i.persist(state)
	return state, nil
}

// Coalesce merges a newly arrived state into the currently displayed one.
// Richer data wins: once a Complete state has been delivered, a later sparse
// one never replaces it.
func Coalesce(current, next *State) *State {
	if next == nil {
		return current
	}
	if current != nil && current.Complete && !next.Complete {
		return current
	}
	return next
}

func (i *Installed) listVersions(ctx context.Context, cask bool) (model.Catalog, error) {
	args := []string{"list", "--versions"}
	kind := model.KindFormula
	if cask {
		args = []string{"list", "--cask", "--versions"}
		kind = model.KindCask
	}

	out, err := i.runner.Output(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseListVersions(out, kind), nil
}

// parseListVersions turns `brew list --versions` lines ("git 2.48.1 2.49.0")
// into minimal records carrying only identity and installed versions.
func parseListVersions(out []byte, kind model.Kind) model.Catalog {
	var catalog model.Catalog
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		catalog = append(catalog, &model.Record{
			Kind:              kind,
			Name:              fields[0],
			InstalledVersions: fields[1:],
		})
	}
	sort.Slice(catalog, func(a, b int) bool { return catalog[a].Name < catalog[b].Name })
	return catalog
}

// infoV2Output mirrors the `brew info --json=v2` envelope, limited to the
// fields the record model carries.
type infoV2Output struct {
	Formulae []struct {
		Name     string `json:"name"`
		Desc     string `json:"desc"`
		Homepage string `json:"homepage"`
		Versions struct {
			Stable string `json:"stable"`
		} `json:"versions"`
		Dependencies []string `json:"dependencies"`
		Installed    []struct {
			Version string `json:"version"`
		} `json:"installed"`
		Outdated bool `json:"outdated"`
		Pinned   bool `json:"pinned"`
	} `json:"formulae"`
	Casks []struct {
		Token       string   `json:"token"`
		Name        []string `json:"name"`
		Desc        string   `json:"desc"`
		Homepage    string   `json:"homepage"`
		Version     string   `json:"version"`
		Installed   string   `json:"installed"`
		Outdated    bool     `json:"outdated"`
		AutoUpdates bool     `json:"auto_updates"`
	} `json:"casks"`
}

// parseInfoV2 decodes the full info payload. Unlike the bulk catalogs this
// is bounded by what is installed locally, so a plain unmarshal is fine.
func parseInfoV2(out []byte) (*State, error) {
	var payload infoV2Output
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "brew info output: %v", err)
	}

	state := &State{Complete: true, FetchedAt: time.Now()}
	for _, f := range payload.Formulae {
		rec := &model.Record{
			Kind:         model.KindFormula,
			Name:         f.Name,
			Desc:         f.Desc,
			Homepage:     f.Homepage,
			Version:      f.Versions.Stable,
			Dependencies: f.Dependencies,
			Outdated:     f.Outdated,
			Pinned:       f.Pinned,
		}
		for _, inst := range f.Installed {
			rec.InstalledVersions = append(rec.InstalledVersions, inst.Version)
		}
		state.Formulae = append(state.Formulae, rec)
	}
	for _, c := range payload.Casks {
		rec := &model.Record{
			Kind:        model.KindCask,
			Name:        c.Token,
			Names:       c.Name,
			Desc:        c.Desc,
			Homepage:    c.Homepage,
			Version:     c.Version,
			Outdated:    c.Outdated,
			AutoUpdates: c.AutoUpdates,
		}
		if c.Installed != "" {
			rec.InstalledVersions = []string{c.Installed}
		}
		state.Casks = append(state.Casks, rec)
	}
	return state, nil
}

func (i *Installed) readCache() (*State, error) {
	data, err := os.ReadFile(i.cachePath)
	if err != nil {
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "installed state cache %s: %v", i.cachePath, err)
	}
	return &state, nil
}

func (i *Installed) persist(state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "marshaling installed state")
	}
	tmp := i.cachePath + ".tmp"
	if err := fsutil.EnsureFileDir(tmp); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, fsutil.FileModeSecure); err != nil {
		return errors.Wrap(err, "writing installed state cache")
	}
	return fsutil.Move(tmp, i.cachePath)
}
