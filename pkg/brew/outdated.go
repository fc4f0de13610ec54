package brew

import (
	"context"
	"encoding/json"

	goversion "github.com/hashicorp/go-version"

	"github.com/cperrin88/brewse/pkg/errors"
	"github.com/cperrin88/brewse/pkg/model"
)

// OutdatedPackage is one entry of the outdated report.
type OutdatedPackage struct {
	Kind              model.Kind `json:"kind"`
	Name              string     `json:"name"`
	InstalledVersions []string   `json:"installed_versions"`
	CurrentVersion    string     `json:"current_version"`
	Pinned            bool       `json:"pinned"`
}

// OutdatedReport lists packages with a newer version available.
type OutdatedReport struct {
	Formulae []OutdatedPackage `json:"formulae"`
	Casks    []OutdatedPackage `json:"casks"`
}

// Empty reports whether nothing is outdated.
func (r *OutdatedReport) Empty() bool {
	return len(r.Formulae) == 0 && len(r.Casks) == 0
}

// outdatedV2Output mirrors the `brew outdated --json=v2` envelope.
type outdatedV2Output struct {
	Formulae []struct {
		Name              string   `json:"name"`
		InstalledVersions []string `json:"installed_versions"`
		CurrentVersion    string   `json:"current_version"`
		Pinned            bool     `json:"pinned"`
	} `json:"formulae"`
	Casks []struct {
		Name              string   `json:"name"`
		InstalledVersions []string `json:"installed_versions"`
		CurrentVersion    string   `json:"current_version"`
	} `json:"casks"`
}

// Outdated runs `brew update` followed by `brew outdated --json=v2` and
// returns the parsed report. skipUpdate drops the update step; the report is
// then only as current as the local taps, which is the caller's trade-off to
// make.
func Outdated(ctx context.Context, runner Runner, skipUpdate bool) (*OutdatedReport, error) {
	if !skipUpdate {
		if _, err := runner.Output(ctx, "update"); err != nil {
			return nil, err
		}
	}

	out, err := runner.Output(ctx, "outdated", "--json=v2")
	if err != nil {
		return nil, err
	}

	var payload outdatedV2Output
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "brew outdated output: %v", err)
	}

	report := &OutdatedReport{}
	for _, f := range payload.Formulae {
		report.Formulae = append(report.Formulae, OutdatedPackage{
			Kind:              model.KindFormula,
			Name:              f.Name,
			InstalledVersions: f.InstalledVersions,
			CurrentVersion:    f.CurrentVersion,
			Pinned:            f.Pinned,
		})
	}
	for _, c := range payload.Casks {
		report.Casks = append(report.Casks, OutdatedPackage{
			Kind:              model.KindCask,
			Name:              c.Name,
			InstalledVersions: c.InstalledVersions,
			CurrentVersion:    c.CurrentVersion,
		})
	}
	return report, nil
}

// VersionNewer reports whether latest is strictly newer than installed.
// Homebrew versions are close enough to semver for go-version most of the
// time; revision suffixes and date-based cask versions that do not parse
// fall back to plain inequality.
func VersionNewer(latest, installed string) bool {
	if latest == "" || installed == "" {
		return false
	}
	lv, lerr := goversion.NewVersion(latest)
	iv, ierr := goversion.NewVersion(installed)
	if lerr != nil || ierr != nil {
		return latest != installed
	}
	return lv.GreaterThan(iv)
}

// MarkOutdated sets the Outdated flag on catalog records whose newest
// installed version lags the catalog version. Used to enrich fast-path
// records, which brew's cheap listing leaves unflagged.
func MarkOutdated(catalog model.Catalog) {
	for _, rec := range catalog {
		if !rec.Installed() || rec.Outdated {
			continue
		}
		newest := rec.InstalledVersions[len(rec.InstalledVersions)-1]
		rec.Outdated = VersionNewer(rec.Version, newest)
	}
}
