// Package model defines the data types shared between the catalog cache,
// the brew state fetcher, and the search engine.
package model

// Kind discriminates the two package variants of the Homebrew ecosystem.
// The discriminant is always set explicitly at construction, never inferred
// from which optional fields happen to be present.
type Kind string

const (
	// KindFormula is a command-line package.
	KindFormula Kind = "formula"
	// KindCask is a GUI application package.
	KindCask Kind = "cask"
)

// Record is one package entry of either variant. The two identity spaces are
// independent: a formula and a cask may share a Name.
type Record struct {
	Kind     Kind     `json:"kind"`
	Name     string   `json:"name"`
	Names    []string `json:"names,omitempty"` // display names; casks carry several
	Desc     string   `json:"desc,omitempty"`
	Homepage string   `json:"homepage,omitempty"`
	Version  string   `json:"version,omitempty"` // latest upstream version

	Dependencies      []string `json:"dependencies,omitempty"`
	InstalledVersions []string `json:"installed_versions,omitempty"` // empty when not installed

	Outdated    bool `json:"outdated,omitempty"`
	Pinned      bool `json:"pinned,omitempty"`       // formulae only
	AutoUpdates bool `json:"auto_updates,omitempty"` // casks only
}

// Installed reports whether at least one version of the package is installed.
func (r *Record) Installed() bool {
	return len(r.InstalledVersions) > 0
}

// DisplayName returns the primary human-readable name, falling back to the
// identity when no display names are present.
func (r *Record) DisplayName() string {
	if len(r.Names) > 0 {
		return r.Names[0]
	}
	return r.Name
}

// Clone returns a deep copy of the record. The cache hands out clones so
// callers can annotate them (e.g. with installed state) without corrupting
// the shared in-memory catalog.
func (r *Record) Clone() *Record {
	out := *r
	out.Names = append([]string(nil), r.Names...)
	out.Dependencies = append([]string(nil), r.Dependencies...)
	out.InstalledVersions = append([]string(nil), r.InstalledVersions...)
	return &out
}

// Catalog is an ordered sequence of records of one variant. Order is stable
// across repeated reads of the same cached artifact.
type Catalog []*Record

// Clone returns a deep copy of the catalog.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return nil
	}
	out := make(Catalog, len(c))
	for i, r := range c {
		out[i] = r.Clone()
	}
	return out
}

// Find returns the record with the given identity, or nil.
func (c Catalog) Find(name string) *Record {
	for _, r := range c {
		if r.Name == name {
			return r
		}
	}
	return nil
}
