// Package catalog provides the remote catalog cache: a streaming JSON parser
// for the bulk Homebrew catalogs plus an orchestrating cache that combines
// freshness checks, retrying downloads, and in-flight request deduplication
// into a single "get current data" operation per source.
package catalog

import (
	"github.com/cperrin88/brewse/pkg/model"
)

// Source identifies one remote catalog. The source name doubles as the
// artifact file identity (<source>.json) in the cache directory.
type Source string

const (
	// SourceFormula is the bulk formula catalog.
	SourceFormula Source = "formula"
	// SourceCask is the bulk cask catalog.
	SourceCask Source = "cask"
)

// Kind returns the record variant produced by this source.
func (s Source) Kind() model.Kind {
	if s == SourceCask {
		return model.KindCask
	}
	return model.KindFormula
}
