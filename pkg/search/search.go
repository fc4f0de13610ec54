// Package search implements the query engine over in-memory catalogs. It is
// pure computation: callers fetch the catalogs, search never blocks on I/O.
package search

import (
	"sort"
	"strings"

	"github.com/cperrin88/brewse/pkg/model"
)

// Results is the outcome of one search across both catalogs. The Total
// counters carry the pre-truncation match counts so the UI can show
// "20 of 7341".
type Results struct {
	Formulae      model.Catalog
	Casks         model.Catalog
	TotalFormulae int
	TotalCasks    int
}

// match ranks, lower is better. Exact identity beats identity prefix beats
// any other substring hit.
const (
	rankExact = iota
	rankPrefix
	rankSubstring
)

// Search filters and ranks both catalogs for a query. An empty query matches
// everything, truncated per side to limit with catalog order preserved.
// limit <= 0 means unlimited. The input catalogs are not modified.
func Search(formulae, casks model.Catalog, query string, limit int) Results {
	res := Results{}
	res.Formulae, res.TotalFormulae = searchOne(formulae, query, limit)
	res.Casks, res.TotalCasks = searchOne(casks, query, limit)
	return res
}

func searchOne(catalog model.Catalog, query string, limit int) (model.Catalog, int) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return truncate(catalog, limit), len(catalog)
	}

	type scored struct {
		rec  *model.Record
		rank int
	}
	var matches []scored
	for _, rec := range catalog {
		rank, ok := rankRecord(rec, query)
		if !ok {
			continue
		}
		matches = append(matches, scored{rec: rec, rank: rank})
	}

	// Stable sort so equal-rank records keep a deterministic identity order.
	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].rank != matches[b].rank {
			return matches[a].rank < matches[b].rank
		}
		return matches[a].rec.Name < matches[b].rec.Name
	})

	out := make(model.Catalog, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.rec)
	}
	return truncate(out, limit), len(matches)
}

func rankRecord(rec *model.Record, query string) (int, bool) {
	name := strings.ToLower(rec.Name)
	switch {
	case name == query:
		return rankExact, true
	case strings.HasPrefix(name, query):
		return rankPrefix, true
	case strings.Contains(name, query):
		return rankSubstring, true
	}

	for _, display := range rec.Names {
		if strings.Contains(strings.ToLower(display), query) {
			return rankSubstring, true
		}
	}
	if strings.Contains(strings.ToLower(rec.Desc), query) {
		return rankSubstring, true
	}
	return 0, false
}

func truncate(catalog model.Catalog, limit int) model.Catalog {
	if limit <= 0 || len(catalog) <= limit {
		return catalog
	}
	return catalog[:limit]
}
