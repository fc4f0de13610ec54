package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/cperrin88/brewse/pkg/download"
	"github.com/cperrin88/brewse/pkg/errors"
	"github.com/cperrin88/brewse/pkg/model"
)

// FreshnessChecker decides whether the on-disk artifact for a remote URL is
// still current. Implemented by freshness.HTTPChecker.
type FreshnessChecker interface {
	Fresh(ctx context.Context, url, artifactPath string) bool
}

// Cache orchestrates freshness checks, downloads, and parsing into one
// "get current data" operation per source. It owns the on-disk artifacts
// and the in-flight request table; callers never touch cached bytes
// directly.
//
// Concurrent Get calls for the same source share a single underlying fetch
// via singleflight. The fetch runs on a context detached from any single
// caller, so one caller canceling does not abort the download for the
// others; it is torn down only when every waiter has gone away.
type Cache struct {
	fetcher download.Fetcher
	checker FreshnessChecker
	dir     string
	urls    map[Source]string

	group singleflight.Group

	mu      sync.Mutex
	mem     map[Source]model.Catalog
	flights map[Source]*flight
}

// flight tracks the waiters attached to one in-flight fetch so the detached
// fetch context can be canceled once nobody is listening.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New creates a cache storing artifacts under dir, one per source.
func New(fetcher download.Fetcher, checker FreshnessChecker, dir string, urls map[Source]string) *Cache {
	return &Cache{
		fetcher: fetcher,
		checker: checker,
		dir:     dir,
		urls:    urls,
		mem:     make(map[Source]model.Catalog),
		flights: make(map[Source]*flight),
	}
}

// ArtifactPath returns the canonical on-disk location for a source.
func (c *Cache) ArtifactPath(src Source) string {
	return filepath.Join(c.dir, string(src)+".json")
}

// Get returns the current catalog for a source. Once a source has parsed
// successfully the in-memory value is served for the remainder of the
// process; use Refresh to force a re-download.
//
// onProgress is honored for the caller that initiates the underlying fetch;
// callers that attach to an already-running fetch share its result but
// receive no progress reports.
func (c *Cache) Get(ctx context.Context, src Source, onProgress model.ProgressFunc) (model.Catalog, error) {
	if _, ok := c.urls[src]; !ok {
		return nil, errors.Wrapf(errors.ErrSourceUnknown, "%s", src)
	}

	c.mu.Lock()
	if cat, ok := c.mem[src]; ok {
		c.mu.Unlock()
		return cat.Clone(), nil
	}
	c.mu.Unlock()

	return c.fetch(ctx, src, onProgress, false)
}

// Refresh discards the in-memory catalog for a source and fetches anew,
// bypassing the freshness check. A Refresh issued while a plain Get is
// already in flight attaches to that fetch instead of starting a second
// artifact-mutating operation for the same source.
func (c *Cache) Refresh(ctx context.Context, src Source, onProgress model.ProgressFunc) (model.Catalog, error) {
	if _, ok := c.urls[src]; !ok {
		return nil, errors.Wrapf(errors.ErrSourceUnknown, "%s", src)
	}

	c.mu.Lock()
	delete(c.mem, src)
	c.mu.Unlock()

	return c.fetch(ctx, src, onProgress, true)
}

func (c *Cache) fetch(ctx context.Context, src Source, onProgress model.ProgressFunc, force bool) (model.Catalog, error) {
	fl := c.addWaiter(src)
	defer c.dropWaiter(src, fl)

	ch := c.group.DoChan(string(src), func() (any, error) {
		return c.doFetch(fl.ctx, src, onProgress, force)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			// Allow the next caller to retry instead of sharing the failure.
			c.group.Forget(string(src))
			return nil, res.Err
		}
		return res.Val.(model.Catalog).Clone(), nil
	case <-ctx.Done():
		return nil, errors.Wrapf(errors.ErrAborted, "catalog fetch for %s canceled", src)
	}
}

func (c *Cache) addWaiter(src Source) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	fl, ok := c.flights[src]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		fl = &flight{ctx: ctx, cancel: cancel}
		c.flights[src] = fl
	}
	fl.waiters++
	return fl
}

func (c *Cache) dropWaiter(src Source, fl *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fl.waiters--
	if fl.waiters == 0 && c.flights[src] == fl {
		// Last caller gone: abort the detached fetch promptly and forget
		// the doomed singleflight call so the next Get starts a fresh one
		// instead of attaching to it.
		fl.cancel()
		delete(c.flights, src)
		c.group.Forget(string(src))
	}
}

// doFetch runs at most once per source at a time (singleflight). It decides
// freshness, downloads when needed, parses, and publishes the result to the
// in-memory cache.
func (c *Cache) doFetch(ctx context.Context, src Source, onProgress model.ProgressFunc, force bool) (model.Catalog, error) {
	artifact := c.ArtifactPath(src)
	url := c.urls[src]

	if force || !c.checker.Fresh(ctx, url, artifact) {
		// Suppress the fetcher's terminal phase; the parse step below owns
		// Processing and Complete.
		if err := c.fetcher.Download(ctx, url, artifact, downloadPhases(onProgress)); err != nil {
			return nil, err
		}
	}

	cat, err := c.parseArtifact(artifact, src.Kind(), onProgress)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.mem[src] = cat
	c.mu.Unlock()
	return cat, nil
}

// parseArtifact streams the artifact through the parser. A parse failure
// deletes the corrupted artifact so the next attempt re-downloads instead of
// re-reading the same bad bytes. The error itself propagates to the caller.
func (c *Cache) parseArtifact(artifact string, kind model.Kind, onProgress model.ProgressFunc) (model.Catalog, error) {
	file, err := os.Open(artifact)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open catalog artifact %s", artifact)
	}
	defer func() { _ = file.Close() }()

	const itemReportEvery = 2048
	var items int
	cat, err := ParseAll(file, kind, func(*model.Record) {
		items++
		if onProgress != nil && items%itemReportEvery == 0 {
			onProgress(model.Progress{Phase: model.PhaseProcessing, ItemsDone: items})
		}
	})
	if err != nil {
		_ = os.Remove(artifact)
		if onProgress != nil {
			onProgress(model.Progress{Phase: model.PhaseFailed, ItemsDone: items})
		}
		return nil, err
	}

	if onProgress != nil {
		onProgress(model.Progress{Phase: model.PhaseComplete, ItemsDone: items, ItemsTotal: items})
	}
	return cat, nil
}

func downloadPhases(fn model.ProgressFunc) model.ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(p model.Progress) {
		if p.Phase >= model.PhaseComplete {
			return
		}
		fn(p)
	}
}
