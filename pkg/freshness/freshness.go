// Package freshness decides whether a cached artifact is still valid. Two
// independent rules exist: an HTTP rule driven by the remote Last-Modified
// header, and a filesystem rule driven by the modification times of sentinel
// paths that Homebrew mutates when local state changes (installs, pins,
// links). The cache selects the rule per data source.
package freshness

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cperrin88/brewse/pkg/errors"
)

// HTTPChecker implements the HTTP freshness rule with metadata-only requests.
type HTTPChecker struct {
	client    *http.Client
	userAgent string
}

// NewHTTPChecker creates a checker with the given timeout.
func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: "brewse/1.0",
	}
}

// Fresh reports whether the artifact at artifactPath is still current with
// respect to the remote resource. It issues a HEAD request and compares the
// Last-Modified header to the artifact's modification time.
//
// Stale when the artifact is missing or zero-length, or the remote copy is
// newer. Any failure to reach the network or to read the header means
// freshness cannot be confirmed, which also reports stale: the fail-safe is
// to re-fetch, never to silently serve data of unknown age.
func (hc *HTTPChecker) Fresh(ctx context.Context, url, artifactPath string) bool {
	info, err := os.Stat(artifactPath)
	if err != nil || info.Size() == 0 {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", hc.userAgent)

	resp, err := hc.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	lastModified := resp.Header.Get("Last-Modified")
	if lastModified == "" {
		return false
	}
	remote, err := http.ParseTime(lastModified)
	if err != nil {
		return false
	}

	return !remote.After(info.ModTime())
}

// FreshAgainst implements the filesystem freshness rule: the artifact is
// fresh only if it is strictly newer than every sentinel path. A sentinel
// that does not exist contributes the zero time, so an absent pinned-state
// marker never forces a refresh on its own.
func FreshAgainst(artifactPath string, sentinels []string) bool {
	info, err := os.Stat(artifactPath)
	if err != nil || info.Size() == 0 {
		return false
	}
	return info.ModTime().After(MaxMTime(sentinels))
}

// MaxMTime returns the newest modification time among the given paths.
// Missing paths count as the zero time.
func MaxMTime(paths []string) time.Time {
	var max time.Time
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.ModTime().After(max) {
			max = info.ModTime()
		}
	}
	return max
}

// DefaultSentinels returns the Homebrew state paths whose mtimes proxy for
// local mutations under the given installation prefix.
func DefaultSentinels(prefix string) []string {
	return []string{
		filepath.Join(prefix, "var", "homebrew", "locks"),
		filepath.Join(prefix, "var", "homebrew", "pinned"),
		filepath.Join(prefix, "Cellar"),
		filepath.Join(prefix, "Caskroom"),
	}
}

// Validate rejects an empty sentinel set, which would make every non-empty
// artifact permanently fresh.
func Validate(sentinels []string) error {
	if len(sentinels) == 0 {
		return errors.Wrap(errors.ErrInvalidPath, "sentinel path list cannot be empty")
	}
	return nil
}
