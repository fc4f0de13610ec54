package download

import (
	"context"

	"github.com/cperrin88/brewse/pkg/model"
)

//go:generate mockgen -destination=./mocks/download.go -package=mocks . Fetcher

// Fetcher downloads a remote resource to local storage. It is the only
// component allowed to replace a catalog artifact on disk; the artifact is
// published atomically so concurrent readers never observe a partial write.
type Fetcher interface {
	// Download fetches url into dest, reporting byte-level progress to
	// onProgress (which may be nil). On failure dest is left untouched.
	Download(ctx context.Context, url, dest string, onProgress model.ProgressFunc) error
}
