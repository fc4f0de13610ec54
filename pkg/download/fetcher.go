// Package download implements the retrying HTTP fetcher for bulk catalog
// artifacts. Downloads stream to a temp file next to the destination and are
// moved into place only after a fully successful transfer. Transient network
// failures are retried a bounded number of times with linearly growing
// backoff; cancellation is classified separately from failure.
package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/cperrin88/brewse/pkg/errors"
	"github.com/cperrin88/brewse/pkg/fsutil"
	"github.com/cperrin88/brewse/pkg/model"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 2
	// DefaultBaseDelay is the backoff unit; the wait before retry N+1 is
	// N times this value.
	DefaultBaseDelay = 500 * time.Millisecond
	// ProgressInterval bounds the progress report rate so a slow consumer
	// is never overwhelmed.
	ProgressInterval = 100 * time.Millisecond
)

// HTTPFetcher is the HTTP implementation of Fetcher. The client carries no
// overall timeout: a hung transfer is bounded by the caller's cancellation,
// not by an internal timer.
type HTTPFetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
}

// NewFetcher creates a fetcher with the default retry policy.
func NewFetcher(userAgent string, baseDelay time.Duration) *HTTPFetcher {
	if userAgent == "" {
		userAgent = "brewse/1.0"
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &HTTPFetcher{
		client:     &http.Client{},
		userAgent:  userAgent,
		maxRetries: DefaultMaxRetries,
		baseDelay:  baseDelay,
	}
}

// errRecoverable tags failures worth retrying. Internal to this package;
// callers only ever see ErrNetwork or ErrAborted.
var errRecoverable = stderrors.New("recoverable")

func recoverable(err error) error {
	return fmt.Errorf("%w: %w", errRecoverable, err)
}

func isRecoverable(err error) bool {
	return stderrors.Is(err, errRecoverable)
}

// Download implements Fetcher.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL, dest string, onProgress model.ProgressFunc) error {
	if dest == "" || !filepath.IsAbs(dest) {
		return errors.Wrapf(errors.ErrInvalidPath, "destination must be absolute: %s", dest)
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		// Malformed URL: fail immediately, no retry will fix it.
		return errors.Wrapf(errors.ErrNetwork, "malformed url %s: %v", rawURL, err)
	}
	if err := fsutil.EnsureFileDir(dest); err != nil {
		return errors.Wrap(err, "could not create download dir")
	}

	rep := newReporter(onProgress)
	rep.phase(model.PhaseQueued)

	var lastErr error
	for attempt := 1; attempt <= f.maxRetries+1; attempt++ {
		err := f.attempt(ctx, rawURL, dest, rep)
		if err == nil {
			rep.phase(model.PhaseComplete)
			return nil
		}
		if errors.IsAborted(err) {
			rep.phase(model.PhaseFailed)
			return err
		}
		if !isRecoverable(err) {
			rep.phase(model.PhaseFailed)
			return err
		}
		lastErr = err

		if attempt <= f.maxRetries {
			if serr := sleepCtx(ctx, time.Duration(attempt)*f.baseDelay); serr != nil {
				rep.phase(model.PhaseFailed)
				return errors.Wrap(errors.ErrAborted, "canceled during retry backoff")
			}
		}
	}

	rep.phase(model.PhaseFailed)
	return lastErr
}

func (f *HTTPFetcher) attempt(ctx context.Context, rawURL, dest string, rep *reporter) error {
	rep.startAttempt()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return errors.Wrapf(errors.ErrNetwork, "failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")
	if rep.active() {
		// Progress needs a byte-accurate Content-Length, so force an
		// uncompressed transfer.
		req.Header.Set("Accept-Encoding", "identity")
	} else {
		req.Header.Set("Accept-Encoding", "gzip")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(errors.ErrAborted, "download canceled")
		}
		return classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		nerr := errors.Wrapf(errors.ErrNetwork, "unexpected status code: %d", resp.StatusCode)
		if retryableStatus(resp.StatusCode) {
			return recoverable(nerr)
		}
		return nerr
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return recoverable(errors.Wrapf(errors.ErrNetwork, "gzip stream: %v", err))
		}
		defer func() { _ = zr.Close() }()
		body = zr
	} else {
		rep.total(resp.ContentLength)
	}
	rep.phase(model.PhaseDownloading)

	tmpPath, err := f.writeBodyToTemp(body, dest, rep)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(errors.ErrAborted, "download canceled")
		}
		return err
	}

	if err := fsutil.Move(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "could not finalize download")
	}
	if err := os.Chmod(dest, fsutil.FileModeSecure); err != nil {
		return errors.Wrap(err, "could not set permissions")
	}
	return nil
}

// writeBodyToTemp streams the body into a sibling temp file so a failed or
// canceled transfer never touches the canonical destination.
func (f *HTTPFetcher) writeBodyToTemp(body io.Reader, dest string, rep *reporter) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "dl-*.tmp")
	if err != nil {
		return "", errors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(io.MultiWriter(tmp, rep), body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", recoverable(errors.Wrapf(errors.ErrNetwork, "transfer interrupted: %v", err))
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", errors.Wrap(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", errors.Wrap(err, "could not close file")
	}
	return tmpPath, nil
}

func classifyTransport(err error) error {
	nerr := errors.Wrapf(errors.ErrNetwork, "download failed: %v", err)

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return recoverable(nerr)
	}
	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		return recoverable(nerr)
	}
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		// Connection-level failures reported by the client are transient;
		// anything the URL parser rejected was caught before the first
		// attempt.
		return recoverable(nerr)
	}
	return nerr
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
