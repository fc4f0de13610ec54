// Package brew runs the local brew executable and turns its output into
// catalog records: installed packages via a cheap fast path and a rich full
// path, and outdated packages via the update/outdated flow.
package brew

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/cperrin88/brewse/pkg/errors"
)

//go:generate mockgen -destination=./mocks/brew.go -package=mocks . Runner

// Runner executes a brew subcommand and returns its stdout.
type Runner interface {
	Output(ctx context.Context, args ...string) ([]byte, error)
}

// Homebrew prints this to stderr while another process holds its global lock.
const lockPattern = "Another active Homebrew process is already in progress"

// ExecRunner runs the real brew binary.
type ExecRunner struct {
	path string
}

// NewRunner creates a runner for the brew binary at path. An empty path
// resolves "brew" from PATH.
func NewRunner(path string) *ExecRunner {
	if path == "" {
		path = "brew"
	}
	return &ExecRunner{path: path}
}

// Output runs brew with the given arguments. Cancellation kills the process
// and reports ErrAborted. A busy Homebrew lock reports ErrLock so callers can
// present "busy" instead of "failed". Any other non-zero exit reports
// ErrCommand with the trailing stderr attached.
func (r *ExecRunner) Output(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(errors.ErrAborted, "brew %s: %v", strings.Join(args, " "), ctx.Err())
		}
		if strings.Contains(stderr.String(), lockPattern) {
			return nil, errors.Wrapf(errors.ErrLock, "brew %s", strings.Join(args, " "))
		}
		return nil, errors.Wrapf(errors.ErrCommand, "brew %s: %v: %s",
			strings.Join(args, " "), err, lastStderrLine(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// lastStderrLine extracts the final non-empty stderr line, which is where
// brew puts its actual error message after progress noise.
func lastStderrLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no error output"
}
