//go:build integration

package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testFormulaJSON = `[
  {
    "name": "git",
    "desc": "Distributed revision control system",
    "homepage": "https://git-scm.com",
    "versions": {"stable": "2.49.0"},
    "dependencies": ["gettext", "pcre2"],
    "installed": [],
    "outdated": false,
    "pinned": false
  },
  {
    "name": "git-lfs",
    "desc": "Git extension for versioning large files",
    "versions": {"stable": "3.6.0"},
    "installed": [],
    "outdated": false,
    "pinned": false
  },
  {
    "name": "jq",
    "desc": "Lightweight and flexible command-line JSON processor",
    "versions": {"stable": "1.7.1"},
    "installed": [],
    "outdated": false,
    "pinned": false
  }
]`

const testCaskJSON = `[
  {
    "token": "github",
    "name": ["GitHub Desktop"],
    "desc": "Desktop client for GitHub repositories",
    "version": "3.4.0",
    "installed": null,
    "outdated": false,
    "auto_updates": true
  }
]`

// startCatalogServer serves the two bulk catalogs with Last-Modified headers
// so both GET downloads and HEAD freshness checks behave like the real API.
func startCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	modified := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)

	mux := http.NewServeMux()
	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Last-Modified", modified)
			w.Header().Set("Content-Type", "application/json")
			if r.Method == http.MethodHead {
				return
			}
			_, _ = io.WriteString(w, body)
		}
	}
	mux.Handle("/api/formula.json", serve(testFormulaJSON))
	mux.Handle("/api/cask.json", serve(testCaskJSON))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// writeFakeBrew creates a shell script that answers the brew invocations the
// commands under test issue.
func writeFakeBrew(t *testing.T, dir string) string {
	t.Helper()
	script := `#!/bin/sh
case "$1 $2 $3" in
"list --versions ")
  echo "git 2.48.1"
  ;;
"list --cask --versions")
  echo "github 3.4.0"
  ;;
"info --json=v2 --installed")
  cat <<'EOF'
{
  "formulae": [
    {
      "name": "git",
      "desc": "Distributed revision control system",
      "homepage": "https://git-scm.com",
      "versions": {"stable": "2.49.0"},
      "dependencies": ["gettext", "pcre2"],
      "installed": [{"version": "2.48.1"}],
      "outdated": true,
      "pinned": false
    }
  ],
  "casks": [
    {
      "token": "github",
      "name": ["GitHub Desktop"],
      "version": "3.4.0",
      "installed": "3.4.0",
      "outdated": false,
      "auto_updates": true
    }
  ]
}
EOF
  ;;
"update  ")
  ;;
"outdated --json=v2 ")
  cat <<'EOF'
{
  "formulae": [
    {"name": "git", "installed_versions": ["2.48.1"], "current_version": "2.49.0", "pinned": false}
  ],
  "casks": []
}
EOF
  ;;
*)
  echo "Error: unexpected invocation: $*" >&2
  exit 1
  ;;
esac
`
	path := filepath.Join(dir, "brew")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// writeTestConfig writes a config pointing at the test server, a temp cache
// directory, and the fake brew script.
func writeTestConfig(t *testing.T, dir, serverURL, brewPath string) string {
	t.Helper()
	cacheDir := filepath.Join(dir, "cache")
	prefix := filepath.Join(dir, "prefix")
	require.NoError(t, os.MkdirAll(prefix, 0o755))

	yamlContent := `endpoints:
  formula_url: ` + serverURL + `/api/formula.json
  cask_url: ` + serverURL + `/api/cask.json
settings:
  cache_dir: ` + cacheDir + `
  brew_path: ` + brewPath + `
  brew_prefix: ` + prefix + `
  http_timeout: 5s
  download_base_delay: 10ms
  search_limit: 50
  log_level: error
`
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0o600))
	return cfgPath
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = old
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}
