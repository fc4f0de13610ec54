package catalog

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/brewse/pkg/errors"
	"github.com/cperrin88/brewse/pkg/model"
)

const formulaJSON = `[
  {
    "name": "git",
    "full_name": "git",
    "tap": "homebrew/core",
    "desc": "Distributed revision control system",
    "homepage": "https://git-scm.com",
    "versions": {"stable": "2.49.0", "head": "HEAD", "bottle": true},
    "urls": {"stable": {"url": "https://example.invalid/git.tar.xz"}},
    "dependencies": ["gettext", "pcre2"],
    "installed": [{"version": "2.48.1", "built_as_bottle": true}],
    "outdated": true,
    "pinned": false
  },
  {
    "name": "jq",
    "full_name": "jq",
    "desc": null,
    "homepage": null,
    "versions": {"stable": "1.7.1"},
    "dependencies": [],
    "installed": [],
    "outdated": false,
    "pinned": false
  }
]`

const caskJSON = `[
  {
    "token": "firefox",
    "name": ["Mozilla Firefox"],
    "desc": "Web browser",
    "homepage": "https://www.mozilla.org/firefox/",
    "version": "128.0",
    "installed": "127.0.2",
    "outdated": true,
    "auto_updates": true,
    "artifacts": [{"app": ["Firefox.app"]}]
  },
  {
    "token": "rectangle",
    "name": ["Rectangle"],
    "desc": "Window snapping tool",
    "homepage": "https://rectangleapp.com/",
    "version": "0.80",
    "installed": null,
    "outdated": false,
    "auto_updates": false
  }
]`

func TestParserFormula(t *testing.T) {
	parser := NewParser(strings.NewReader(formulaJSON), model.KindFormula)

	git, err := parser.Next()
	require.NoError(t, err)
	assert.Equal(t, model.KindFormula, git.Kind)
	assert.Equal(t, "git", git.Name)
	assert.Equal(t, "Distributed revision control system", git.Desc)
	assert.Equal(t, "https://git-scm.com", git.Homepage)
	assert.Equal(t, "2.49.0", git.Version)
	assert.Equal(t, []string{"gettext", "pcre2"}, git.Dependencies)
	assert.Equal(t, []string{"2.48.1"}, git.InstalledVersions)
	assert.True(t, git.Outdated)
	assert.False(t, git.Pinned)

	jq, err := parser.Next()
	require.NoError(t, err)
	assert.Equal(t, "jq", jq.Name)
	assert.Empty(t, jq.Desc)
	assert.Empty(t, jq.Homepage)
	assert.False(t, jq.Installed())

	_, err = parser.Next()
	assert.ErrorIs(t, err, io.EOF)

	// Next stays at EOF once the array is exhausted.
	_, err = parser.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParserCask(t *testing.T) {
	parser := NewParser(strings.NewReader(caskJSON), model.KindCask)

	firefox, err := parser.Next()
	require.NoError(t, err)
	assert.Equal(t, model.KindCask, firefox.Kind)
	assert.Equal(t, "firefox", firefox.Name)
	assert.Equal(t, []string{"Mozilla Firefox"}, firefox.Names)
	assert.Equal(t, "Mozilla Firefox", firefox.DisplayName())
	assert.Equal(t, "128.0", firefox.Version)
	assert.Equal(t, []string{"127.0.2"}, firefox.InstalledVersions)
	assert.True(t, firefox.Outdated)
	assert.True(t, firefox.AutoUpdates)

	rectangle, err := parser.Next()
	require.NoError(t, err)
	assert.Equal(t, "rectangle", rectangle.Name)
	assert.False(t, rectangle.Installed())
	assert.False(t, rectangle.AutoUpdates)

	_, err = parser.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParseAllDeterministic(t *testing.T) {
	first, err := ParseAll(strings.NewReader(formulaJSON), model.KindFormula, nil)
	require.NoError(t, err)
	second, err := ParseAll(strings.NewReader(formulaJSON), model.KindFormula, nil)
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestParseAllCallback(t *testing.T) {
	var seen []string
	cat, err := ParseAll(strings.NewReader(caskJSON), model.KindCask, func(r *model.Record) {
		seen = append(seen, r.Name)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"firefox", "rectangle"}, seen)
	assert.Len(t, cat, 2)
}

func TestParserMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not an array", input: `{"name": "git"}`},
		{name: "truncated", input: `[{"name": "git", "desc": "Distr`},
		{name: "wrong element type", input: `["git"]`},
		{name: "empty input", input: ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAll(strings.NewReader(tt.input), model.KindFormula, nil)
			assert.ErrorIs(t, err, errors.ErrParse)
		})
	}
}

func TestParserSkipsUnknownFields(t *testing.T) {
	// Deeply nested unknown structures must not desynchronize the stream.
	input := `[
	  {
	    "name": "wget",
	    "bottle": {"stable": {"files": {"arm64_sonoma": {"url": "x", "sha256": "y"}}}},
	    "versions": {"stable": "1.24.5"},
	    "ruby_source_checksum": {"sha256": "z"}
	  },
	  {"name": "curl", "versions": {"stable": "8.9.0"}}
	]`
	cat, err := ParseAll(strings.NewReader(input), model.KindFormula, nil)
	require.NoError(t, err)
	require.Len(t, cat, 2)
	assert.Equal(t, "wget", cat[0].Name)
	assert.Equal(t, "1.24.5", cat[0].Version)
	assert.Equal(t, "curl", cat[1].Name)
}
