package partials

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagewrap/internal/substitute"
)

type fixture struct {
	root     string
	content  string
	partials string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		root:     root,
		content:  filepath.Join(root, "content"),
		partials: filepath.Join(root, "partials"),
	}
	require.NoError(t, os.MkdirAll(f.content, 0o750))
	require.NoError(t, os.MkdirAll(f.partials, 0o750))
	return f
}

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func capture() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func (f fixture) resolver(localFirst bool, opts ...Option) *Resolver {
	return NewResolver(Options{
		PartialsRoot: f.partials,
		LocalFirst:   localFirst,
		Marker:       "_",
	}, substitute.NewTemplateSubstituter("", ""), opts...)
}

func TestResolve_LocalFirst(t *testing.T) {
	f := newFixture(t)
	write(t, filepath.Join(f.content, "docs", "_nav"), "NAVTEXT")
	write(t, filepath.Join(f.partials, "nav"), "OTHERNAV")

	out, err := f.resolver(true).Resolve("nav", filepath.Join(f.content, "docs"), nil)
	require.NoError(t, err)
	require.Equal(t, "NAVTEXT", out)
}

func TestResolve_LocalFirstDisabled(t *testing.T) {
	f := newFixture(t)
	write(t, filepath.Join(f.content, "docs", "_nav"), "NAVTEXT")
	write(t, filepath.Join(f.partials, "nav"), "OTHERNAV")

	out, err := f.resolver(false).Resolve("nav", filepath.Join(f.content, "docs"), nil)
	require.NoError(t, err)
	require.Equal(t, "OTHERNAV", out)
}

func TestResolve_FallsBackToSharedRoot(t *testing.T) {
	f := newFixture(t)
	write(t, filepath.Join(f.partials, "blocks", "footer.html"), "<small>shared</small>")

	out, err := f.resolver(true).Resolve("blocks/footer.html", f.content, nil)
	require.NoError(t, err)
	require.Equal(t, "<small>shared</small>", out)
}

func TestResolve_NestedDirectoryLocalCandidate(t *testing.T) {
	f := newFixture(t)
	write(t, filepath.Join(f.content, "blocks", "_footer.html"), "local footer")

	cands, err := f.resolver(true).Candidates("blocks/footer.html", f.content)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(f.content, "blocks", "_footer.html"),
		filepath.Join(f.partials, "blocks", "footer.html"),
	}, cands)

	out, err := f.resolver(true).Resolve("blocks/footer.html", f.content, nil)
	require.NoError(t, err)
	require.Equal(t, "local footer", out)
}

func TestResolve_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver(true).Resolve("missing.html", f.content, nil)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, filepath.Join(f.partials, "missing.html"), nf.Attempted())
	require.Len(t, nf.Candidates, 2)
}

func TestInclude_MissingYieldsPlaceholderAndOneDiagnostic(t *testing.T) {
	f := newFixture(t)
	logger, buf := capture()
	r := f.resolver(true, WithLogger(logger))

	var missing []*NotFoundError
	include := r.Include(Request{Dir: f.content, OnMissing: func(nf *NotFoundError) { missing = append(missing, nf) }})

	out, err := include("missing.html")
	require.NoError(t, err)
	expected := Placeholder(filepath.Join(f.partials, "missing.html"))
	require.Equal(t, expected, out)
	require.Equal(t, "Error: File: '"+filepath.Join(f.partials, "missing.html")+"' doesn't exist!", expected)

	require.Len(t, missing, 1)
	require.Equal(t, 1, strings.Count(buf.String(), "Partial not found"))
	require.Contains(t, buf.String(), "level=ERROR")
}

func TestInclude_NestedPartialsShareData(t *testing.T) {
	f := newFixture(t)
	write(t, filepath.Join(f.partials, "outer.html"), `<div>{{ include "inner.html" }}</div>`)
	write(t, filepath.Join(f.partials, "inner.html"), `<span>{{ .Title }}</span>`)

	include := f.resolver(true).Include(Request{Dir: f.content, Data: map[string]any{"Title": "Hi"}})
	out, err := include("outer.html")
	require.NoError(t, err)
	require.Equal(t, "<div><span>Hi</span></div>", out)
}

func TestInclude_NestedLookupUsesPartialDirectory(t *testing.T) {
	f := newFixture(t)
	write(t, filepath.Join(f.partials, "sections", "outer.html"), `[{{ include "inner.html" }}]`)
	write(t, filepath.Join(f.partials, "sections", "_inner.html"), "near")
	write(t, filepath.Join(f.partials, "inner.html"), "far")

	out, err := f.resolver(true).Include(Request{Dir: f.content})("sections/outer.html")
	require.NoError(t, err)
	require.Equal(t, "[near]", out)
}

func TestInclude_ExplicitDirectory(t *testing.T) {
	f := newFixture(t)
	write(t, filepath.Join(f.content, "shared", "_nav"), "SHARED NAV")
	pageDir := filepath.Join(f.content, "docs")

	include := f.resolver(true).Include(Request{Dir: pageDir})

	out, err := include("nav", "../shared")
	require.NoError(t, err)
	require.Equal(t, "SHARED NAV", out)

	out, err = include("nav", filepath.Join(f.content, "shared"))
	require.NoError(t, err)
	require.Equal(t, "SHARED NAV", out)
}

func TestInclude_CycleIsBounded(t *testing.T) {
	f := newFixture(t)
	write(t, filepath.Join(f.partials, "loop.html"), `x{{ include "loop.html" }}`)

	r := NewResolver(Options{PartialsRoot: f.partials, Marker: "_", MaxDepth: 4},
		substitute.NewTemplateSubstituter("", ""))
	_, err := r.Include(Request{Dir: f.content})("loop.html")
	var cyc *CyclicIncludeError
	require.ErrorAs(t, err, &cyc)
	require.Equal(t, 4, cyc.Depth)
	require.Len(t, cyc.Chain, 5)
}

func TestInclude_UnsafeNames(t *testing.T) {
	f := newFixture(t)
	include := f.resolver(true).Include(Request{Dir: f.content})

	for _, name := range []string{"../secret", "/etc/passwd", "a/../../b", "", ".."} {
		_, err := include(name)
		var unsafe *UnsafeIncludeError
		require.True(t, errors.As(err, &unsafe), "name %q", name)
	}
}

func TestInclude_MarkdownPartialRendered(t *testing.T) {
	f := newFixture(t)
	write(t, filepath.Join(f.partials, "intro.md"), "# {{ .Title }}\n")

	out, err := f.resolver(true).Include(Request{Dir: f.content, Data: map[string]any{"Title": "Welcome"}})("intro.md")
	require.NoError(t, err)
	require.Contains(t, out, "<h1")
	require.Contains(t, out, "Welcome</h1>")
}

func TestResolve_WithoutSubstituterIsVerbatim(t *testing.T) {
	f := newFixture(t)
	write(t, filepath.Join(f.partials, "raw.html"), `{{ include "x" }}`)

	r := NewResolver(Options{PartialsRoot: f.partials, Marker: "_"}, nil)
	out, err := r.Resolve("raw.html", f.content, nil)
	require.NoError(t, err)
	require.Equal(t, `{{ include "x" }}`, out)
}
