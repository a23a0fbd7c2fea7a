package assemble

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagewrap/internal/content"
	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
	"git.home.luguber.info/inful/pagewrap/internal/partials"
	"git.home.luguber.info/inful/pagewrap/internal/scope"
	"git.home.luguber.info/inful/pagewrap/internal/substitute"
)

type site struct {
	root     string
	header   string
	footer   string
	content  string
	partials string
	dest     string
}

func newSite(t *testing.T) site {
	t.Helper()
	root := t.TempDir()
	s := site{
		root:     root,
		header:   filepath.Join(root, "pages", "header.tmpl"),
		footer:   filepath.Join(root, "pages", "footer.tmpl"),
		content:  filepath.Join(root, "pages", "content"),
		partials: filepath.Join(root, "pages", "partials"),
		dest:     filepath.Join(root, "dist"),
	}
	write(t, s.header, "<H>")
	write(t, s.footer, "<F>")
	require.NoError(t, os.MkdirAll(s.content, 0o750))
	require.NoError(t, os.MkdirAll(s.partials, 0o750))
	return s
}

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

type assemblerOpts struct {
	failFast bool
	markers  bool
	logger   *slog.Logger
}

func (s site) assembler(o assemblerOpts) *Assembler {
	tree := content.NewTree(s.content, "_", []string{".html"}, nil)
	sub := substitute.NewTemplateSubstituter("", "")
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	res := partials.NewResolver(partials.Options{
		PartialsRoot: s.partials,
		LocalFirst:   true,
		Marker:       "_",
	}, sub, partials.WithLogger(logger))
	return New(Options{
		Header:    s.header,
		Footer:    s.footer,
		Dest:      s.dest,
		Separator: "\n",
		Markers:   o.markers,
		FailFast:  o.failFast,
		Site:      map[string]any{"title": "Demo"},
	}, tree, res, sub, WithLogger(logger))
}

func TestRun_EndToEnd(t *testing.T) {
	s := newSite(t)
	write(t, filepath.Join(s.content, "index.html"), "BODY")

	r, err := s.assembler(assemblerOpts{}).Run(context.Background(), scope.All(scope.ReasonRequested))
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, r.Status())
	require.Len(t, r.Outputs, 1)
	require.Equal(t, "<H>\nBODY\n<F>", read(t, filepath.Join(s.dest, "index.html")))
	require.NotEmpty(t, r.PassID)
	require.NotEmpty(t, r.Outputs[0].Fingerprint)
}

func TestRun_LocalIncludeWins(t *testing.T) {
	s := newSite(t)
	write(t, filepath.Join(s.content, "index.html"), `{{ include "nav" }}`)
	write(t, filepath.Join(s.content, "_nav"), "NAVTEXT")
	write(t, filepath.Join(s.partials, "nav"), "OTHERNAV")

	_, err := s.assembler(assemblerOpts{}).Run(context.Background(), scope.All(scope.ReasonRequested))
	require.NoError(t, err)
	out := read(t, filepath.Join(s.dest, "index.html"))
	require.Contains(t, out, "NAVTEXT")
	require.NotContains(t, out, "OTHERNAV")
}

func TestRun_MissingInclude(t *testing.T) {
	s := newSite(t)
	write(t, filepath.Join(s.content, "index.html"), `{{ include "missing" }}`)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	r, err := s.assembler(assemblerOpts{logger: logger}).Run(context.Background(), scope.All(scope.ReasonRequested))
	require.NoError(t, err)
	require.Equal(t, 1, r.MissingIncludes)

	out := read(t, filepath.Join(s.dest, "index.html"))
	require.Contains(t, out, "Error: File: '"+filepath.Join(s.partials, "missing")+"' doesn't exist!")
	require.Equal(t, 1, strings.Count(logs.String(), "Partial not found"))
}

func TestRun_HeaderIncludesUseTemplateDirectory(t *testing.T) {
	s := newSite(t)
	write(t, s.header, `<title>{{ .Site.title }}: {{ .Page.Params.title }}</title>{{ include "meta" }}`)
	write(t, filepath.Join(filepath.Dir(s.header), "_meta"), "<meta>")
	write(t, filepath.Join(s.content, "docs", "page.html"), "---\ntitle: Guide\n---\nTEXT")

	_, err := s.assembler(assemblerOpts{}).Run(context.Background(), scope.All(scope.ReasonRequested))
	require.NoError(t, err)
	require.Equal(t, "<title>Demo: Guide</title><meta>\nTEXT\n<F>", read(t, filepath.Join(s.dest, "docs", "page.html")))
}

func TestRun_Idempotent(t *testing.T) {
	s := newSite(t)
	write(t, filepath.Join(s.content, "index.html"), `A{{ include "nav" }}B`)
	write(t, filepath.Join(s.partials, "nav"), "N")
	a := s.assembler(assemblerOpts{})

	r1, err := a.Run(context.Background(), scope.All(scope.ReasonRequested))
	require.NoError(t, err)
	first := read(t, filepath.Join(s.dest, "index.html"))

	r2, err := a.Run(context.Background(), scope.All(scope.ReasonRequested))
	require.NoError(t, err)
	require.Equal(t, first, read(t, filepath.Join(s.dest, "index.html")))
	require.Equal(t, r1.Outputs[0].Fingerprint, r2.Outputs[0].Fingerprint)
	require.NotEqual(t, r1.PassID, r2.PassID)
}

func TestRun_PathMappingAndPartialExclusion(t *testing.T) {
	s := newSite(t)
	write(t, filepath.Join(s.content, "a", "b", "page.html"), "P")
	write(t, filepath.Join(s.content, "a", "_frag.html"), "F")

	r, err := s.assembler(assemblerOpts{}).Run(context.Background(), scope.All(scope.ReasonRequested))
	require.NoError(t, err)
	require.Len(t, r.Outputs, 1)
	require.Equal(t, filepath.Join(s.dest, "a", "b", "page.html"), r.Outputs[0].Dest)
	require.FileExists(t, filepath.Join(s.dest, "a", "b", "page.html"))
	require.NoFileExists(t, filepath.Join(s.dest, "a", "_frag.html"))
}

func TestAssemble_SkipsLocalPartial(t *testing.T) {
	s := newSite(t)
	write(t, filepath.Join(s.content, "_nav.html"), "N")
	a := s.assembler(assemblerOpts{})
	f, err := a.Tree().File(filepath.Join(s.content, "_nav.html"))
	require.NoError(t, err)

	out, err := a.Assemble(f, Templates{Header: "h", Footer: "f"})
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestRun_SingleScope(t *testing.T) {
	s := newSite(t)
	write(t, filepath.Join(s.content, "one.html"), "1")
	write(t, filepath.Join(s.content, "two.html"), "2")

	r, err := s.assembler(assemblerOpts{}).Run(context.Background(), scope.Single(filepath.Join(s.content, "two.html")))
	require.NoError(t, err)
	require.Len(t, r.Outputs, 1)
	require.FileExists(t, filepath.Join(s.dest, "two.html"))
	require.NoFileExists(t, filepath.Join(s.dest, "one.html"))
}

func TestRun_SingleScopeRemovedSource(t *testing.T) {
	s := newSite(t)
	write(t, filepath.Join(s.dest, "gone.html"), "stale")

	r, err := s.assembler(assemblerOpts{}).Run(context.Background(), scope.Single(filepath.Join(s.content, "gone.html")))
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(s.dest, "gone.html")}, r.Removed)
	require.NoFileExists(t, filepath.Join(s.dest, "gone.html"))
}

func TestRun_Markers(t *testing.T) {
	s := newSite(t)
	write(t, filepath.Join(s.content, "index.html"), "BODY")

	_, err := s.assembler(assemblerOpts{markers: true}).Run(context.Background(), scope.All(scope.ReasonRequested))
	require.NoError(t, err)
	require.Equal(t, "<H>\n<!-- start index.html-->\nBODY\n<!-- end index.html-->\n<F>", read(t, filepath.Join(s.dest, "index.html")))
}

func TestRun_TemplateReadFailureWritesNothing(t *testing.T) {
	s := newSite(t)
	write(t, filepath.Join(s.content, "index.html"), "BODY")
	require.NoError(t, os.Remove(s.footer))

	r, err := s.assembler(assemblerOpts{}).Run(context.Background(), scope.All(scope.ReasonRequested))
	var tre *TemplateReadError
	require.ErrorAs(t, err, &tre)
	require.Equal(t, s.footer, tre.Path)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
	require.Equal(t, StatusFailed, r.Status())
	require.Empty(t, r.Outputs)
	require.NoDirExists(t, s.dest)
}

func TestRun_WriteFailureFailFast(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory/file conflicts behave differently on windows")
	}
	s := newSite(t)
	write(t, filepath.Join(s.content, "a.html"), "A")
	write(t, filepath.Join(s.content, "b", "c.html"), "C")
	write(t, filepath.Join(s.content, "d.html"), "D")
	// A regular file where a directory must be created.
	write(t, filepath.Join(s.dest, "b"), "blocker")

	r, err := s.assembler(assemblerOpts{failFast: true}).Run(context.Background(), scope.All(scope.ReasonRequested))
	var we *WriteError
	require.ErrorAs(t, err, &we)
	require.Len(t, r.Failures, 1)
	require.Len(t, r.Outputs, 1, "a.html precedes the failure")
	require.NoFileExists(t, filepath.Join(s.dest, "d.html"))
}

func TestRun_WriteFailureContinuesWithoutFailFast(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory/file conflicts behave differently on windows")
	}
	s := newSite(t)
	write(t, filepath.Join(s.content, "b", "c.html"), "C")
	write(t, filepath.Join(s.content, "d.html"), "D")
	write(t, filepath.Join(s.dest, "b"), "blocker")

	r, err := s.assembler(assemblerOpts{}).Run(context.Background(), scope.All(scope.ReasonRequested))
	require.NoError(t, err)
	require.Equal(t, StatusFailed, r.Status())
	require.Len(t, r.Failures, 1)
	require.FileExists(t, filepath.Join(s.dest, "d.html"))
}

func TestRun_CyclicIncludeFailsFile(t *testing.T) {
	s := newSite(t)
	write(t, filepath.Join(s.content, "index.html"), `{{ include "loop" }}`)
	write(t, filepath.Join(s.partials, "loop"), `{{ include "loop" }}`)

	r, err := s.assembler(assemblerOpts{failFast: true}).Run(context.Background(), scope.All(scope.ReasonRequested))
	var cyc *partials.CyclicIncludeError
	require.True(t, errors.As(err, &cyc))
	require.Len(t, r.Failures, 1)
}

func TestRun_CanceledContext(t *testing.T) {
	s := newSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.assembler(assemblerOpts{}).Run(ctx, scope.All(scope.ReasonRequested))
	require.ErrorIs(t, err, context.Canceled)
}

func TestReportHash(t *testing.T) {
	r := &Report{PassID: "p", Outputs: []OutputRecord{{Dest: "/d/a", Fingerprint: "x"}}}
	h := r.Hash()
	require.NotEmpty(t, h)
	require.Equal(t, h, r.Hash())

	r.Outputs[0].Fingerprint = "y"
	require.NotEqual(t, h, r.Hash())

	r.Err = errors.New("boom")
	require.Equal(t, "error:p", r.Hash())
}

func TestSiteData(t *testing.T) {
	got := SiteData(map[string]any{"title": "x", "Version": "user"}, map[string]any{"Version": "v1"})
	require.Equal(t, map[string]any{"title": "x", "Version": "v1"}, got)
}
