package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagewrap/internal/assemble"
	"git.home.luguber.info/inful/pagewrap/internal/content"
	"git.home.luguber.info/inful/pagewrap/internal/foundation/normalization"
	"git.home.luguber.info/inful/pagewrap/internal/partials"
	"git.home.luguber.info/inful/pagewrap/internal/scope"
	"git.home.luguber.info/inful/pagewrap/internal/substitute"
)

func TestShouldIgnoreEvent(t *testing.T) {
	for _, p := range []string{"/a/.hidden", "/a/index.html~", "/a/.index.html.swp", "/a/#x#", "/a/.DS_Store", "/a/Thumbs.db", "/a/4913"} {
		require.True(t, shouldIgnoreEvent(p), p)
	}
	for _, p := range []string{"/a/index.html", "/a/_nav", "/a/header.tmpl"} {
		require.False(t, shouldIgnoreEvent(p), p)
	}
}

func TestDebouncer(t *testing.T) {
	var mu sync.Mutex
	var batches [][]string
	d := NewDebouncer(30*time.Millisecond, func(p []string) {
		mu.Lock()
		batches = append(batches, p)
		mu.Unlock()
	})
	defer d.Stop()

	d.Add("a")
	d.Add("b")
	d.Add("a")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	require.Equal(t, []string{"a", "b"}, batches[0])
	mu.Unlock()
}

func TestDebouncer_Stop(t *testing.T) {
	called := make(chan struct{}, 1)
	d := NewDebouncer(20*time.Millisecond, func([]string) { called <- struct{}{} })
	d.Add("a")
	d.Stop()
	d.Add("b")

	select {
	case <-called:
		t.Fatal("flush after Stop")
	case <-time.After(80 * time.Millisecond):
	}
}

type site struct {
	header, footer, content, partials, dest string
}

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func newService(t *testing.T) (*Service, site, <-chan *assemble.Report) {
	t.Helper()
	root := t.TempDir()
	s := site{
		header:   filepath.Join(root, "pages", "header.tmpl"),
		footer:   filepath.Join(root, "pages", "footer.tmpl"),
		content:  filepath.Join(root, "pages", "content"),
		partials: filepath.Join(root, "pages", "partials"),
		dest:     filepath.Join(root, "dist"),
	}
	write(t, s.header, "<H>")
	write(t, s.footer, "<F>")
	write(t, filepath.Join(s.content, "index.html"), "BODY")
	require.NoError(t, os.MkdirAll(s.partials, 0o750))

	logger := slog.New(slog.DiscardHandler)
	norm := normalization.NewPathNormalizer(false)
	tree := content.NewTree(s.content, "_", []string{".html"}, norm)
	sub := substitute.NewTemplateSubstituter("", "")
	res := partials.NewResolver(partials.Options{PartialsRoot: s.partials, LocalFirst: true, Marker: "_"}, sub, partials.WithLogger(logger))
	asm := assemble.New(assemble.Options{
		Header: s.header, Footer: s.footer, Dest: s.dest, Separator: "\n",
	}, tree, res, sub, assemble.WithLogger(logger))
	dec := scope.NewDecider(scope.Inputs{
		Header: s.header, Footer: s.footer, PartialsRoot: s.partials, Marker: "_", Tree: tree, Normalizer: norm,
	})

	svc := New(Options{
		Recursive: []string{s.content, s.partials},
		Files:     []string{s.header, s.footer},
		Debounce:  20 * time.Millisecond,
	}, asm, dec, logger)

	reports := make(chan *assemble.Report, 16)
	svc.OnPass(func(_ context.Context, r *assemble.Report) { reports <- r })
	return svc, s, reports
}

func next(t *testing.T, reports <-chan *assemble.Report) *assemble.Report {
	t.Helper()
	select {
	case r := <-reports:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pass")
		return nil
	}
}

func TestService_RebuildsOnChange(t *testing.T) {
	svc, s, reports := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	initial := next(t, reports)
	require.True(t, initial.Scope.IsAll())
	require.Equal(t, scope.ReasonRequested, initial.Scope.Reason)
	require.Equal(t, initial, svc.Last())

	write(t, filepath.Join(s.content, "index.html"), "CHANGED")
	r := next(t, reports)
	require.Equal(t, scope.KindSingle, r.Scope.Kind)
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(filepath.Join(s.dest, "index.html"))
		return err == nil && string(b) == "<H>\nCHANGED\n<F>"
	}, time.Second, 10*time.Millisecond)

	write(t, s.footer, "<F2>")
	for {
		r = next(t, reports)
		if r.Scope.IsAll() {
			break
		}
	}
	require.Equal(t, scope.ReasonTemplate, r.Scope.Reason)
}

func TestService_TriggerWithoutInitialPass(t *testing.T) {
	svc, s, reports := newService(t)
	svc.opts.SkipInitial = true
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.Equal(t, scope.All(scope.ReasonRequested), svc.Trigger(""))
	r := next(t, reports)
	require.True(t, r.Scope.IsAll())
	require.FileExists(t, filepath.Join(s.dest, "index.html"))
}

func TestService_LocalPartialBesideHeaderRebuildsAll(t *testing.T) {
	svc, s, reports := newService(t)
	pages := filepath.Dir(s.header)
	write(t, s.header, `<H>{{ include "nav.html" }}`)
	write(t, filepath.Join(pages, "_nav.html"), "NAV1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	initial := next(t, reports)
	require.True(t, initial.Scope.IsAll())
	require.Equal(t, "<H>NAV1\nBODY\n<F>", readFile(t, filepath.Join(s.dest, "index.html")))

	write(t, filepath.Join(pages, "_nav.html"), "NAV2")
	var r *assemble.Report
	for {
		r = next(t, reports)
		if r.Scope.Reason == scope.ReasonLocalPartial {
			break
		}
	}
	require.True(t, r.Scope.IsAll())
	require.Equal(t, "<H>NAV2\nBODY\n<F>", readFile(t, filepath.Join(s.dest, "index.html")))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}
