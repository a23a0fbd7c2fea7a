// Package partials locates and expands named partials.
//
// A partial named "a/b.html" included from directory D is looked up at
// D/a/<marker>b.html first (when local-first is enabled) and then at
// <partials root>/a/b.html. Partials are substituted with the same data as
// the file that included them, so they may include further partials.
package partials

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/pagewrap/internal/logfields"
	"git.home.luguber.info/inful/pagewrap/internal/markdown"
	"git.home.luguber.info/inful/pagewrap/internal/substitute"
)

// DefaultMaxDepth bounds include nesting.
const DefaultMaxDepth = 32

// Options configures a Resolver.
type Options struct {
	PartialsRoot string
	LocalFirst   bool
	Marker       string
	MaxDepth     int
}

// Resolver resolves and expands partials. It holds no per-file state and
// is safe for concurrent use.
type Resolver struct {
	opts   Options
	sub    substitute.Substituter
	md     *markdown.Renderer
	logger *slog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger receiving missing-partial diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMarkdown sets the renderer used for .md partials.
func WithMarkdown(md *markdown.Renderer) Option {
	return func(r *Resolver) { r.md = md }
}

// NewResolver creates a resolver. A nil substituter inserts partials
// verbatim without expanding their own includes.
func NewResolver(opts Options, sub substitute.Substituter, options ...Option) *Resolver {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if sub == nil {
		sub = substitute.Identity
	}
	r := &Resolver{
		opts:   opts,
		sub:    sub,
		md:     markdown.NewRenderer(),
		logger: slog.Default(),
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Request carries the per-file inputs of an include binding.
type Request struct {
	Dir  string // Directory of the including file
	Data any
	// OnMissing, when set, is called once for every include that fell back
	// to a placeholder.
	OnMissing func(*NotFoundError)
}

// Candidates returns the paths probed for name from contextDir, in order.
func (r *Resolver) Candidates(name, contextDir string) ([]string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	var out []string
	if r.opts.LocalFirst && contextDir != "" {
		out = append(out, filepath.Join(contextDir, filepath.Dir(clean), r.opts.Marker+filepath.Base(clean)))
	}
	if r.opts.PartialsRoot != "" {
		out = append(out, filepath.Join(r.opts.PartialsRoot, clean))
	}
	return out, nil
}

// Locate returns the first existing candidate for name.
func (r *Resolver) Locate(name, contextDir string) (string, error) {
	candidates, err := r.Candidates(name, contextDir)
	if err != nil {
		return "", err
	}
	for _, c := range candidates {
		info, statErr := os.Stat(c)
		if statErr == nil && !info.IsDir() {
			return c, nil
		}
	}
	if len(candidates) == 0 {
		candidates = []string{name}
	}
	return "", &NotFoundError{Name: name, ContextDir: contextDir, Candidates: candidates}
}

// Resolve returns the expanded content of a partial or a *NotFoundError.
// Includes nested inside the partial degrade to placeholders.
func (r *Resolver) Resolve(name, contextDir string, data any) (string, error) {
	return r.expand(name, contextDir, Request{Dir: contextDir, Data: data}, 1, nil)
}

// Include binds an include function to the file described by req.
// A missing partial yields Placeholder and one error record.
func (r *Resolver) Include(req Request) substitute.IncludeFunc {
	return r.bind(req.Dir, req, 1, nil)
}

func (r *Resolver) bind(dir string, req Request, depth int, chain []string) substitute.IncludeFunc {
	return func(name string, explicit ...string) (string, error) {
		contextDir := dir
		if len(explicit) > 0 && explicit[0] != "" {
			contextDir = explicit[0]
			if !filepath.IsAbs(contextDir) {
				contextDir = filepath.Join(dir, contextDir)
			}
		}

		out, err := r.expand(name, contextDir, req, depth, chain)
		var nf *NotFoundError
		if errors.As(err, &nf) {
			r.logger.Error("Partial not found",
				logfields.Include(name),
				logfields.Path(nf.Attempted()),
				slog.String("context_dir", contextDir),
				logfields.Depth(depth))
			if req.OnMissing != nil {
				req.OnMissing(nf)
			}
			return Placeholder(nf.Attempted()), nil
		}
		return out, err
	}
}

func (r *Resolver) expand(name, contextDir string, req Request, depth int, chain []string) (string, error) {
	if depth > r.opts.MaxDepth {
		return "", &CyclicIncludeError{Name: name, Depth: r.opts.MaxDepth, Chain: append(append([]string(nil), chain...), name)}
	}

	path, err := r.Locate(name, contextDir)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(path) // #nosec G304 -- path is built from validated include names
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &NotFoundError{Name: name, ContextDir: contextDir, Candidates: []string{path}}
		}
		return "", fmt.Errorf("read partial %s: %w", path, err)
	}

	next := append(append([]string(nil), chain...), path)
	partialDir := filepath.Dir(path)
	text, err := r.sub.Substitute(string(raw), substitute.Context{
		File:    path,
		Dir:     partialDir,
		Data:    req.Data,
		Include: r.bind(partialDir, req, depth+1, next),
	})
	if err != nil {
		return "", err
	}

	if markdown.IsMarkdown(path) {
		html, mdErr := r.md.Render([]byte(text))
		if mdErr != nil {
			return "", fmt.Errorf("render markdown partial %s: %w", path, mdErr)
		}
		text = string(html)
	}
	return text, nil
}

func cleanName(name string) (string, error) {
	if strings.TrimSpace(name) == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", &UnsafeIncludeError{Name: name}
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &UnsafeIncludeError{Name: name}
	}
	return clean, nil
}
