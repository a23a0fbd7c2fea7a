// Package assemble wraps content pages with the shared header and footer and
// writes them into the destination tree.
package assemble

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/pagewrap/internal/content"
	"git.home.luguber.info/inful/pagewrap/internal/frontmatter"
	"git.home.luguber.info/inful/pagewrap/internal/logfields"
	"git.home.luguber.info/inful/pagewrap/internal/metrics"
	"git.home.luguber.info/inful/pagewrap/internal/partials"
	"git.home.luguber.info/inful/pagewrap/internal/substitute"
)

const (
	dirPerm  = 0o750
	filePerm = 0o644
)

// Options configures an Assembler.
type Options struct {
	Header    string
	Footer    string
	Dest      string
	Separator string
	Markers   bool // Surround content with <!-- start NAME--> / <!-- end NAME-->
	FailFast  bool
	Site      map[string]any
}

// PageData is exposed to templates as .Page.
type PageData struct {
	Path    string
	RelPath string
	Name    string
	Params  map[string]any
}

// Data is the dot value of every substitution in a page's assembly.
type Data struct {
	Site map[string]any
	Page PageData
}

// Templates holds the raw header and footer text of one pass.
type Templates struct {
	Header string
	Footer string
}

// Output is an assembled page.
type Output struct {
	Source          string
	Dest            string
	Content         []byte
	MissingIncludes int
}

// Assembler builds and writes pages.
type Assembler struct {
	opts     Options
	tree     *content.Tree
	resolver *partials.Resolver
	sub      substitute.Substituter
	logger   *slog.Logger
	recorder metrics.Recorder
}

// Option customizes an Assembler.
type Option func(*Assembler)

func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(a *Assembler) {
		if r != nil {
			a.recorder = r
		}
	}
}

// New creates an Assembler over tree. sub performs substitution on every
// template, page and partial; resolver backs the include function.
func New(opts Options, tree *content.Tree, resolver *partials.Resolver, sub substitute.Substituter, options ...Option) *Assembler {
	if sub == nil {
		sub = substitute.Identity
	}
	a := &Assembler{
		opts:     opts,
		tree:     tree,
		resolver: resolver,
		sub:      sub,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Tree returns the content tree the assembler works on.
func (a *Assembler) Tree() *content.Tree { return a.tree }

// LoadTemplates reads the header and footer. Templates are never cached.
func (a *Assembler) LoadTemplates() (Templates, error) {
	header, err := os.ReadFile(a.opts.Header)
	if err != nil {
		return Templates{}, &TemplateReadError{Path: a.opts.Header, Err: err}
	}
	footer, err := os.ReadFile(a.opts.Footer)
	if err != nil {
		return Templates{}, &TemplateReadError{Path: a.opts.Footer, Err: err}
	}
	return Templates{Header: string(header), Footer: string(footer)}, nil
}

// DestPath maps a content file to its output path.
func (a *Assembler) DestPath(f content.File) string {
	return filepath.Join(a.opts.Dest, f.RelPath)
}

// Assemble expands one page. Local partials yield a nil Output.
func (a *Assembler) Assemble(f content.File, t Templates) (*Output, error) {
	if f.LocalPartial {
		return nil, nil
	}

	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, &FileError{Source: f.Path, Err: err}
	}
	params, body, err := frontmatter.Parse(raw)
	if err != nil {
		return nil, &FileError{Source: f.Path, Err: err}
	}

	data := Data{
		Site: a.opts.Site,
		Page: PageData{Path: f.Path, RelPath: filepath.ToSlash(f.RelPath), Name: f.Name(), Params: params},
	}
	if data.Page.Params == nil {
		data.Page.Params = map[string]any{}
	}
	if data.Site == nil {
		data.Site = map[string]any{}
	}

	missing := 0
	expand := func(text, file string) (string, error) {
		dir := filepath.Dir(file)
		var include substitute.IncludeFunc
		if a.resolver != nil {
			include = a.resolver.Include(partials.Request{
				Dir:  dir,
				Data: data,
				OnMissing: func(*partials.NotFoundError) {
					missing++
					a.recorder.IncMissingInclude()
				},
			})
		}
		return a.sub.Substitute(text, substitute.Context{File: file, Dir: dir, Data: data, Include: include})
	}

	header, err := expand(t.Header, a.opts.Header)
	if err != nil {
		return nil, &FileError{Source: f.Path, Err: err}
	}
	page, err := expand(string(body), f.Path)
	if err != nil {
		return nil, &FileError{Source: f.Path, Err: err}
	}
	footer, err := expand(t.Footer, a.opts.Footer)
	if err != nil {
		return nil, &FileError{Source: f.Path, Err: err}
	}

	return &Output{
		Source:          f.Path,
		Dest:            a.DestPath(f),
		Content:         []byte(a.join(header, page, footer, f.Name())),
		MissingIncludes: missing,
	}, nil
}

func (a *Assembler) join(header, page, footer, name string) string {
	sep := a.opts.Separator
	if !a.opts.Markers {
		return header + sep + page + sep + footer
	}
	return header + sep +
		"<!-- start " + name + "-->" + sep + page + sep + "<!-- end " + name + "-->" +
		sep + footer
}

// Write stores o at its destination, creating parent directories and
// replacing any previous content.
func (a *Assembler) Write(o *Output) error {
	if err := os.MkdirAll(filepath.Dir(o.Dest), dirPerm); err != nil {
		return &WriteError{Path: o.Dest, Err: err}
	}
	if err := os.WriteFile(o.Dest, o.Content, filePerm); err != nil {
		return &WriteError{Path: o.Dest, Err: err}
	}
	a.logger.Info(fmt.Sprintf("File \"%s\" created.", o.Dest), logfields.Source(o.Source), logfields.Dest(o.Dest))
	return nil
}

// Remove deletes the output of a source file that no longer exists.
// It reports whether a file was removed.
func (a *Assembler) Remove(f content.File) (bool, error) {
	dest := a.DestPath(f)
	if err := os.Remove(dest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &WriteError{Path: dest, Err: err}
	}
	a.logger.Info(fmt.Sprintf("File \"%s\" removed.", dest), logfields.Source(f.Path), logfields.Dest(dest))
	return true, nil
}

// SiteData merges user variables with the built-in site values.
func SiteData(vars map[string]any, builtin map[string]any) map[string]any {
	out := make(map[string]any, len(vars)+len(builtin))
	maps.Copy(out, vars)
	maps.Copy(out, builtin)
	return out
}
