// Package scope decides how much of the site a change invalidates.
package scope

import (
	"path/filepath"

	"git.home.luguber.info/inful/pagewrap/internal/content"
	"git.home.luguber.info/inful/pagewrap/internal/foundation/normalization"
)

// Kind is the breadth of a rebuild.
type Kind int

const (
	KindAll Kind = iota
	KindSingle
)

func (k Kind) String() string {
	if k == KindSingle {
		return "single"
	}
	return "all"
}

// Reason explains a scope decision in logs and the journal.
type Reason string

const (
	ReasonRequested     Reason = "full build requested"
	ReasonTemplate      Reason = "header or footer changed"
	ReasonSharedPartial Reason = "shared partial changed"
	ReasonLocalPartial  Reason = "local partial changed"
	ReasonContent       Reason = "content file changed"
	ReasonUnclassified  Reason = "unclassified path"
	ReasonScheduled     Reason = "scheduled full rebuild"
)

// Scope is a rebuild decision: every content file, or exactly one.
type Scope struct {
	Kind   Kind
	Path   string // Set for KindSingle
	Reason Reason
}

// All returns a full-rebuild scope.
func All(reason Reason) Scope { return Scope{Kind: KindAll, Reason: reason} }

// Single returns a scope covering only path.
func Single(path string) Scope { return Scope{Kind: KindSingle, Path: path, Reason: ReasonContent} }

// IsAll reports whether every content file must be reprocessed.
func (s Scope) IsAll() bool { return s.Kind == KindAll }

func (s Scope) String() string {
	if s.Kind == KindSingle {
		return "single:" + s.Path
	}
	return "all"
}

// Inputs are the paths a Decider compares changes against.
type Inputs struct {
	Header       string
	Footer       string
	PartialsRoot string
	Marker       string
	Tree         *content.Tree
	Normalizer   *normalization.PathNormalizer
}

// Decider maps a changed path to a Scope. It keeps no state between calls.
type Decider struct {
	in Inputs
}

// NewDecider creates a Decider.
func NewDecider(in Inputs) *Decider {
	if in.Normalizer == nil {
		in.Normalizer = normalization.NewPathNormalizer(false)
	}
	return &Decider{in: in}
}

// Decide classifies changed. An empty path requests a full build. Anything
// that cannot be attributed to a single content file rebuilds everything.
// A single scope carries changed resolved to an absolute path; callers
// passing absolute paths get exactly the path they gave.
func (d *Decider) Decide(changed string) Scope {
	if changed == "" {
		return All(ReasonRequested)
	}
	n := d.in.Normalizer
	if n.Equal(changed, d.in.Header) || n.Equal(changed, d.in.Footer) {
		return All(ReasonTemplate)
	}
	if n.Within(d.in.PartialsRoot, changed) {
		return All(ReasonSharedPartial)
	}
	if content.IsLocalPartialName(filepath.Base(changed), d.in.Marker) {
		return All(ReasonLocalPartial)
	}
	if d.in.Tree != nil && d.in.Tree.Contains(changed) {
		abs, err := filepath.Abs(changed)
		if err != nil {
			return All(ReasonUnclassified)
		}
		return Single(abs)
	}
	return All(ReasonUnclassified)
}

// Relevant reports whether a change to path can affect any output. Watchers
// use it to drop events for unrelated files before they reach Decide.
func (d *Decider) Relevant(path string) bool {
	if path == "" {
		return false
	}
	n := d.in.Normalizer
	switch {
	case n.Equal(path, d.in.Header), n.Equal(path, d.in.Footer):
		return true
	case n.Within(d.in.PartialsRoot, path):
		return true
	case d.templateLocalPartial(path):
		return true
	case d.in.Tree == nil:
		return false
	case !n.Within(d.in.Tree.Root(), path):
		return false
	}
	return d.in.Tree.Contains(path) || content.IsLocalPartialName(filepath.Base(path), d.in.Marker)
}

// templateLocalPartial reports whether path is a local partial next to the
// header or footer, which expand their includes from their own directory.
func (d *Decider) templateLocalPartial(path string) bool {
	if !content.IsLocalPartialName(filepath.Base(path), d.in.Marker) {
		return false
	}
	n := d.in.Normalizer
	dir := filepath.Dir(path)
	return (d.in.Header != "" && n.Equal(dir, filepath.Dir(d.in.Header))) ||
		(d.in.Footer != "" && n.Equal(dir, filepath.Dir(d.in.Footer)))
}
