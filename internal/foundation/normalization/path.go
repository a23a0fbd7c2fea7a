package normalization

import (
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// PathNormalizer produces canonical path strings so that two spellings of the
// same file compare equal. Case folding is applied only when the target
// filesystem is case-insensitive.
type PathNormalizer struct {
	foldCase bool

	mu     sync.Mutex // cases.Caser is stateful
	folder cases.Caser
}

// NewPathNormalizer returns a normalizer; foldCase enables Unicode case folding.
func NewPathNormalizer(foldCase bool) *PathNormalizer {
	return &PathNormalizer{foldCase: foldCase, folder: cases.Fold()}
}

// DefaultCaseInsensitive reports whether the host platform's default
// filesystem is usually case-insensitive.
func DefaultCaseInsensitive() bool {
	return runtime.GOOS == "darwin" || runtime.GOOS == "windows"
}

// Canonical resolves p to an absolute, cleaned, slash-separated form.
// Relative paths are resolved against the working directory.
func (n *PathNormalizer) Canonical(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	p = filepath.ToSlash(filepath.Clean(p))
	if n.foldCase {
		n.mu.Lock()
		p = n.folder.String(p)
		n.mu.Unlock()
	}
	return p
}

// Equal reports whether a and b name the same path after normalization.
func (n *PathNormalizer) Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return n.Canonical(a) == n.Canonical(b)
}

// Within reports whether p lies inside root (p == root counts as inside).
func (n *PathNormalizer) Within(root, p string) bool {
	if root == "" || p == "" {
		return false
	}
	r := n.Canonical(root)
	c := n.Canonical(p)
	if r == c {
		return true
	}
	return strings.HasPrefix(c, strings.TrimSuffix(r, "/")+"/")
}
