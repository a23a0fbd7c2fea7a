// Package content models the source pages under the content root and decides
// which of them are standalone pages and which are local partials.
package content

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
	"git.home.luguber.info/inful/pagewrap/internal/foundation/normalization"
)

// File is one source file under the content root.
type File struct {
	Path         string // Absolute path
	RelPath      string // Path relative to the content root, OS separators
	LocalPartial bool   // Name carries the partial marker; never assembled on its own
}

// Dir returns the directory containing the file.
func (f File) Dir() string { return filepath.Dir(f.Path) }

// Name returns the base name of the file.
func (f File) Name() string { return filepath.Base(f.Path) }

// Tree describes a content root and its naming conventions.
type Tree struct {
	root       string
	marker     string
	extensions []string
	excluded   []string
	norm       *normalization.PathNormalizer
}

// NewTree creates a Tree. Files under any of the excluded directories are
// never reported as content.
func NewTree(root, marker string, extensions []string, norm *normalization.PathNormalizer, excluded ...string) *Tree {
	if norm == nil {
		norm = normalization.NewPathNormalizer(false)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	return &Tree{
		root:       abs,
		marker:     marker,
		extensions: extensions,
		excluded:   slices.DeleteFunc(slices.Clone(excluded), func(s string) bool { return s == "" }),
		norm:       norm,
	}
}

// Root returns the absolute content root.
func (t *Tree) Root() string { return t.root }

// IsLocalPartial reports whether the file name carries the partial marker.
func (t *Tree) IsLocalPartial(path string) bool {
	return IsLocalPartialName(filepath.Base(path), t.marker)
}

// IsLocalPartialName reports whether name begins with marker.
func IsLocalPartialName(name, marker string) bool {
	return marker != "" && strings.HasPrefix(name, marker)
}

// Contains reports whether path is a content file candidate: inside the
// root, outside excluded directories, with an accepted extension.
func (t *Tree) Contains(path string) bool {
	if !t.norm.Within(t.root, path) || t.norm.Equal(t.root, path) {
		return false
	}
	for _, ex := range t.excluded {
		if t.norm.Within(ex, path) {
			return false
		}
	}
	return t.acceptsExtension(path)
}

func (t *Tree) acceptsExtension(path string) bool {
	if len(t.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(t.extensions, ext)
}

// File builds the File for path, which must lie under the root.
func (t *Tree) File(path string) (File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return File{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve content path").
			WithContext("path", path).Build()
	}
	rel, err := filepath.Rel(t.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		// Spelling may differ only by case on case-insensitive filesystems.
		// Keep the caller's case below the root so destinations do not
		// depend on how the root was spelled.
		if !t.norm.Within(t.root, abs) {
			return File{}, ferrors.ValidationError("path is outside the content root").
				WithContext("path", path).
				WithContext("root", t.root).Build()
		}
		rel = relBelow(t.root, abs)
	}
	return File{Path: abs, RelPath: rel, LocalPartial: t.IsLocalPartial(abs)}, nil
}

// relBelow drops as many leading components from abs as root has.
func relBelow(root, abs string) string {
	rootParts := strings.Split(filepath.ToSlash(filepath.Clean(root)), "/")
	absParts := strings.Split(filepath.ToSlash(filepath.Clean(abs)), "/")
	if len(absParts) <= len(rootParts) {
		return "."
	}
	return filepath.Join(absParts[len(rootParts):]...)
}

// Discover walks the root and returns every content file, partials
// included, sorted by relative path. A missing root yields no files.
func (t *Tree) Discover() ([]File, error) {
	var files []File
	err := filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == t.root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != t.root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			for _, ex := range t.excluded {
				if t.norm.Equal(ex, path) {
					return fs.SkipDir
				}
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !t.acceptsExtension(path) {
			return nil
		}
		f, err := t.File(path)
		if err != nil {
			return err
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "discover content files").
			WithContext("path", t.root).Build()
	}
	slices.SortFunc(files, func(a, b File) int { return strings.Compare(a.RelPath, b.RelPath) })
	return files, nil
}

// Pages returns the discovered files that are assembled on their own.
func (t *Tree) Pages() ([]File, error) {
	files, err := t.Discover()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(files, func(f File) bool { return f.LocalPartial }), nil
}

// Exists reports whether path exists as a regular file.
func Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
