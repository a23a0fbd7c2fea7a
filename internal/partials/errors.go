package partials

import (
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
)

// NotFoundError reports that no candidate location held the requested partial.
type NotFoundError struct {
	Name       string
	ContextDir string
	Candidates []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("partial %q not found (tried %s)", e.Name, strings.Join(e.Candidates, ", "))
}

// Attempted is the path reported to users: the shared-root candidate when
// one was built, otherwise the last path tried.
func (e *NotFoundError) Attempted() string {
	if len(e.Candidates) == 0 {
		return e.Name
	}
	return e.Candidates[len(e.Candidates)-1]
}

func (e *NotFoundError) Unwrap() error {
	return ferrors.NotFoundError("partial not found").
		WithContext("include", e.Name).
		WithContext("path", e.Attempted()).
		Build()
}

// CyclicIncludeError is returned when include nesting exceeds the depth limit.
type CyclicIncludeError struct {
	Name  string
	Depth int
	Chain []string
}

func (e *CyclicIncludeError) Error() string {
	return fmt.Sprintf("include %q exceeds depth %d: %s", e.Name, e.Depth, strings.Join(e.Chain, " -> "))
}

func (e *CyclicIncludeError) Unwrap() error {
	return ferrors.TemplateError("cyclic include").
		WithContext("include", e.Name).
		WithContext("depth", e.Depth).
		Build()
}

// UnsafeIncludeError is returned for names that are absolute or climb out
// of their root with "..".
type UnsafeIncludeError struct {
	Name string
}

func (e *UnsafeIncludeError) Error() string {
	return fmt.Sprintf("unsafe include name %q", e.Name)
}

func (e *UnsafeIncludeError) Unwrap() error {
	return ferrors.ValidationError("unsafe include name").
		WithContext("include", e.Name).
		Build()
}

// Placeholder is the text substituted for a partial that does not exist.
func Placeholder(path string) string {
	return fmt.Sprintf("Error: File: '%s' doesn't exist!", path)
}
