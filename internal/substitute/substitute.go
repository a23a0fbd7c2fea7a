// Package substitute defines the variable-substitution strategy applied to
// templates, pages and partials, and a text/template implementation of it.
//
// The only extension point handed to template text is include, bound by the
// caller to the file currently being processed:
//
//	{{ include "nav.html" }}
//	{{ include "nav.html" "../shared" }}
package substitute

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"text/template"

	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
)

// IncludeFunc expands a partial. The optional argument is an explicit
// directory to search instead of the including file's directory.
type IncludeFunc func(name string, dir ...string) (string, error)

// Context is everything a substitution call may depend on. It is passed
// explicitly on every call; there is no shared "current file" state.
type Context struct {
	File    string // Absolute path of the file whose text is substituted
	Dir     string // Default directory for includes
	Data    any
	Include IncludeFunc
}

// Substituter performs variable substitution on text.
type Substituter interface {
	Substitute(text string, c Context) (string, error)
}

// Func adapts an ordinary function to the Substituter interface.
type Func func(text string, c Context) (string, error)

func (f Func) Substitute(text string, c Context) (string, error) { return f(text, c) }

// Identity returns text unchanged.
var Identity Substituter = Func(func(text string, _ Context) (string, error) { return text, nil })

// ErrNoInclude is returned by include when the caller bound none.
var ErrNoInclude = errors.New("include is not available in this context")

// TemplateSubstituter evaluates text as a Go text/template.
type TemplateSubstituter struct {
	left, right string
}

// NewTemplateSubstituter returns a substituter using the given action
// delimiters; empty values mean the text/template defaults.
func NewTemplateSubstituter(left, right string) *TemplateSubstituter {
	if left == "" {
		left = "{{"
	}
	if right == "" {
		right = "}}"
	}
	return &TemplateSubstituter{left: left, right: right}
}

// Substitute parses and executes text with c.Data as the dot value.
// Text without a left delimiter is returned untouched.
func (s *TemplateSubstituter) Substitute(text string, c Context) (string, error) {
	if !strings.Contains(text, s.left) {
		return text, nil
	}

	include := c.Include
	if include == nil {
		include = func(string, ...string) (string, error) { return "", ErrNoInclude }
	}
	funcs := template.FuncMap{
		"include": include,
		"default": defaultValue,
	}

	name := filepath.Base(c.File)
	if c.File == "" {
		name = "text"
	}
	tpl, err := template.New(name).Delims(s.left, s.right).Option("missingkey=zero").Funcs(funcs).Parse(text)
	if err != nil {
		return "", failure(err, c.File, "parse template")
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, c.Data); err != nil {
		return "", failure(err, c.File, "execute template")
	}
	return buf.String(), nil
}

// defaultValue returns fallback when value is nil or a zero value.
func defaultValue(fallback, value any) any {
	if value == nil {
		return fallback
	}
	if v := reflect.ValueOf(value); v.IsZero() {
		return fallback
	}
	return value
}

func failure(err error, file, op string) error {
	return ferrors.WrapError(err, ferrors.CategoryTemplate, fmt.Sprintf("substitution failed: %s", op)).
		WithContext("path", file).Build()
}
