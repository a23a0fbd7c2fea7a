// Package normalization converts loosely-typed user input into canonical values:
// enum-like configuration strings and filesystem paths used in equality checks.
package normalization

import (
	"slices"
	"strings"

	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
)

// Normalizer maps user spellings onto the values of an enum-like type.
// Matching ignores case and surrounding whitespace.
type Normalizer[T comparable] struct {
	values   map[string]T
	fallback T
}

// NewNormalizer creates a normalizer; fallback is returned for unknown input.
func NewNormalizer[T comparable](values map[string]T, fallback T) *Normalizer[T] {
	n := &Normalizer[T]{values: make(map[string]T, len(values)), fallback: fallback}
	for k, v := range values {
		n.values[key(k)] = v
	}
	return n
}

// Lookup returns the value for raw and whether raw was recognized.
func (n *Normalizer[T]) Lookup(raw string) (T, bool) {
	v, ok := n.values[key(raw)]
	return v, ok
}

// Normalize returns the matching value or the fallback.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.Lookup(raw); ok {
		return v
	}
	return n.fallback
}

// Parse is the strict form of Normalize: empty input yields the fallback,
// unknown input a validation error naming field and the accepted spellings.
func (n *Normalizer[T]) Parse(field, raw string) (T, error) {
	if key(raw) == "" {
		return n.fallback, nil
	}
	if v, ok := n.Lookup(raw); ok {
		return v, nil
	}
	var zero T
	return zero, ferrors.ValidationError("unsupported value").
		WithContext("field", field).
		WithContext("value", raw).
		WithContext("options", strings.Join(n.Options(), ", ")).
		Build()
}

// Options lists the accepted spellings, sorted.
func (n *Normalizer[T]) Options() []string {
	out := make([]string, 0, len(n.values))
	for k := range n.values {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
