// Package catalog is the function-mapping registry: SQL scalar/aggregate
// function names (case-insensitive) to MongoDB expression-lowering
// recipes. The catalogue is built once, at package init, and is never
// mutated afterwards — the lowering engine only reads it, so concurrent
// translations share it without synchronisation.
package catalog

import (
	"fmt"

	"github.com/toddstoffel/MongoSQL/translrerr"
)

// Kind classifies a catalogue entry by how the lowering engine is allowed
// to place it: Scalar/Aggregate/Window entries are looked up here;
// Structural forms (CASE, IF, COALESCE, NULLIF) are handled directly by
// the lowering engine and never appear in this registry.
type Kind int

const (
	Scalar Kind = iota
	Aggregate
	Window
)

// LowerFunc produces a MongoDB expression document from a call's
// already-lowered arguments. Recipes are pure: same args in, same
// expression document out, nothing external consulted.
type LowerFunc func(args []interface{}) (interface{}, error)

// Entry is one catalogue registration.
type Entry struct {
	Name    string
	Kind    Kind
	MinArgs int
	MaxArgs int // -1 means unbounded
	Lower   LowerFunc
}

var registry = map[string]Entry{}

func register(e Entry) {
	if _, exists := registry[e.Name]; exists {
		panic("catalog: duplicate registration for " + e.Name)
	}
	registry[e.Name] = e
}

// Lookup returns the catalogue entry for name (already uppercased by the
// caller) or an UnknownFunction error with a nearest-match hint.
func Lookup(name string) (Entry, error) {
	if e, ok := registry[name]; ok {
		return e, nil
	}
	return Entry{}, &translrerr.UnknownFunction{Name: name, Hint: suggest(name)}
}

// CheckArity validates a call's argument count against the entry's bounds.
func (e Entry) CheckArity(n int) error {
	if n < e.MinArgs || (e.MaxArgs >= 0 && n > e.MaxArgs) {
		return &translrerr.ArityMismatch{Name: e.Name, Got: n, MinArgs: e.MinArgs, MaxArgs: e.MaxArgs}
	}
	return nil
}

// IsAccumulator reports whether a call to name with argc arguments acts
// as a $group accumulator. BIT_AND/BIT_OR/BIT_XOR double as two-argument
// scalar operators; only their one-argument form accumulates.
func IsAccumulator(name string, argc int) bool {
	e, ok := registry[name]
	if !ok || e.Kind != Aggregate {
		return false
	}
	switch name {
	case "BIT_AND", "BIT_OR", "BIT_XOR":
		return argc == 1
	}
	return true
}

func suggest(unknown string) string {
	best := ""
	bestDist := 3
	for name := range registry {
		d := levenshtein(unknown, name)
		if d < bestDist {
			bestDist = d
			best = name
		}
	}
	return best
}

func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = min3(matrix[i-1][j]+1, matrix[i][j-1]+1, matrix[i-1][j-1]+cost)
		}
	}
	return matrix[len(a)][len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// unary is a small helper for the common {$op: arg} shape.
func unary(op string) LowerFunc {
	return func(args []interface{}) (interface{}, error) {
		return M{op: args[0]}, nil
	}
}

// variadic is a small helper for the common {$op: [args...]} shape.
func variadic(op string) LowerFunc {
	return func(args []interface{}) (interface{}, error) {
		return M{op: A(args)}, nil
	}
}

func argsError(name, msg string) error {
	return &translrerr.UnsupportedArgument{Name: name, Message: msg}
}

// unsupported registers a name whose semantics have no MongoDB-native
// operator; the call fails loudly instead of lowering to something
// unrelated.
func unsupported(name, msg string) LowerFunc {
	return func(args []interface{}) (interface{}, error) {
		return nil, argsError(name, msg)
	}
}

func errf(format string, a ...interface{}) error {
	return fmt.Errorf(format, a...)
}
