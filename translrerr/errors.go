// Package translrerr defines the tagged error variants the translator can
// raise. Every kind is a distinct exported type implementing
// both error and Kind() string, so callers can narrow with errors.As
// instead of matching on message text. Errors are reported, never
// retried: the engine does not fall back to partial output.
package translrerr

import "fmt"

// Position is the source location an error is anchored to, carried the
// way the lexer's own position fields are (engine/lexer.Token).
type Position struct {
	Pos    int
	Line   int
	Column int
}

// TranslationError is satisfied by every error kind this package defines.
type TranslationError interface {
	error
	Kind() string
}

// SyntaxError is raised by the lexer or parser on malformed input.
type SyntaxError struct {
	Position Position
	Expected string
	Found    string
	Hint     string
}

func (e *SyntaxError) Error() string {
	msg := fmt.Sprintf("syntax error at line %d, column %d: expected %s, found %s",
		e.Position.Line, e.Position.Column, e.Expected, e.Found)
	if e.Hint != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", e.Hint)
	}
	return msg
}
func (e *SyntaxError) Kind() string { return "SyntaxError" }

// UnexpectedEnd is raised when the token stream ends mid-construct.
type UnexpectedEnd struct {
	Expected string
}

func (e *UnexpectedEnd) Error() string { return fmt.Sprintf("unexpected end of input, expected %s", e.Expected) }
func (e *UnexpectedEnd) Kind() string  { return "UnexpectedEnd" }

// UnclosedConstruct describes a bracketed construct (parens, CASE…END)
// that never finds its closing token. The parser does not construct it: a
// missing closing token is reported as UnexpectedEnd or SyntaxError.
type UnclosedConstruct struct {
	ConstructKind string
	Position      Position
}

func (e *UnclosedConstruct) Error() string {
	return fmt.Sprintf("unclosed %s starting at line %d, column %d", e.ConstructKind, e.Position.Line, e.Position.Column)
}
func (e *UnclosedConstruct) Kind() string { return "UnclosedConstruct" }

// UnsupportedConstruct is well-formed SQL outside the supported subset.
type UnsupportedConstruct struct {
	Message string
}

func (e *UnsupportedConstruct) Error() string { return "unsupported construct: " + e.Message }
func (e *UnsupportedConstruct) Kind() string  { return "UnsupportedConstruct" }

// UnknownFunction is raised when a FunctionCall name is absent from the catalogue.
type UnknownFunction struct {
	Name string
	Hint string
}

func (e *UnknownFunction) Error() string {
	msg := fmt.Sprintf("unknown function %q", e.Name)
	if e.Hint != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", e.Hint)
	}
	return msg
}
func (e *UnknownFunction) Kind() string { return "UnknownFunction" }

// ArityMismatch is raised when a function call's argument count falls
// outside the catalogue entry's [MinArgs, MaxArgs] range.
type ArityMismatch struct {
	Name     string
	Got      int
	MinArgs  int
	MaxArgs  int
}

func (e *ArityMismatch) Error() string {
	return fmt.Sprintf("function %s expects between %d and %d arguments, got %d", e.Name, e.MinArgs, e.MaxArgs, e.Got)
}
func (e *ArityMismatch) Kind() string { return "ArityMismatch" }

// UnsupportedArgument is raised when a call's arguments are syntactically
// valid but semantically unsupported (e.g. a window function without OVER).
type UnsupportedArgument struct {
	Name    string
	Message string
}

func (e *UnsupportedArgument) Error() string {
	return fmt.Sprintf("unsupported argument to %s: %s", e.Name, e.Message)
}
func (e *UnsupportedArgument) Kind() string { return "UnsupportedArgument" }

// GroupByMismatch is raised when a non-aggregate projection is absent from GROUP BY.
type GroupByMismatch struct {
	Expression string
}

func (e *GroupByMismatch) Error() string {
	return fmt.Sprintf("column %q must appear in GROUP BY or be used in an aggregate function", e.Expression)
}
func (e *GroupByMismatch) Kind() string { return "GroupByMismatch" }

// DistinctGroupByConflict is raised when DISTINCT and GROUP BY disagree.
type DistinctGroupByConflict struct {
	Message string
}

func (e *DistinctGroupByConflict) Error() string { return "DISTINCT/GROUP BY conflict: " + e.Message }
func (e *DistinctGroupByConflict) Kind() string  { return "DistinctGroupByConflict" }

// UnresolvedIdentifier is raised when a column cannot be resolved against
// the base table, its joins, or their aliases.
type UnresolvedIdentifier struct {
	Name string
}

func (e *UnresolvedIdentifier) Error() string { return fmt.Sprintf("unresolved identifier %q", e.Name) }
func (e *UnresolvedIdentifier) Kind() string  { return "UnresolvedIdentifier" }

// AmbiguousIdentifier describes a column that resolves against more than
// one table/alias in scope. Lowering does not construct it: an
// unqualified column always resolves to a field at the document root.
type AmbiguousIdentifier struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousIdentifier) Error() string {
	return fmt.Sprintf("ambiguous identifier %q, candidates: %v", e.Name, e.Candidates)
}
func (e *AmbiguousIdentifier) Kind() string { return "AmbiguousIdentifier" }

// UnsupportedCTE is raised for recursive CTEs not expressible as a single
// self-referential equality-join $graphLookup.
type UnsupportedCTE struct {
	Name    string
	Message string
}

func (e *UnsupportedCTE) Error() string { return fmt.Sprintf("unsupported CTE %q: %s", e.Name, e.Message) }
func (e *UnsupportedCTE) Kind() string  { return "UnsupportedCTE" }

// CorrelationEscapes is raised when a correlated reference would need to
// cross more than one subquery nesting level.
type CorrelationEscapes struct {
	Name string
}

func (e *CorrelationEscapes) Error() string {
	return fmt.Sprintf("correlated reference %q escapes more than one nesting level", e.Name)
}
func (e *CorrelationEscapes) Kind() string { return "CorrelationEscapes" }

// UnsupportedFormatSpecifier is raised when DATE_FORMAT/STR_TO_DATE sees a
// MariaDB format specifier with no MongoDB $dateToString equivalent.
type UnsupportedFormatSpecifier struct {
	Specifier string
	Function  string
}

func (e *UnsupportedFormatSpecifier) Error() string {
	return fmt.Sprintf("%s: unsupported format specifier %q", e.Function, e.Specifier)
}
func (e *UnsupportedFormatSpecifier) Kind() string { return "UnsupportedFormatSpecifier" }
