// Package lowering implements the deterministic IR → Invocation
// rewriting: SELECT's find/aggregate choice, the aggregation pipeline
// stage assembly, the five subquery shapes, CTE materialisation,
// conditional lowering, and the implicit ordering shim. Every function
// here is pure: same Statement and Options in, same Invocation out.
package lowering

import "go.mongodb.org/mongo-driver/bson"

// Options is the full set of knobs Translate accepts.
type Options struct {
	// Collation is attached to find/aggregate invocations whenever the
	// statement has an explicit ORDER BY; comparisons without an ORDER BY
	// get no collation. The zero value is replaced by DefaultCollation.
	Collation bson.M
	// ImplicitOrderOnLimit toggles the implicit ordering shim. Defaults to
	// true; set explicitly false to disable it.
	ImplicitOrderOnLimit bool
	// ReservedWordDialect is carried on Options but read nowhere: the
	// lexer recognises one fixed reserved-word set (engine/lexer) whatever
	// its value.
	ReservedWordDialect string
}

// DefaultCollation is the MariaDB utf8mb4_unicode_ci-equivalent spec the
// reference test harness expects.
func DefaultCollation() bson.M {
	return bson.M{"locale": "en", "caseLevel": false, "strength": 1, "numericOrdering": false}
}

// DefaultOptions returns the Options Translate uses when the caller
// passes nil options.
func DefaultOptions() Options {
	return Options{
		Collation:            DefaultCollation(),
		ImplicitOrderOnLimit: true,
		ReservedWordDialect:  "mariadb",
	}
}
