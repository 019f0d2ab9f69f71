// Package mongosql translates MariaDB/MySQL-dialect SQL statements into
// MongoDB driver invocations: a find with projection/sort/limit, an
// aggregate pipeline, or an insert/update/delete call. Translation is
// purely syntactic/semantic — no row data is ever evaluated on the
// client; all computation happens in MongoDB.
//
// The pipeline is compile-only: engine/lexer tokenizes, engine/parser
// builds the Statement IR, and engine/lowering rewrites the IR into an
// invocation.Invocation using the engine/catalog function registry.
// Translate is a pure function of the statement text, the database name,
// and the Options — stateless per statement, safe to call from any
// number of goroutines concurrently.
package mongosql

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/toddstoffel/MongoSQL/engine/invocation"
	"github.com/toddstoffel/MongoSQL/engine/lowering"
	"github.com/toddstoffel/MongoSQL/engine/parser"
)

// Options configures a translation; see lowering.Options for fields.
// The zero value is not useful — start from DefaultOptions.
type Options = lowering.Options

// DefaultOptions returns the options matching the MariaDB
// utf8mb4_unicode_ci reference: its collation spec, the implicit
// ordering shim on, and the mariadb reserved-word dialect.
func DefaultOptions() Options {
	return lowering.DefaultOptions()
}

// Translate compiles one SQL statement against the named database and
// returns the MongoDB invocation it lowers to. A nil opts means
// DefaultOptions. Errors are translrerr kinds; nothing is retried.
func Translate(sql, database string, opts *Options) (*invocation.Invocation, error) {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}

	start := time.Now()
	stmt, err := parser.Parse(sql)
	if err != nil {
		log.WithFields(logrus.Fields{
			"database": database,
			"bytes":    len(sql),
		}).WithError(err).Warn("parse failed")
		return nil, err
	}

	inv, err := lowering.Lower(stmt, o)
	if err != nil {
		log.WithFields(logrus.Fields{
			"database": database,
			"bytes":    len(sql),
		}).WithError(err).Warn("lowering failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"database":   database,
		"collection": inv.Collection,
		"op":         inv.Op,
		"bytes":      len(sql),
		"duration":   time.Since(start),
	}).Debug("translated statement")
	return inv, nil
}

// TranslateMany compiles statement-delimited batch input, aborting on
// the first error and reporting the offending statement's 1-based index.
func TranslateMany(sql, database string, opts *Options) ([]*invocation.Invocation, error) {
	stmts, err := parser.ParseMany(sql)
	if err != nil {
		return nil, err
	}

	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}

	invocations := make([]*invocation.Invocation, 0, len(stmts))
	for i, stmt := range stmts {
		inv, err := lowering.Lower(stmt, o)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, err)
		}
		invocations = append(invocations, inv)
	}
	return invocations, nil
}
