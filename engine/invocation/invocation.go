// Package invocation defines the MongoDB driver call a Statement lowers
// to. Every field is wire-ready for go.mongodb.org/mongo-driver
// with no further conversion: filters, projections, sorts, pipeline
// stages, and update documents are bson.D/bson.M/bson.A/mongo.Pipeline
// values end to end.
package invocation

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Op enumerates the MongoDB driver call an Invocation represents.
type Op string

const (
	OpFind        Op = "find"
	OpAggregate   Op = "aggregate"
	OpInsertOne   Op = "insertOne"
	OpInsertMany  Op = "insertMany"
	OpUpdateMany  Op = "updateMany"
	OpDeleteMany  Op = "deleteMany"
)

// Invocation is the translator's public result type.
type Invocation struct {
	Collection string
	Op         Op

	// find. Sort is a bson.D because multi-key sort order is positional.
	Filter     bson.M
	Projection bson.M
	Sort       bson.D
	Skip       *int64
	Limit      *int64

	// aggregate
	Pipeline mongo.Pipeline

	// writes
	Document  bson.M
	Documents []bson.M
	Update    interface{} // bson.M for $set-style, mongo.Pipeline for expression updates

	Collation bson.M
}
