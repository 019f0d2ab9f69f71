package catalog

import "go.mongodb.org/mongo-driver/bson"

// M and A alias the driver's document/array types so every recipe in this
// package returns values that are wire-ready for the mongo-driver with no
// further conversion.
type M = bson.M
type A = bson.A
