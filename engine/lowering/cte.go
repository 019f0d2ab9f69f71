package lowering

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/translrerr"
)

// registerCTEs compiles each WITH-clause entry to its base collection
// and pipeline and records it on the engine, so body lowering can inline
// it wherever FROM or a join names it.
func registerCTEs(ctes []ast.CTE, eng *engine) error {
	for _, cte := range ctes {
		var lowered *loweredCTE
		var err error
		if cte.Recursive && cte.Query.Union != nil {
			lowered, err = compileRecursiveCTE(cte, eng)
		} else {
			lowered, err = compileCTE(cte, eng)
		}
		if err != nil {
			return err
		}
		eng.ctes[cte.Name] = lowered
	}
	return nil
}

func compileCTE(cte ast.CTE, eng *engine) (*loweredCTE, error) {
	lets := map[string]string{}
	collection, stages, err := selectPipeline(cte.Query, eng, nil, lets)
	if err != nil {
		return nil, err
	}
	if len(lets) > 0 {
		return nil, &translrerr.UnsupportedCTE{Name: cte.Name, Message: "correlated references are not allowed in a CTE body"}
	}
	stages = append(stages, cteColumnRename(cte)...)
	return &loweredCTE{name: cte.Name, collection: collection, pipeline: stages}, nil
}

// cteColumnRename maps the CTE's declared column list positionally onto
// the body's projections.
func cteColumnRename(cte ast.CTE) []bson.D {
	if len(cte.Columns) == 0 || len(cte.Columns) != len(cte.Query.Projections) {
		return nil
	}
	rename := bson.M{"_id": 0}
	changed := false
	for i, col := range cte.Columns {
		orig := fieldName(cte.Query.Projections[i], i)
		if orig == col {
			rename[col] = 1
		} else {
			rename[col] = "$" + orig
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return []bson.D{{{Key: "$project", Value: rename}}}
}

// compileRecursiveCTE lowers `WITH RECURSIVE name AS (anchor UNION ALL
// recursive)` when the recursive arm is a single self-referential
// equality join: the anchor pipeline followed by a $graphLookup walking
// the join edge, flattened back into one row stream. Any other recursive
// shape raises UnsupportedCTE.
func compileRecursiveCTE(cte ast.CTE, eng *engine) (*loweredCTE, error) {
	anchor := *cte.Query
	anchor.Union = nil
	rec := cte.Query.Union

	if !cte.Query.UnionAll {
		return nil, &translrerr.UnsupportedCTE{Name: cte.Name, Message: "recursive CTE requires UNION ALL"}
	}
	base := anchor.From.Name
	if base == "" || anchor.From.Derived != nil {
		return nil, &translrerr.UnsupportedCTE{Name: cte.Name, Message: "anchor must select from a collection"}
	}

	cteCol, baseCol, err := recursiveJoinEdge(cte.Name, base, rec)
	if err != nil {
		return nil, err
	}

	lets := map[string]string{}
	collection, stages, err := selectPipeline(&anchor, eng, nil, lets)
	if err != nil {
		return nil, err
	}
	if len(lets) > 0 {
		return nil, &translrerr.UnsupportedCTE{Name: cte.Name, Message: "correlated references are not allowed in a CTE body"}
	}

	stages = append(stages,
		bson.D{{Key: "$graphLookup", Value: bson.M{
			"from":             base,
			"startWith":        "$" + cteCol,
			"connectFromField": cteCol,
			"connectToField":   baseCol,
			"as":               "__graph",
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"__tree": bson.M{"$concatArrays": bson.A{bson.A{"$$ROOT"}, "$__graph"}},
		}}},
		bson.D{{Key: "$unwind", Value: "$__tree"}},
		bson.D{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$__tree"}}},
		bson.D{{Key: "$project", Value: bson.M{"__graph": 0}}},
	)
	stages = append(stages, cteColumnRename(cte)...)
	return &loweredCTE{name: cte.Name, collection: collection, pipeline: stages}, nil
}

// recursiveJoinEdge validates the recursive arm's shape and extracts the
// join edge: the column of the CTE side (feeding startWith/
// connectFromField) and the column of the base side (connectToField).
func recursiveJoinEdge(cteName, base string, rec *ast.SelectStatement) (string, string, error) {
	if rec.Union != nil || len(rec.Joins) != 1 || rec.GroupBy != nil || rec.Having != nil || rec.Distinct {
		return "", "", &translrerr.UnsupportedCTE{Name: cteName, Message: "recursive arm must be a single self-referential join"}
	}
	join := rec.Joins[0]
	if join.Kind != ast.JoinInner || join.On == nil {
		return "", "", &translrerr.UnsupportedCTE{Name: cteName, Message: "recursive arm must inner-join on equality"}
	}

	// One side of FROM/JOIN is the CTE itself, the other the base
	// collection.
	names := map[string]string{} // qualifier (alias or name) -> "cte"/"base"
	record := func(ref ast.TableRef) bool {
		role := ""
		switch ref.Name {
		case cteName:
			role = "cte"
		case base:
			role = "base"
		default:
			return false
		}
		names[ref.Name] = role
		if ref.Alias != "" {
			names[ref.Alias] = role
		}
		return true
	}
	if !record(rec.From) || !record(join.Target) {
		return "", "", &translrerr.UnsupportedCTE{Name: cteName, Message: "recursive arm must join the CTE to its base collection"}
	}

	on := *join.On
	if on.Kind != ast.ExprBinary || on.BinaryOp != ast.OpEq ||
		on.Left.Kind != ast.ExprColumn || on.Right.Kind != ast.ExprColumn {
		return "", "", &translrerr.UnsupportedCTE{Name: cteName, Message: "recursive join condition must be a column equality"}
	}

	var cteCol, baseCol string
	for _, col := range []ast.Identifier{on.Left.Column, on.Right.Column} {
		switch names[col.Qualifier] {
		case "cte":
			cteCol = col.Name
		case "base":
			baseCol = col.Name
		}
	}
	if cteCol == "" || baseCol == "" {
		return "", "", &translrerr.UnsupportedCTE{Name: cteName, Message: "recursive join must relate the CTE to its base collection"}
	}
	return cteCol, baseCol, nil
}
