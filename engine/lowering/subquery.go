package lowering

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/translrerr"
)

// compileSubquery lowers an inner SELECT into its own pipeline, with the
// enclosing query's scope as the correlation parent. Correlated
// references found while lowering land in the returned let map, ready
// for the enclosing $lookup.
func compileSubquery(sel *ast.SelectStatement, ctx *exprContext) (string, []bson.D, map[string]string, error) {
	lets := map[string]string{}
	collection, stages, err := selectPipeline(sel, ctx.eng, ctx.sc, lets)
	if err != nil {
		return "", nil, nil, err
	}
	return collection, stages, lets, nil
}

func lookupStage(from string, lets map[string]string, pipeline []bson.D, as string) bson.D {
	spec := bson.M{"from": from, "pipeline": pipeline, "as": as}
	if len(lets) > 0 {
		let := bson.M{}
		for k, v := range lets {
			let[k] = v
		}
		spec["let"] = let
	}
	return bson.D{{Key: "$lookup", Value: spec}}
}

// lowerSubqueryExpr hoists a scalar or EXISTS subquery into ctx.pre and
// returns the expression fragment that replaces it.
func lowerSubqueryExpr(sq *ast.SubqueryExpr, negate bool, ctx *exprContext) (interface{}, error) {
	switch sq.Kind {
	case ast.SubqueryScalar:
		return lowerScalarSubquery(sq.Query, ctx)
	case ast.SubqueryExists, ast.SubqueryNotExists:
		if sq.Kind == ast.SubqueryNotExists {
			negate = true
		}
		return lowerExistsSubquery(sq.Query, negate, ctx)
	case ast.SubqueryIn:
		// An IN subquery reached outside an IN binary (no left-hand side
		// to compare against) has no meaning.
		return nil, &translrerr.UnsupportedConstruct{Message: "subquery in unsupported position"}
	}
	return nil, &translrerr.UnsupportedConstruct{Message: "subquery in unsupported position"}
}

// lowerScalarSubquery validates the single-value contract (one
// projection, LIMIT 1 or aggregate), emits $lookup + $unwind, and
// returns the projected field reference.
func lowerScalarSubquery(sel *ast.SelectStatement, ctx *exprContext) (interface{}, error) {
	if len(sel.Projections) != 1 {
		return nil, &translrerr.UnsupportedConstruct{Message: "scalar subquery must project exactly one expression"}
	}
	limited := sel.Limit != nil && *sel.Limit == 1
	if !limited && !containsAggregate(sel.Projections[0].Expr) {
		return nil, &translrerr.UnsupportedConstruct{Message: "scalar subquery must have LIMIT 1 or be an aggregate query"}
	}

	from, pipeline, lets, err := compileSubquery(sel, ctx)
	if err != nil {
		return nil, err
	}
	if !limited {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(1)}})
	}

	name := ctx.eng.nextName("scalar")
	ctx.pre.add(lookupStage(from, lets, pipeline, name))
	ctx.pre.add(bson.D{{Key: "$unwind", Value: bson.M{
		"path": "$" + name, "preserveNullAndEmptyArrays": true,
	}}})
	ctx.pre.exclude(name)

	return "$" + name + "." + fieldName(sel.Projections[0], 0), nil
}

// lowerInSubquery emits the IN-shape $lookup and returns the array
// reference the containing $in compares against.
func lowerInSubquery(sq *ast.SubqueryExpr, ctx *exprContext) (interface{}, error) {
	sel := sq.Query
	if len(sel.Projections) != 1 {
		return nil, &translrerr.UnsupportedConstruct{Message: "IN subquery must project exactly one column"}
	}

	from, pipeline, lets, err := compileSubquery(sel, ctx)
	if err != nil {
		return nil, err
	}

	name := ctx.eng.nextName("in")
	ctx.pre.add(lookupStage(from, lets, pipeline, name))
	ctx.pre.exclude(name)

	return "$" + name + "." + fieldName(sel.Projections[0], 0), nil
}

func lowerExistsSubquery(sel *ast.SelectStatement, negate bool, ctx *exprContext) (interface{}, error) {
	from, pipeline, lets, err := compileSubquery(sel, ctx)
	if err != nil {
		return nil, err
	}
	pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(1)}})

	name := ctx.eng.nextName("exists")
	ctx.pre.add(lookupStage(from, lets, pipeline, name))
	ctx.pre.exclude(name)

	op := "$gt"
	if negate {
		op = "$eq"
	}
	return bson.M{op: bson.A{bson.M{"$size": "$" + name}, 0}}, nil
}

// lowerRowSubquery expands `(a, b) = (SELECT x, y ...)` to $and of
// per-column equalities against a single-row $lookup.
func lowerRowSubquery(tuple []ast.Expression, sq *ast.SubqueryExpr, ctx *exprContext) (interface{}, error) {
	sel := sq.Query
	if len(sel.Projections) != len(tuple) {
		return nil, &translrerr.UnsupportedConstruct{Message: "row subquery column count must match the comparison tuple"}
	}

	from, pipeline, lets, err := compileSubquery(sel, ctx)
	if err != nil {
		return nil, err
	}
	pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(1)}})

	name := ctx.eng.nextName("row")
	ctx.pre.add(lookupStage(from, lets, pipeline, name))
	ctx.pre.exclude(name)

	conds := bson.A{}
	for i, lhs := range tuple {
		left, err := lowerExpr(lhs, ctx)
		if err != nil {
			return nil, err
		}
		field := "$" + name + "." + fieldName(sel.Projections[i], i)
		conds = append(conds, bson.M{"$eq": bson.A{left, bson.M{"$first": field}}})
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return bson.M{"$and": conds}, nil
}
