package lowering

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/engine/catalog"
	"github.com/toddstoffel/MongoSQL/translrerr"
)

// lowerWindows rewrites windowed projections into $setWindowFields
// stages placed after WHERE/JOIN and before GROUP BY.
// Each windowed call computes into its projection's field; the
// projection list comes back with those calls replaced by plain column
// references. NTILE needs the partition size, so it computes through two
// helper fields finished by a $set.
func lowerWindows(projs []ast.Projection, ctx *exprContext) ([]bson.D, []ast.Projection, []string, error) {
	var stages []bson.D
	var cleanup []string

	for i, p := range projs {
		if !containsWindow(p.Expr) {
			continue
		}
		if p.Expr.Kind != ast.ExprFunctionCall || p.Expr.Call.Window == nil {
			return nil, nil, nil, &translrerr.UnsupportedConstruct{
				Message: "window function nested inside a projection expression",
			}
		}
		call := p.Expr.Call

		entry, err := catalog.Lookup(call.Name)
		if err != nil {
			return nil, nil, nil, err
		}
		if entry.Kind != catalog.Window {
			return nil, nil, nil, &translrerr.UnsupportedConstruct{
				Message: "OVER is only supported on window functions",
			}
		}
		if err := entry.CheckArity(len(call.Args)); err != nil {
			return nil, nil, nil, err
		}

		spec := bson.M{}
		if partition, err := windowPartition(call.Window.PartitionBy, ctx); err != nil {
			return nil, nil, nil, err
		} else if partition != nil {
			spec["partitionBy"] = partition
		}
		sortBy, err := windowSort(call, ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		if len(sortBy) > 0 {
			spec["sortBy"] = sortBy
		}

		name := fieldName(p, i)
		output, extra, err := windowOutput(call, entry, name, ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		spec["output"] = output
		stages = append(stages, bson.D{{Key: "$setWindowFields", Value: spec}})
		if len(extra.set) > 0 {
			stages = append(stages, bson.D{{Key: "$set", Value: extra.set}})
		}
		cleanup = append(cleanup, extra.cleanup...)

		projs[i] = ast.Projection{
			Expr:  ast.Expression{Kind: ast.ExprColumn, Column: ast.Identifier{Name: name}},
			Alias: p.Alias,
		}
	}

	return stages, projs, cleanup, nil
}

func windowPartition(exprs []ast.Expression, ctx *exprContext) (interface{}, error) {
	switch len(exprs) {
	case 0:
		return nil, nil
	case 1:
		return lowerExpr(exprs[0], ctx)
	}
	key := bson.M{}
	for i, e := range exprs {
		v, err := lowerExpr(e, ctx)
		if err != nil {
			return nil, err
		}
		key[exprFieldName(e, i)] = v
	}
	return key, nil
}

// windowSort builds the sortBy document; the rank family is meaningless
// without one.
func windowSort(call *ast.FunctionCall, ctx *exprContext) (bson.D, error) {
	sort := bson.D{}
	for _, item := range call.Window.OrderBy {
		if item.Expr.Kind != ast.ExprColumn {
			return nil, &translrerr.UnsupportedArgument{Name: call.Name, Message: "OVER(ORDER BY ...) must name columns"}
		}
		v, err := resolveColumn(item.Expr.Column, ctx)
		if err != nil {
			return nil, err
		}
		path, ok := v.(string)
		if !ok || path[0] != '$' {
			return nil, &translrerr.UnsupportedArgument{Name: call.Name, Message: "OVER(ORDER BY ...) must name columns"}
		}
		dir := 1
		if !item.Asc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: path[1:], Value: dir})
	}
	if len(sort) == 0 && ranked(call.Name) {
		return nil, &translrerr.UnsupportedArgument{Name: call.Name, Message: "requires OVER(ORDER BY ...)"}
	}
	return sort, nil
}

func ranked(name string) bool {
	switch name {
	case "ROW_NUMBER", "RANK", "DENSE_RANK", "NTILE":
		return true
	}
	return false
}

type windowExtra struct {
	set     bson.M
	cleanup []string
}

// windowOutput builds the stage's output document. LAG/LEAD lower
// through the catalogue's $shift recipes with literal offsets; NTILE
// derives its bucket from document number and partition size.
func windowOutput(call *ast.FunctionCall, entry catalog.Entry, name string, ctx *exprContext) (bson.M, windowExtra, error) {
	if call.Name == "NTILE" {
		buckets, err := lowerExpr(call.Args[0], ctx)
		if err != nil {
			return nil, windowExtra{}, err
		}
		docField := name + "_doc"
		totalField := name + "_total"
		output := bson.M{
			docField: bson.M{"$documentNumber": bson.M{}},
			totalField: bson.M{
				"$count": bson.M{},
				"window": bson.M{"documents": bson.A{"unbounded", "unbounded"}},
			},
		}
		set := bson.M{name: bson.M{"$ceil": bson.M{"$divide": bson.A{
			bson.M{"$multiply": bson.A{"$" + docField, buckets}},
			"$" + totalField,
		}}}}
		return output, windowExtra{set: set, cleanup: []string{docField, totalField}}, nil
	}

	args := make([]interface{}, 0, len(call.Args))
	for _, a := range call.Args {
		v, err := lowerExpr(a, ctx)
		if err != nil {
			return nil, windowExtra{}, err
		}
		args = append(args, v)
	}
	out, err := entry.Lower(args)
	if err != nil {
		return nil, windowExtra{}, err
	}
	return bson.M{name: out}, windowExtra{}, nil
}
