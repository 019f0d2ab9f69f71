package lowering

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/engine/catalog"
	"github.com/toddstoffel/MongoSQL/translrerr"
)

// lowerGroup assembles the $group stage and everything tied to it: the
// MariaDB-compatible $first carry of group keys, DISTINCT/GROUP_CONCAT
// accumulator post-processing, and the HAVING $match over group output
// The returned map resolves rendered
// aggregate/group-key expressions to their post-group field names.
func lowerGroup(sel *ast.SelectStatement, projs []ast.Projection, ctx *exprContext) ([]bson.D, map[string]string, []string, error) {
	groupFields := map[string]string{}
	var cleanup []string
	var preStages []bson.D
	postSet := bson.M{}

	// GROUP_CONCAT(... ORDER BY ...) controls its $push order through a
	// sort ahead of the $group.
	if sortDoc, err := groupConcatSort(projs, ctx); err != nil {
		return nil, nil, nil, err
	} else if len(sortDoc) > 0 {
		preStages = append(preStages, bson.D{{Key: "$sort", Value: sortDoc}})
	}

	// Group key: one expression directly, several as an object.
	var id interface{}
	keyNames := make([]string, len(sel.GroupBy))
	switch len(sel.GroupBy) {
	case 0:
		id = nil
	case 1:
		v, err := lowerExpr(sel.GroupBy[0], ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		id = v
		keyNames[0] = exprFieldName(sel.GroupBy[0], 0)
	default:
		key := bson.M{}
		for i, g := range sel.GroupBy {
			v, err := lowerExpr(g, ctx)
			if err != nil {
				return nil, nil, nil, err
			}
			name := exprFieldName(g, i)
			key[name] = v
			keyNames[i] = name
		}
		id = key
	}

	groupDoc := bson.M{"_id": id}

	for i, p := range projs {
		if p.Expr.Kind == ast.ExprStar || p.Expr.Kind == ast.ExprQualifiedStar {
			return nil, nil, nil, &translrerr.GroupByMismatch{Expression: "*"}
		}
		name := fieldName(p, i)

		if p.Expr.Kind == ast.ExprFunctionCall && isAggregateCall(p.Expr.Call) {
			acc, post, err := lowerAccumulator(p.Expr.Call, name, ctx)
			if err != nil {
				return nil, nil, nil, err
			}
			groupDoc[name] = acc
			for k, v := range post {
				postSet[k] = v
			}
			groupFields[render(p.Expr)] = name
			continue
		}
		if containsAggregate(p.Expr) {
			return nil, nil, nil, &translrerr.UnsupportedConstruct{
				Message: "aggregate call nested inside a projection expression",
			}
		}

		// A non-aggregate projection must be one of the group keys; it
		// is carried as $first.
		if !inGroupKeys(p.Expr, sel.GroupBy) {
			return nil, nil, nil, &translrerr.GroupByMismatch{Expression: render(p.Expr)}
		}
		v, err := lowerExpr(p.Expr, ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		groupDoc[name] = bson.M{"$first": v}
		groupFields[render(p.Expr)] = name
	}

	// Group keys not projected are still addressable from HAVING and
	// ORDER BY through _id.
	for i, g := range sel.GroupBy {
		if _, ok := groupFields[render(g)]; ok {
			continue
		}
		if len(sel.GroupBy) == 1 {
			groupFields[render(g)] = "_id"
		} else {
			groupFields[render(g)] = "_id." + keyNames[i]
		}
	}

	// HAVING may use aggregates absent from the projection list; they
	// become hidden accumulators excluded by the final projection.
	var havingStage []bson.D
	if sel.Having != nil {
		err := addHiddenAccumulators(*sel.Having, groupDoc, groupFields, postSet, &cleanup, ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		havingCtx := &exprContext{eng: ctx.eng, sc: ctx.sc, pre: &stageCollector{}, lets: ctx.lets, groupFields: groupFields}
		filter, err := lowerFilter(*sel.Having, havingCtx)
		if err != nil {
			return nil, nil, nil, err
		}
		havingStage = append(havingStage, bson.D{{Key: "$match", Value: filter}})
	}

	stages := preStages
	stages = append(stages, ctx.pre.stages...)
	cleanup = append(cleanup, ctx.pre.cleanup...)
	ctx.pre = &stageCollector{}
	stages = append(stages, bson.D{{Key: "$group", Value: groupDoc}})
	if len(postSet) > 0 {
		stages = append(stages, bson.D{{Key: "$set", Value: postSet}})
	}
	stages = append(stages, havingStage...)
	return stages, groupFields, cleanup, nil
}

func inGroupKeys(e ast.Expression, keys []ast.Expression) bool {
	for _, k := range keys {
		if exprEqual(e, k) {
			return true
		}
	}
	return false
}

// lowerAccumulator builds one $group accumulator. COUNT and the DISTINCT
// forms are shaped here after the catalogue lookup and arity check,
// without calling the catalogue recipe; two-phase
// accumulators (COUNT DISTINCT, GROUP_CONCAT) also return the $set
// entries that finish them after the $group.
func lowerAccumulator(call *ast.FunctionCall, name string, ctx *exprContext) (interface{}, bson.M, error) {
	entry, err := catalog.Lookup(call.Name)
	if err != nil {
		return nil, nil, err
	}
	if err := entry.CheckArity(len(call.Args)); err != nil {
		return nil, nil, err
	}

	if call.Name == "COUNT" && len(call.Args) == 1 && call.Args[0].Kind == ast.ExprStar {
		return bson.M{"$sum": 1}, nil, nil
	}

	arg, err := lowerExpr(call.Args[0], ctx)
	if err != nil {
		return nil, nil, err
	}

	if call.Distinct {
		post, err := distinctFinisher(call.Name, name)
		if err != nil {
			return nil, nil, err
		}
		return bson.M{"$addToSet": arg}, post, nil
	}

	switch call.Name {
	case "COUNT":
		return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{arg, nil}}, 0, 1}}}, nil, nil
	case "GROUP_CONCAT":
		sep := ","
		if call.HasSeparator {
			sep = call.GroupConcatSeparator
		}
		return bson.M{"$push": arg}, bson.M{name: joinPushed(name, sep)}, nil
	}

	args := []interface{}{arg}
	for _, a := range call.Args[1:] {
		v, err := lowerExpr(a, ctx)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, v)
	}
	acc, err := entry.Lower(args)
	if err != nil {
		return nil, nil, err
	}
	return acc, nil, nil
}

var distinctReducers = map[string]string{
	"COUNT": "$size", "SUM": "$sum", "AVG": "$avg", "MIN": "$min", "MAX": "$max",
}

func distinctFinisher(fn, field string) (bson.M, error) {
	op, ok := distinctReducers[fn]
	if !ok {
		return nil, &translrerr.UnsupportedArgument{Name: fn, Message: "DISTINCT is not supported for this aggregate"}
	}
	return bson.M{field: bson.M{op: "$" + field}}, nil
}

// joinPushed folds a $push array into a separator-joined string.
func joinPushed(field, sep string) bson.M {
	return bson.M{"$reduce": bson.M{
		"input":        "$" + field,
		"initialValue": "",
		"in": bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$$value", ""}},
			bson.M{"$toString": "$$this"},
			bson.M{"$concat": bson.A{"$$value", sep, bson.M{"$toString": "$$this"}}},
		}},
	}}
}

// groupConcatSort collects the ORDER BY clauses of GROUP_CONCAT calls
// into one pre-group sort document.
func groupConcatSort(projs []ast.Projection, ctx *exprContext) (bson.D, error) {
	sort := bson.D{}
	for _, p := range projs {
		if p.Expr.Kind != ast.ExprFunctionCall || p.Expr.Call.Name != "GROUP_CONCAT" {
			continue
		}
		for _, item := range p.Expr.Call.GroupConcatOrderBy {
			if item.Expr.Kind != ast.ExprColumn {
				return nil, &translrerr.UnsupportedArgument{Name: "GROUP_CONCAT", Message: "ORDER BY must name a column"}
			}
			v, err := resolveColumn(item.Expr.Column, ctx)
			if err != nil {
				return nil, err
			}
			path, ok := v.(string)
			if !ok || path[0] != '$' {
				return nil, &translrerr.UnsupportedArgument{Name: "GROUP_CONCAT", Message: "ORDER BY must name a column"}
			}
			dir := 1
			if !item.Asc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: path[1:], Value: dir})
		}
	}
	return sort, nil
}

// addHiddenAccumulators registers accumulators for aggregates that
// appear only in HAVING, naming them synthetically and scheduling their
// exclusion from the final projection.
func addHiddenAccumulators(having ast.Expression, groupDoc bson.M, groupFields map[string]string, postSet bson.M, cleanup *[]string, ctx *exprContext) error {
	var walkErr error
	walk(having, func(x ast.Expression) bool {
		if walkErr != nil {
			return false
		}
		if x.Kind == ast.ExprSubquery {
			return false
		}
		if x.Kind != ast.ExprFunctionCall || !isAggregateCall(x.Call) {
			return true
		}
		if _, ok := groupFields[render(x)]; ok {
			return false
		}
		name := ctx.eng.nextName("having")
		acc, post, err := lowerAccumulator(x.Call, name, ctx)
		if err != nil {
			walkErr = err
			return false
		}
		groupDoc[name] = acc
		for k, v := range post {
			postSet[k] = v
		}
		groupFields[render(x)] = name
		*cleanup = append(*cleanup, name)
		return false
	})
	return walkErr
}
