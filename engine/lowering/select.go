package lowering

import (
	"strconv"

	"github.com/jinzhu/inflection"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/translrerr"
)

// literalSource is the synthetic collection table-less statements
// aggregate over; the pipeline's $documents stage supplies the single
// document, the name only satisfies the invocation shape.
var literalSource = inflection.Plural("__literal")

// selectPipeline lowers one SELECT into its base collection and stage
// list, in a fixed deterministic stage order: base/derived FROM,
// joins, WHERE, window stages, GROUP BY/DISTINCT, HAVING, ORDER BY,
// projection, skip/limit with the implicit ordering shim. outer is the enclosing
// query's scope (nil at the top level); lets collects correlated
// references for the caller's $lookup.
func selectPipeline(sel *ast.SelectStatement, eng *engine, outer *scope, lets map[string]string) (string, []bson.D, error) {
	if sel.Union != nil {
		return "", nil, &translrerr.UnsupportedConstruct{Message: "UNION is only supported inside a recursive CTE"}
	}

	sel = swapRightJoins(sel)

	sc := newScope(outer)
	var stages []bson.D

	collection, stages, err := resolveFrom(sel, eng, sc, lets, stages)
	if err != nil {
		return "", nil, err
	}

	ctx := &exprContext{eng: eng, sc: sc, pre: &stageCollector{}, lets: lets}

	// Joins, in source order.
	for _, join := range sel.Joins {
		joinStages, err := lowerJoin(join, ctx)
		if err != nil {
			return "", nil, err
		}
		stages = append(stages, joinStages...)
	}

	// WHERE. Subquery lookups hoisted out of the predicate come
	// first so the $match can reference their output.
	var cleanup []string
	if sel.Where != nil {
		filter, err := lowerFilter(*sel.Where, ctx)
		if err != nil {
			return "", nil, err
		}
		stages = append(stages, ctx.pre.stages...)
		cleanup = append(cleanup, ctx.pre.cleanup...)
		ctx.pre = &stageCollector{}
		stages = append(stages, bson.D{{Key: "$match", Value: filter}})
	}

	// Window functions: $setWindowFields after WHERE/JOIN,
	// before GROUP BY.
	projs := make([]ast.Projection, len(sel.Projections))
	copy(projs, sel.Projections)
	windowStages, projs, windowCleanup, err := lowerWindows(projs, ctx)
	if err != nil {
		return "", nil, err
	}
	stages = append(stages, windowStages...)
	cleanup = append(cleanup, windowCleanup...)

	grouped := len(sel.GroupBy) > 0 || anyAggregate(projs)

	var groupFields map[string]string
	if grouped {
		if sel.Distinct && len(sel.GroupBy) == 0 {
			return "", nil, &translrerr.DistinctGroupByConflict{
				Message: "SELECT DISTINCT over aggregate projections without GROUP BY",
			}
		}
		groupStages, fields, havingCleanup, err := lowerGroup(sel, projs, ctx)
		if err != nil {
			return "", nil, err
		}
		stages = append(stages, groupStages...)
		groupFields = fields
		cleanup = append(cleanup, havingCleanup...)
	} else if sel.Distinct {
		distinctStages, err := lowerDistinct(projs, ctx)
		if err != nil {
			return "", nil, err
		}
		stages = append(stages, ctx.pre.stages...)
		cleanup = append(cleanup, ctx.pre.cleanup...)
		ctx.pre = &stageCollector{}
		stages = append(stages, distinctStages...)
	}

	// ORDER BY.
	computed := map[string]bool{}
	if len(sel.OrderBy) > 0 {
		sortPre, sortDoc, sortComputed, err := lowerOrderBy(sel.OrderBy, projs, groupFields, ctx)
		if err != nil {
			return "", nil, err
		}
		for k := range sortComputed {
			computed[k] = true
		}
		stages = append(stages, sortPre...)
		stages = append(stages, bson.D{{Key: "$sort", Value: sortDoc}})
	}

	// Projection.
	projStages, err := lowerProjection(projs, grouped, computed, cleanup, ctx)
	if err != nil {
		return "", nil, err
	}
	stages = append(stages, projStages...)

	// Implicit ordering shim, immediately before
	// $skip/$limit.
	if sel.Limit != nil && len(sel.OrderBy) == 0 && eng.opts.ImplicitOrderOnLimit {
		stages = append(stages, bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}})
	}

	// LIMIT/OFFSET.
	if sel.Offset != nil {
		stages = append(stages, bson.D{{Key: "$skip", Value: *sel.Offset}})
	}
	if sel.Limit != nil {
		stages = append(stages, bson.D{{Key: "$limit", Value: *sel.Limit}})
	}

	return collection, stages, nil
}

// resolveFrom establishes the base collection: a plain table, a CTE
// inlined as its compiled pipeline, a derived table replacing the base,
// or the synthetic one-document source for table-less statements.
func resolveFrom(sel *ast.SelectStatement, eng *engine, sc *scope, lets map[string]string, stages []bson.D) (string, []bson.D, error) {
	from := sel.From

	if from.Derived != nil {
		collection, inner, err := selectPipeline(from.Derived, eng, sc.outer, lets)
		if err != nil {
			return "", nil, err
		}
		sc.add(from.Alias, from.Alias, true)
		return collection, append(stages, inner...), nil
	}

	if from.Name == "" {
		sc.add(literalSource, from.Alias, true)
		return literalSource, append(stages, bson.D{{Key: "$documents", Value: bson.A{bson.M{}}}}), nil
	}

	if cte, ok := eng.ctes[from.Name]; ok {
		sc.add(from.Name, from.Alias, true)
		return cte.collection, append(stages, cte.pipeline...), nil
	}

	sc.add(from.Name, from.Alias, true)
	return from.Name, stages, nil
}

// swapRightJoins rewrites a leading RIGHT JOIN by swapping base and
// target; alias resolution makes the surface
// output order equivalent.
func swapRightJoins(sel *ast.SelectStatement) *ast.SelectStatement {
	if len(sel.Joins) == 0 || sel.Joins[0].Kind != ast.JoinRight {
		return sel
	}
	out := *sel
	joins := make([]ast.JoinOp, len(sel.Joins))
	copy(joins, sel.Joins)
	joins[0].Kind = ast.JoinLeft
	out.From, joins[0].Target = joins[0].Target, out.From
	out.Joins = joins
	return &out
}

// lowerJoin emits the $lookup/$unwind pair for one join. The ON condition is lowered inside the lookup's pipeline,
// where the target's fields sit at the root and every reference to the
// enclosing FROM becomes a let binding.
func lowerJoin(join ast.JoinOp, ctx *exprContext) ([]bson.D, error) {
	if join.Kind == ast.JoinRight {
		return nil, &translrerr.UnsupportedConstruct{Message: "RIGHT JOIN after another join"}
	}

	label := join.Target.Alias
	if label == "" {
		label = join.Target.Name
	}

	// The target's own scope for the ON condition: its fields at root,
	// the outer query visible for correlation.
	joinScope := newScope(ctx.sc)
	lets := map[string]string{}

	var from string
	var pipeline []bson.D

	switch {
	case join.Target.Derived != nil:
		collection, inner, err := selectPipeline(join.Target.Derived, ctx.eng, ctx.sc, lets)
		if err != nil {
			return nil, err
		}
		from = collection
		pipeline = inner
		joinScope.add(join.Target.Alias, join.Target.Alias, true)
	default:
		if cte, ok := ctx.eng.ctes[join.Target.Name]; ok {
			from = cte.collection
			pipeline = append(pipeline, cte.pipeline...)
		} else {
			from = join.Target.Name
		}
		joinScope.add(join.Target.Name, join.Target.Alias, true)
	}

	if join.On != nil {
		onCtx := &exprContext{eng: ctx.eng, sc: joinScope, pre: &stageCollector{}, lets: lets}
		cond, err := lowerExpr(*join.On, onCtx)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"$expr": cond}}})
	}

	// Later clauses read the target's columns from the embedded document.
	if join.Target.Derived != nil {
		ctx.sc.add(join.Target.Alias, join.Target.Alias, false)
	} else {
		ctx.sc.add(join.Target.Name, join.Target.Alias, false)
	}

	stages := []bson.D{lookupStage(from, lets, pipeline, label)}
	stages = append(stages, bson.D{{Key: "$unwind", Value: bson.M{
		"path":                       "$" + label,
		"preserveNullAndEmptyArrays": join.Kind == ast.JoinLeft,
	}}})
	return stages, nil
}

func anyAggregate(projs []ast.Projection) bool {
	for _, p := range projs {
		if containsAggregate(p.Expr) {
			return true
		}
	}
	return false
}

// lowerDistinct implements top-level SELECT DISTINCT without GROUP BY: a
// $group keyed on the projection tuple, then $replaceRoot reconstructing
// the document.
func lowerDistinct(projs []ast.Projection, ctx *exprContext) ([]bson.D, error) {
	names := make([]string, len(projs))
	values := make([]interface{}, len(projs))
	for i, p := range projs {
		if p.Expr.Kind == ast.ExprStar || p.Expr.Kind == ast.ExprQualifiedStar {
			return nil, &translrerr.UnsupportedConstruct{Message: "SELECT DISTINCT * is not supported"}
		}
		v, err := lowerExpr(p.Expr, ctx)
		if err != nil {
			return nil, err
		}
		names[i] = fieldName(p, i)
		values[i] = v
	}

	var id interface{}
	newRoot := bson.M{}
	if len(projs) == 1 {
		id = values[0]
		newRoot[names[0]] = "$_id"
	} else {
		key := bson.M{}
		for i, n := range names {
			key[n] = values[i]
			newRoot[n] = "$_id." + n
		}
		id = key
	}

	return []bson.D{
		{{Key: "$group", Value: bson.M{"_id": id}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": newRoot}}},
	}, nil
}

// lowerOrderBy builds the $sort document. Positional integers resolve
// against the projection list, aliases against projections, and computed
// expressions are hoisted into a $set stage first.
func lowerOrderBy(items []ast.OrderExpr, projs []ast.Projection, groupFields map[string]string, ctx *exprContext) ([]bson.D, bson.D, map[string]bool, error) {
	var pre []bson.D
	computed := map[string]bool{}
	setDoc := bson.M{}
	sort := bson.D{}

	sortCtx := ctx
	if groupFields != nil {
		sortCtx = &exprContext{eng: ctx.eng, sc: ctx.sc, pre: ctx.pre, lets: ctx.lets, groupFields: groupFields}
	}

	for i, item := range items {
		expr := item.Expr

		// ORDER BY 2 — positional reference.
		if expr.Kind == ast.ExprLit && expr.Lit.Kind == ast.LitInteger {
			n := expr.Lit.Int
			if n < 1 || int(n) > len(projs) {
				return nil, nil, nil, &translrerr.UnsupportedArgument{
					Name: "ORDER BY", Message: "position out of range",
				}
			}
			p := projs[n-1]
			expr = p.Expr
			if p.Alias != "" {
				expr = ast.Expression{Kind: ast.ExprColumn, Column: ast.Identifier{Name: p.Alias}}
			}
		}

		key, hoist, err := sortKey(expr, projs, groupFields, sortCtx)
		if err != nil {
			return nil, nil, nil, err
		}
		if hoist != nil {
			key = "__sort_" + strconv.Itoa(i+1)
			setDoc[key] = hoist
			computed[key] = true
		}

		dir := 1
		if !item.Asc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: key, Value: dir})
	}

	if len(setDoc) > 0 {
		pre = append(pre, bson.D{{Key: "$set", Value: setDoc}})
	}
	return pre, sort, computed, nil
}

// sortKey resolves one ORDER BY expression to a sortable field path;
// when it cannot be a path, the lowered expression is returned for
// hoisting into a $set.
func sortKey(expr ast.Expression, projs []ast.Projection, groupFields map[string]string, ctx *exprContext) (string, interface{}, error) {
	if groupFields != nil {
		if field, ok := groupFields[render(expr)]; ok {
			return field, nil, nil
		}
	}

	if expr.Kind == ast.ExprColumn {
		// Alias of a projection first, then a plain column path.
		if expr.Column.Qualifier == "" {
			for i, p := range projs {
				if fieldName(p, i) != expr.Column.Name {
					continue
				}
				if groupFields != nil {
					return expr.Column.Name, nil, nil
				}
				if p.Expr.Kind == ast.ExprColumn {
					v, err := resolveColumn(p.Expr.Column, ctx)
					if err != nil {
						return "", nil, err
					}
					if path, ok := v.(string); ok && path[0] == '$' {
						return path[1:], nil, nil
					}
				}
				if p.Alias != "" && p.Alias == expr.Column.Name {
					hoist, err := lowerExpr(p.Expr, ctx)
					if err != nil {
						return "", nil, err
					}
					return "", hoist, nil
				}
			}
		}
		v, err := resolveColumn(expr.Column, ctx)
		if err != nil {
			return "", nil, err
		}
		if path, ok := v.(string); ok && len(path) > 1 && path[0] == '$' && path[1] != '$' {
			return path[1:], nil, nil
		}
	}

	hoist, err := lowerExpr(expr, ctx)
	if err != nil {
		return "", nil, err
	}
	return "", hoist, nil
}

// lowerProjection assembles the $project stage:
// _id suppressed unless explicitly projected, aliases mapped to their
// lowered expressions, `SELECT *` passing the document through, and the
// synthetic lookup fields excluded again.
func lowerProjection(projs []ast.Projection, grouped bool, computed map[string]bool, cleanup []string, ctx *exprContext) ([]bson.D, error) {
	star := false
	fields := bson.M{}
	explicitID := false

	for i, p := range projs {
		switch p.Expr.Kind {
		case ast.ExprStar:
			star = true
			continue
		case ast.ExprQualifiedStar:
			t, ok := ctx.sc.resolve(p.Expr.QualifiedStar.Table)
			if !ok {
				return nil, &translrerr.UnresolvedIdentifier{Name: p.Expr.QualifiedStar.Table + ".*"}
			}
			if t.base {
				star = true
			} else {
				fields[t.label()] = 1
			}
			continue
		}

		name := fieldName(p, i)
		if name == "_id" {
			explicitID = true
		}
		if grouped || computed[name] {
			fields[name] = 1
			continue
		}
		v, err := lowerExpr(p.Expr, ctx)
		if err != nil {
			return nil, err
		}
		if p.Expr.Kind == ast.ExprLit {
			// A bare numeric literal would read as field inclusion.
			if m, ok := v.(bson.M); ok {
				fields[name] = m
			} else {
				fields[name] = bson.M{"$literal": v}
			}
			continue
		}
		if path, ok := v.(string); ok && path == "$"+name {
			fields[name] = 1
		} else {
			fields[name] = v
		}
	}

	var stages []bson.D
	// Subquery lookups hoisted out of projection expressions precede the
	// $project that references them.
	stages = append(stages, ctx.pre.stages...)
	cleanup = append(cleanup, ctx.pre.cleanup...)
	ctx.pre = &stageCollector{}

	if star {
		// The whole document passes through; only the synthetic lookup
		// fields need excluding.
		if len(cleanup) > 0 {
			excl := bson.M{}
			for _, f := range cleanup {
				excl[f] = 0
			}
			stages = append(stages, bson.D{{Key: "$project", Value: excl}})
		}
		return stages, nil
	}
	if len(fields) == 0 {
		return stages, nil
	}

	if !explicitID {
		fields["_id"] = 0
	}
	for _, f := range cleanup {
		fields[f] = 0
	}
	stages = append(stages, bson.D{{Key: "$project", Value: fields}})
	return stages, nil
}
