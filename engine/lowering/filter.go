package lowering

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/toddstoffel/MongoSQL/engine/ast"
)

// lowerFilter turns a boolean Expression into a match/filter document.
// Field-versus-literal shapes keep the plain {field: {$op: value}} form;
// anything beyond that — cross-field comparisons, function calls,
// subqueries — wraps the whole predicate in {$expr: ...}.
func lowerFilter(e ast.Expression, ctx *exprContext) (bson.M, error) {
	if doc, ok, err := simpleFilter(e, ctx); err != nil {
		return nil, err
	} else if ok {
		return doc, nil
	}
	expr, err := lowerExpr(e, ctx)
	if err != nil {
		return nil, err
	}
	return bson.M{"$expr": expr}, nil
}

// simpleFilter attempts the plain-document form; ok=false means the
// caller must fall back to $expr.
func simpleFilter(e ast.Expression, ctx *exprContext) (bson.M, bool, error) {
	if e.Kind != ast.ExprBinary {
		return nil, false, nil
	}

	switch e.BinaryOp {
	case ast.OpAnd:
		left, lok, err := simpleFilter(*e.Left, ctx)
		if err != nil || !lok {
			return nil, false, err
		}
		right, rok, err := simpleFilter(*e.Right, ctx)
		if err != nil || !rok {
			return nil, false, err
		}
		return mergeAnd(left, right), true, nil

	case ast.OpOr:
		left, lok, err := simpleFilter(*e.Left, ctx)
		if err != nil || !lok {
			return nil, false, err
		}
		right, rok, err := simpleFilter(*e.Right, ctx)
		if err != nil || !rok {
			return nil, false, err
		}
		return bson.M{"$or": bson.A{left, right}}, true, nil

	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		field, value, flipped, ok := fieldVersusLiteral(e, ctx)
		if !ok {
			return nil, false, nil
		}
		op := comparisonOps[e.BinaryOp]
		if flipped {
			op = flipComparison(op)
		}
		if op == "$eq" {
			return bson.M{field: value}, true, nil
		}
		return bson.M{field: bson.M{op: value}}, true, nil

	case ast.OpLike:
		field, ok := filterField(*e.Left, ctx)
		if !ok {
			return nil, false, nil
		}
		pattern, ok := likePattern(*e.Right)
		if !ok {
			return nil, false, nil
		}
		return bson.M{field: bson.M{"$regex": likeToRegex(pattern)}}, true, nil

	case ast.OpIn, ast.OpNotIn:
		field, ok := filterField(*e.Left, ctx)
		if !ok || e.Right.Kind != ast.ExprTuple {
			return nil, false, nil
		}
		items := bson.A{}
		for _, item := range e.Right.Coalesce {
			if item.Kind != ast.ExprLit {
				return nil, false, nil
			}
			items = append(items, literalValue(item.Lit))
		}
		op := "$in"
		if e.BinaryOp == ast.OpNotIn {
			op = "$nin"
		}
		return bson.M{field: bson.M{op: items}}, true, nil

	case ast.OpIsNull:
		field, ok := filterField(*e.Left, ctx)
		if !ok {
			return nil, false, nil
		}
		return bson.M{field: nil}, true, nil

	case ast.OpIsNotNull:
		// Existence and non-null, distinct from IS NULL's $eq:null.
		field, ok := filterField(*e.Left, ctx)
		if !ok {
			return nil, false, nil
		}
		return bson.M{field: bson.M{"$exists": true, "$ne": nil}}, true, nil
	}

	return nil, false, nil
}

// fieldVersusLiteral matches `col op literal` in either orientation;
// flipped reports the literal was on the left.
func fieldVersusLiteral(e ast.Expression, ctx *exprContext) (field string, value interface{}, flipped, ok bool) {
	if f, fok := filterField(*e.Left, ctx); fok && e.Right.Kind == ast.ExprLit {
		return f, literalValue(e.Right.Lit), false, true
	}
	if f, fok := filterField(*e.Right, ctx); fok && e.Left.Kind == ast.ExprLit {
		return f, literalValue(e.Left.Lit), true, true
	}
	return "", nil, false, false
}

// filterField resolves a column to a plain (non-correlated) field path.
// Inside HAVING, accumulator aliases and group keys resolve first.
func filterField(e ast.Expression, ctx *exprContext) (string, bool) {
	if ctx.groupFields != nil {
		if field, ok := ctx.groupFields[render(e)]; ok {
			return field, true
		}
	}
	if e.Kind != ast.ExprColumn {
		return "", false
	}
	v, err := resolveColumn(e.Column, ctx)
	if err != nil {
		return "", false
	}
	path, ok := v.(string)
	if !ok || len(path) < 2 || path[0] != '$' || path[1] == '$' {
		return "", false
	}
	return path[1:], true
}

func flipComparison(op string) string {
	switch op {
	case "$lt":
		return "$gt"
	case "$lte":
		return "$gte"
	case "$gt":
		return "$lt"
	case "$gte":
		return "$lte"
	}
	return op
}

// mergeAnd combines two simple filters into one document, joining
// per-field operator maps where possible (the BETWEEN desugaring shape)
// and falling back to $and on genuine conflicts.
func mergeAnd(left, right bson.M) bson.M {
	out := bson.M{}
	for k, v := range left {
		out[k] = v
	}
	for k, v := range right {
		existing, present := out[k]
		if !present {
			out[k] = v
			continue
		}
		eDoc, eOk := existing.(bson.M)
		vDoc, vOk := v.(bson.M)
		if eOk && vOk && disjointKeys(eDoc, vDoc) {
			merged := bson.M{}
			for ek, ev := range eDoc {
				merged[ek] = ev
			}
			for vk, vv := range vDoc {
				merged[vk] = vv
			}
			out[k] = merged
			continue
		}
		return bson.M{"$and": bson.A{left, right}}
	}
	return out
}

func disjointKeys(a, b bson.M) bool {
	for k := range b {
		if _, ok := a[k]; ok {
			return false
		}
	}
	return true
}
