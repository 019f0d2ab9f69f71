package lowering

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/engine/invocation"
	"github.com/toddstoffel/MongoSQL/translrerr"
)

// Lower converts one parsed Statement into its MongoDB Invocation.
// Errors are reported, never retried; there is no partial output.
func Lower(stmt *ast.Statement, opts Options) (*invocation.Invocation, error) {
	if opts.Collation == nil {
		opts.Collation = DefaultCollation()
	}
	eng := newEngine(opts)
	return lowerStatement(stmt, eng)
}

func lowerStatement(stmt *ast.Statement, eng *engine) (*invocation.Invocation, error) {
	switch stmt.Kind {
	case ast.StmtWith:
		if err := registerCTEs(stmt.WithCTEs, eng); err != nil {
			return nil, err
		}
		return lowerStatement(stmt.WithBody, eng)
	case ast.StmtSelect:
		return lowerSelect(stmt.Select, eng)
	case ast.StmtInsert:
		return lowerInsert(stmt, eng)
	case ast.StmtUpdate:
		return lowerUpdate(stmt, eng)
	case ast.StmtDelete:
		return lowerDelete(stmt, eng)
	}
	return nil, &translrerr.UnsupportedConstruct{Message: "unrecognised statement"}
}

func lowerSelect(sel *ast.SelectStatement, eng *engine) (*invocation.Invocation, error) {
	if canFind(sel, eng) {
		return lowerFind(sel, eng)
	}

	collection, stages, err := selectPipeline(sel, eng, nil, nil)
	if err != nil {
		return nil, err
	}

	inv := &invocation.Invocation{
		Collection: collection,
		Op:         invocation.OpAggregate,
		Pipeline:   mongo.Pipeline(stages),
	}
	if len(sel.OrderBy) > 0 {
		inv.Collation = eng.opts.Collation
	}
	return inv, nil
}

// canFind decides the fast path: a find serves the
// SELECT iff it has no joins, grouping, having, distinct, window
// functions, subqueries, or derived tables, and its projections are
// plain column references or literals.
func canFind(sel *ast.SelectStatement, eng *engine) bool {
	if len(sel.Joins) > 0 || len(sel.GroupBy) > 0 || sel.Having != nil ||
		sel.Distinct || sel.Union != nil {
		return false
	}
	if sel.From.Derived != nil || sel.From.Name == "" {
		return false
	}
	if _, isCTE := eng.ctes[sel.From.Name]; isCTE {
		return false
	}
	for _, p := range sel.Projections {
		switch p.Expr.Kind {
		case ast.ExprStar, ast.ExprColumn:
		case ast.ExprLit:
		default:
			return false
		}
	}
	if sel.Where != nil && (containsSubquery(*sel.Where) || containsWindow(*sel.Where) || containsAggregate(*sel.Where)) {
		return false
	}
	for _, item := range sel.OrderBy {
		switch item.Expr.Kind {
		case ast.ExprColumn:
		case ast.ExprLit:
			if item.Expr.Lit.Kind != ast.LitInteger {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func lowerFind(sel *ast.SelectStatement, eng *engine) (*invocation.Invocation, error) {
	sc := newScope(nil)
	sc.add(sel.From.Name, sel.From.Alias, true)
	ctx := &exprContext{eng: eng, sc: sc, pre: &stageCollector{}}

	inv := &invocation.Invocation{
		Collection: sel.From.Name,
		Op:         invocation.OpFind,
	}

	if sel.Where != nil {
		filter, err := lowerFilter(*sel.Where, ctx)
		if err != nil {
			return nil, err
		}
		inv.Filter = filter
	}

	projection, err := findProjection(sel.Projections, ctx)
	if err != nil {
		return nil, err
	}
	inv.Projection = projection

	if len(sel.OrderBy) > 0 {
		sort := bson.D{}
		for _, item := range sel.OrderBy {
			expr := item.Expr
			if expr.Kind == ast.ExprLit {
				n := expr.Lit.Int
				if n < 1 || int(n) > len(sel.Projections) {
					return nil, &translrerr.UnsupportedArgument{Name: "ORDER BY", Message: "position out of range"}
				}
				expr = sel.Projections[n-1].Expr
			}
			key, hoist, err := sortKey(expr, sel.Projections, nil, ctx)
			if err != nil {
				return nil, err
			}
			if hoist != nil {
				return nil, &translrerr.UnsupportedArgument{Name: "ORDER BY", Message: "computed sort key requires an aggregate pipeline"}
			}
			dir := 1
			if !item.Asc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: key, Value: dir})
		}
		inv.Sort = sort
		inv.Collation = eng.opts.Collation
	} else if sel.Limit != nil && eng.opts.ImplicitOrderOnLimit {
		// implicit ordering shim, find form.
		inv.Sort = bson.D{{Key: "_id", Value: 1}}
	}

	inv.Skip = sel.Offset
	inv.Limit = sel.Limit
	return inv, nil
}

func findProjection(projs []ast.Projection, ctx *exprContext) (bson.M, error) {
	fields := bson.M{}
	explicitID := false
	star := false

	for _, p := range projs {
		switch p.Expr.Kind {
		case ast.ExprStar:
			star = true
		case ast.ExprColumn:
			v, err := resolveColumn(p.Expr.Column, ctx)
			if err != nil {
				return nil, err
			}
			path := v.(string)
			name := p.Alias
			if name == "" {
				name = p.Expr.Column.Name
			}
			if name == "_id" {
				explicitID = true
			}
			if path == "$"+name {
				fields[name] = 1
			} else {
				fields[name] = path
			}
		case ast.ExprLit:
			name := p.Alias
			if name == "" {
				name = renderLiteral(p.Expr.Lit)
			}
			fields[name] = bson.M{"$literal": literalValue(p.Expr.Lit)}
		}
	}

	if star || len(fields) == 0 {
		return nil, nil
	}
	if !explicitID {
		fields["_id"] = 0
	}
	return fields, nil
}
