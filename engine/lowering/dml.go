package lowering

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/engine/invocation"
	"github.com/toddstoffel/MongoSQL/translrerr"
)

// lowerInsert emits insertOne for a single VALUES row and insertMany
// otherwise. Row values must be literals: INSERT has no
// server-side expression context to evaluate anything else in.
func lowerInsert(stmt *ast.Statement, eng *engine) (*invocation.Invocation, error) {
	docs := make([]bson.M, 0, len(stmt.InsertRows))
	for _, row := range stmt.InsertRows {
		doc := bson.M{}
		for i, col := range stmt.InsertColumns {
			if row[i].Kind != ast.ExprLit {
				return nil, &translrerr.UnsupportedConstruct{Message: "INSERT values must be literals"}
			}
			doc[col] = literalValue(row[i].Lit)
		}
		docs = append(docs, doc)
	}

	if len(docs) == 1 {
		return &invocation.Invocation{
			Collection: stmt.InsertTable,
			Op:         invocation.OpInsertOne,
			Document:   docs[0],
		}, nil
	}
	return &invocation.Invocation{
		Collection: stmt.InsertTable,
		Op:         invocation.OpInsertMany,
		Documents:  docs,
	}, nil
}

// lowerUpdate emits updateMany. All-literal SET lists use the plain
// {$set: ...} document; anything referencing columns or calling
// functions becomes an aggregation-pipeline update.
func lowerUpdate(stmt *ast.Statement, eng *engine) (*invocation.Invocation, error) {
	filter, err := dmlFilter(stmt.UpdateWhere, stmt.UpdateTable, eng)
	if err != nil {
		return nil, err
	}

	allLiterals := true
	for _, a := range stmt.UpdateAssignments {
		if a.Expr.Kind != ast.ExprLit {
			allLiterals = false
			break
		}
	}

	inv := &invocation.Invocation{
		Collection: stmt.UpdateTable,
		Op:         invocation.OpUpdateMany,
		Filter:     filter,
	}

	if allLiterals {
		set := bson.M{}
		for _, a := range stmt.UpdateAssignments {
			set[a.Column.Name] = literalValue(a.Expr.Lit)
		}
		inv.Update = bson.M{"$set": set}
		return inv, nil
	}

	ctx := dmlContext(stmt.UpdateTable, eng)
	set := bson.M{}
	for _, a := range stmt.UpdateAssignments {
		v, err := lowerExpr(a.Expr, ctx)
		if err != nil {
			return nil, err
		}
		set[a.Column.Name] = v
	}
	if len(ctx.pre.stages) > 0 {
		return nil, &translrerr.UnsupportedConstruct{Message: "subquery in UPDATE SET"}
	}
	inv.Update = mongo.Pipeline{bson.D{{Key: "$set", Value: set}}}
	return inv, nil
}

func lowerDelete(stmt *ast.Statement, eng *engine) (*invocation.Invocation, error) {
	filter, err := dmlFilter(stmt.DeleteWhere, stmt.DeleteTable, eng)
	if err != nil {
		return nil, err
	}
	return &invocation.Invocation{
		Collection: stmt.DeleteTable,
		Op:         invocation.OpDeleteMany,
		Filter:     filter,
	}, nil
}

func dmlContext(table string, eng *engine) *exprContext {
	sc := newScope(nil)
	sc.add(table, "", true)
	return &exprContext{eng: eng, sc: sc, pre: &stageCollector{}}
}

// dmlFilter lowers an UPDATE/DELETE predicate; write filters have no
// pipeline to hang $lookup stages on, so subqueries are rejected.
func dmlFilter(where *ast.Expression, table string, eng *engine) (bson.M, error) {
	if where == nil {
		return bson.M{}, nil
	}
	ctx := dmlContext(table, eng)
	filter, err := lowerFilter(*where, ctx)
	if err != nil {
		return nil, err
	}
	if len(ctx.pre.stages) > 0 {
		return nil, &translrerr.UnsupportedConstruct{Message: "subquery in UPDATE/DELETE WHERE"}
	}
	return filter, nil
}
