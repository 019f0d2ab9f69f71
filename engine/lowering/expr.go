package lowering

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/engine/catalog"
	"github.com/toddstoffel/MongoSQL/translrerr"
)

var comparisonOps = map[ast.BinaryOp]string{
	ast.OpEq: "$eq", ast.OpNe: "$ne",
	ast.OpLt: "$lt", ast.OpLe: "$lte",
	ast.OpGt: "$gt", ast.OpGe: "$gte",
}

var arithmeticOps = map[ast.BinaryOp]string{
	ast.OpAdd: "$add", ast.OpSub: "$subtract",
	ast.OpMul: "$multiply", ast.OpDiv: "$divide", ast.OpMod: "$mod",
	ast.OpBitAnd: "$bitAnd", ast.OpBitOr: "$bitOr", ast.OpBitXor: "$bitXor",
}

// lowerExpr lowers one Expression to a MongoDB aggregation expression
// value: a "$field" path, a literal, or an operator document. Subqueries
// encountered here are hoisted into ctx.pre as $lookup stages and the
// expression is replaced with a reference into the lookup output.
func lowerExpr(e ast.Expression, ctx *exprContext) (interface{}, error) {
	if ctx.groupFields != nil {
		if field, ok := ctx.groupFields[render(e)]; ok {
			return "$" + field, nil
		}
	}

	switch e.Kind {
	case ast.ExprColumn:
		return resolveColumn(e.Column, ctx)

	case ast.ExprLit:
		return literalValue(e.Lit), nil

	case ast.ExprUnary:
		return lowerUnary(e, ctx)

	case ast.ExprBinary:
		return lowerBinary(e, ctx)

	case ast.ExprFunctionCall:
		return lowerCall(e.Call, ctx)

	case ast.ExprCase:
		return lowerCase(e.Case, ctx)

	case ast.ExprIf:
		cond, err := lowerExpr(e.If.Cond, ctx)
		if err != nil {
			return nil, err
		}
		then, err := lowerExpr(e.If.Then, ctx)
		if err != nil {
			return nil, err
		}
		els, err := lowerExpr(e.If.Else, ctx)
		if err != nil {
			return nil, err
		}
		return bson.M{"$cond": bson.A{cond, then, els}}, nil

	case ast.ExprCoalesce:
		return lowerCoalesce(e.Coalesce, ctx)

	case ast.ExprNullIf:
		a, err := lowerExpr(e.NullIf.A, ctx)
		if err != nil {
			return nil, err
		}
		b, err := lowerExpr(e.NullIf.B, ctx)
		if err != nil {
			return nil, err
		}
		return bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{a, b}}, nil, a}}, nil

	case ast.ExprSubquery:
		return lowerSubqueryExpr(e.Subquery, false, ctx)

	case ast.ExprTuple:
		items := bson.A{}
		for _, item := range e.Coalesce {
			v, err := lowerExpr(item, ctx)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil

	case ast.ExprStar, ast.ExprQualifiedStar:
		return nil, &translrerr.UnsupportedConstruct{Message: "* is only valid in projections and COUNT(*)"}
	}
	return nil, &translrerr.UnsupportedConstruct{Message: "unrecognised expression"}
}

// resolveColumn maps an identifier to its field path. Qualifiers resolve
// against the current FROM scope (base table columns live at the root,
// join targets under their alias); a qualifier that only resolves in the
// enclosing query's scope is a correlated reference and becomes a
// $$variable bound through ctx.lets.
func resolveColumn(id ast.Identifier, ctx *exprContext) (interface{}, error) {
	if id.Qualifier == "" {
		return "$" + id.Name, nil
	}
	if t, ok := ctx.sc.resolve(id.Qualifier); ok {
		if t.base {
			return "$" + id.Name, nil
		}
		return "$" + t.label() + "." + id.Name, nil
	}

	if outer := ctx.sc.outer; outer != nil {
		if t, ok := outer.resolve(id.Qualifier); ok {
			if ctx.lets == nil {
				return nil, &translrerr.UnresolvedIdentifier{Name: id.Qualifier + "." + id.Name}
			}
			path := id.Name
			if !t.base {
				path = t.label() + "." + id.Name
			}
			return "$$" + bindLet(ctx.lets, id.Name, "$"+path), nil
		}
		// Deeper matches are declared unsupported rather than guessed.
		for sc := outer.outer; sc != nil; sc = sc.outer {
			if _, ok := sc.resolve(id.Qualifier); ok {
				return nil, &translrerr.CorrelationEscapes{Name: id.Qualifier + "." + id.Name}
			}
		}
	}
	return nil, &translrerr.UnresolvedIdentifier{Name: id.Qualifier + "." + id.Name}
}

// bindLet registers path under a let-variable derived from the column
// name, suffixing on collision, and returns the variable name.
func bindLet(lets map[string]string, col, path string) string {
	name := col
	if name == "" || name[0] >= 'A' && name[0] <= 'Z' {
		name = "v_" + name
	}
	for {
		existing, ok := lets[name]
		if !ok {
			lets[name] = path
			return name
		}
		if existing == path {
			return name
		}
		name = name + "_"
	}
}

// literalValue converts a parsed literal to the BSON-representable value
// it lowers to. String literals that could be mistaken for field paths
// are wrapped in $literal.
func literalValue(l ast.Literal) interface{} {
	switch l.Kind {
	case ast.LitInteger:
		return l.Int
	case ast.LitFloat:
		return l.Float
	case ast.LitString:
		if strings.HasPrefix(l.Str, "$") {
			return bson.M{"$literal": l.Str}
		}
		return l.Str
	case ast.LitBoolean:
		return l.Bool
	case ast.LitNull:
		return nil
	case ast.LitDate:
		return l.Date
	case ast.LitInterval:
		return bson.M{"amount": l.IntervalAmount, "unit": unitToMongo(l.IntervalUnit)}
	}
	return nil
}

func unitToMongo(u ast.IntervalUnit) string {
	switch u {
	case ast.UnitYear:
		return "year"
	case ast.UnitQuarter:
		return "quarter"
	case ast.UnitMonth:
		return "month"
	case ast.UnitWeek:
		return "week"
	case ast.UnitDay:
		return "day"
	case ast.UnitHour:
		return "hour"
	case ast.UnitMinute:
		return "minute"
	case ast.UnitSecond:
		return "second"
	case ast.UnitMicrosecond:
		return "millisecond"
	}
	return "day"
}

func lowerUnary(e ast.Expression, ctx *exprContext) (interface{}, error) {
	// NOT EXISTS arrives as NOT applied to an Exists subquery.
	if e.UnaryOp == ast.OpNot && e.Operand.Kind == ast.ExprSubquery &&
		e.Operand.Subquery.Kind == ast.SubqueryExists {
		return lowerSubqueryExpr(e.Operand.Subquery, true, ctx)
	}

	operand, err := lowerExpr(*e.Operand, ctx)
	if err != nil {
		return nil, err
	}
	switch e.UnaryOp {
	case ast.OpNeg:
		return bson.M{"$multiply": bson.A{-1, operand}}, nil
	case ast.OpNot:
		return bson.M{"$not": bson.A{operand}}, nil
	case ast.OpBitNot:
		return bson.M{"$bitNot": operand}, nil
	}
	return nil, &translrerr.UnsupportedConstruct{Message: "unrecognised unary operator"}
}

func lowerBinary(e ast.Expression, ctx *exprContext) (interface{}, error) {
	// Row-subquery comparison: a parenthesised tuple compared to a
	// subquery expands to $and of per-column equalities.
	if e.BinaryOp == ast.OpEq && e.Left.Kind == ast.ExprTuple &&
		e.Right != nil && e.Right.Kind == ast.ExprSubquery {
		return lowerRowSubquery(e.Left.Coalesce, e.Right.Subquery, ctx)
	}

	switch e.BinaryOp {
	case ast.OpAnd, ast.OpOr:
		left, err := lowerExpr(*e.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := lowerExpr(*e.Right, ctx)
		if err != nil {
			return nil, err
		}
		op := "$and"
		if e.BinaryOp == ast.OpOr {
			op = "$or"
		}
		return bson.M{op: bson.A{left, right}}, nil

	case ast.OpLike, ast.OpNotLike:
		input, err := lowerExpr(*e.Left, ctx)
		if err != nil {
			return nil, err
		}
		pattern, ok := likePattern(*e.Right)
		if !ok {
			return nil, &translrerr.UnsupportedArgument{Name: "LIKE", Message: "pattern must be a string literal"}
		}
		match := bson.M{"$regexMatch": bson.M{"input": input, "regex": likeToRegex(pattern)}}
		if e.BinaryOp == ast.OpNotLike {
			return bson.M{"$not": bson.A{match}}, nil
		}
		return match, nil

	case ast.OpIn, ast.OpNotIn:
		return lowerIn(e, ctx)

	case ast.OpIsNull:
		left, err := lowerExpr(*e.Left, ctx)
		if err != nil {
			return nil, err
		}
		return bson.M{"$eq": bson.A{left, nil}}, nil

	case ast.OpIsNotNull:
		left, err := lowerExpr(*e.Left, ctx)
		if err != nil {
			return nil, err
		}
		return bson.M{"$ne": bson.A{left, nil}}, nil

	case ast.OpConcat:
		left, err := lowerExpr(*e.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := lowerExpr(*e.Right, ctx)
		if err != nil {
			return nil, err
		}
		return bson.M{"$concat": bson.A{left, right}}, nil
	}

	if op, ok := comparisonOps[e.BinaryOp]; ok {
		left, err := lowerExpr(*e.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := lowerExpr(*e.Right, ctx)
		if err != nil {
			return nil, err
		}
		return bson.M{op: bson.A{left, right}}, nil
	}
	if op, ok := arithmeticOps[e.BinaryOp]; ok {
		left, err := lowerExpr(*e.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := lowerExpr(*e.Right, ctx)
		if err != nil {
			return nil, err
		}
		return bson.M{op: bson.A{left, right}}, nil
	}
	return nil, &translrerr.UnsupportedConstruct{Message: "unrecognised binary operator " + string(e.BinaryOp)}
}

// lowerIn handles IN/NOT IN against a literal tuple or a subquery.
func lowerIn(e ast.Expression, ctx *exprContext) (interface{}, error) {
	left, err := lowerExpr(*e.Left, ctx)
	if err != nil {
		return nil, err
	}

	var membership bson.M
	if e.Right.Kind == ast.ExprSubquery {
		listRef, err := lowerInSubquery(e.Right.Subquery, ctx)
		if err != nil {
			return nil, err
		}
		membership = bson.M{"$in": bson.A{left, listRef}}
	} else {
		list, err := lowerExpr(*e.Right, ctx)
		if err != nil {
			return nil, err
		}
		membership = bson.M{"$in": bson.A{left, list}}
	}

	if e.BinaryOp == ast.OpNotIn {
		return bson.M{"$not": bson.A{membership}}, nil
	}
	return membership, nil
}

func likePattern(e ast.Expression) (string, bool) {
	if e.Kind == ast.ExprLit && e.Lit.Kind == ast.LitString {
		return e.Lit.Str, true
	}
	return "", false
}

func lowerCase(c *ast.CaseExpr, ctx *exprContext) (interface{}, error) {
	var operand interface{}
	if c.Operand != nil {
		v, err := lowerExpr(*c.Operand, ctx)
		if err != nil {
			return nil, err
		}
		operand = v
	}

	branches := bson.A{}
	for _, w := range c.Whens {
		cond, err := lowerExpr(w.When, ctx)
		if err != nil {
			return nil, err
		}
		if c.Operand != nil {
			cond = bson.M{"$eq": bson.A{operand, cond}}
		}
		then, err := lowerExpr(w.Then, ctx)
		if err != nil {
			return nil, err
		}
		branches = append(branches, bson.M{"case": cond, "then": then})
	}

	sw := bson.M{"branches": branches}
	if c.Else != nil {
		els, err := lowerExpr(*c.Else, ctx)
		if err != nil {
			return nil, err
		}
		sw["default"] = els
	} else {
		sw["default"] = nil
	}
	return bson.M{"$switch": sw}, nil
}

// lowerCoalesce nests $ifNull pairs right to left.
func lowerCoalesce(args []ast.Expression, ctx *exprContext) (interface{}, error) {
	if len(args) == 0 {
		return nil, &translrerr.ArityMismatch{Name: "COALESCE", Got: 0, MinArgs: 1, MaxArgs: -1}
	}
	last, err := lowerExpr(args[len(args)-1], ctx)
	if err != nil {
		return nil, err
	}
	result := last
	for i := len(args) - 2; i >= 0; i-- {
		v, err := lowerExpr(args[i], ctx)
		if err != nil {
			return nil, err
		}
		result = bson.M{"$ifNull": bson.A{v, result}}
	}
	return result, nil
}

// lowerCall lowers a catalogue function call: EXTRACT and CAST first (the
// parser marks their special forms), then windowed calls (rejected here,
// they are consumed by the $setWindowFields assembly), then the registry.
func lowerCall(call *ast.FunctionCall, ctx *exprContext) (interface{}, error) {
	if call.IsExtract {
		return lowerExtract(call, ctx)
	}
	if call.IsCast {
		return lowerCastCall(call, ctx)
	}
	if call.Window != nil {
		return nil, &translrerr.UnsupportedArgument{Name: call.Name, Message: "window function is only allowed as a top-level projection"}
	}

	entry, err := catalog.Lookup(call.Name)
	if err != nil {
		return nil, err
	}
	switch entry.Kind {
	case catalog.Aggregate:
		// The two-argument bitwise forms are scalar operators and lower
		// through the recipe like any other call.
		if catalog.IsAccumulator(call.Name, len(call.Args)) {
			return nil, &translrerr.UnsupportedConstruct{Message: "aggregate function " + call.Name + " is only allowed in projections and HAVING"}
		}
	case catalog.Window:
		return nil, &translrerr.UnsupportedArgument{Name: call.Name, Message: "window function requires an OVER clause"}
	}
	if err := entry.CheckArity(len(call.Args)); err != nil {
		return nil, err
	}

	args := make([]interface{}, 0, len(call.Args))
	for _, a := range call.Args {
		v, err := lowerExpr(a, ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return entry.Lower(args)
}

var extractOps = map[ast.IntervalUnit]string{
	ast.UnitYear:    "$year",
	ast.UnitQuarter: "$quarter",
	ast.UnitMonth:   "$month",
	ast.UnitWeek:    "$week",
	ast.UnitDay:     "$dayOfMonth",
	ast.UnitHour:    "$hour",
	ast.UnitMinute:  "$minute",
	ast.UnitSecond:  "$second",
}

func lowerExtract(call *ast.FunctionCall, ctx *exprContext) (interface{}, error) {
	arg, err := lowerExpr(call.Args[0], ctx)
	if err != nil {
		return nil, err
	}
	switch call.ExtractUnit {
	case ast.UnitQuarter:
		return bson.M{"$ceil": bson.M{"$divide": bson.A{bson.M{"$month": arg}, 3}}}, nil
	case ast.UnitMicrosecond:
		return bson.M{"$multiply": bson.A{bson.M{"$millisecond": arg}, 1000}}, nil
	}
	op, ok := extractOps[call.ExtractUnit]
	if !ok {
		return nil, &translrerr.UnsupportedArgument{Name: "EXTRACT", Message: "unsupported unit " + string(call.ExtractUnit)}
	}
	return bson.M{op: arg}, nil
}

var castOps = map[string]string{
	"SIGNED": "$toLong", "UNSIGNED": "$toLong", "INTEGER": "$toInt", "INT": "$toInt",
	"DECIMAL": "$toDecimal", "FLOAT": "$toDouble", "DOUBLE": "$toDouble",
	"CHAR": "$toString", "NCHAR": "$toString", "BINARY": "$toString",
	"DATE": "$toDate", "DATETIME": "$toDate", "TIME": "$toString",
}

func lowerCastCall(call *ast.FunctionCall, ctx *exprContext) (interface{}, error) {
	arg, err := lowerExpr(call.Args[0], ctx)
	if err != nil {
		return nil, err
	}
	op, ok := castOps[call.CastType]
	if !ok {
		return nil, &translrerr.UnsupportedArgument{Name: "CAST", Message: "unsupported target type " + call.CastType}
	}
	return bson.M{op: arg}, nil
}
