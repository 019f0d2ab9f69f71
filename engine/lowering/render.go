package lowering

import (
	"strconv"
	"strings"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/engine/catalog"
)

// render produces a deterministic textual form of an expression, used for
// structural comparison (GROUP BY validation, HAVING accumulator reuse)
// and nothing else — it is never parsed back.
func render(e ast.Expression) string {
	switch e.Kind {
	case ast.ExprColumn:
		if e.Column.Qualifier != "" {
			return e.Column.Qualifier + "." + e.Column.Name
		}
		return e.Column.Name
	case ast.ExprLit:
		return renderLiteral(e.Lit)
	case ast.ExprUnary:
		return string(e.UnaryOp) + "(" + render(*e.Operand) + ")"
	case ast.ExprBinary:
		s := "(" + render(*e.Left) + " " + string(e.BinaryOp)
		if e.Right != nil {
			s += " " + render(*e.Right)
		}
		return s + ")"
	case ast.ExprFunctionCall:
		parts := make([]string, 0, len(e.Call.Args))
		for _, a := range e.Call.Args {
			parts = append(parts, render(a))
		}
		prefix := ""
		if e.Call.Distinct {
			prefix = "DISTINCT "
		}
		return e.Call.Name + "(" + prefix + strings.Join(parts, ", ") + ")"
	case ast.ExprCase:
		return "CASE"
	case ast.ExprIf:
		return "IF(" + render(e.If.Cond) + ", " + render(e.If.Then) + ", " + render(e.If.Else) + ")"
	case ast.ExprCoalesce, ast.ExprTuple:
		parts := make([]string, 0, len(e.Coalesce))
		for _, a := range e.Coalesce {
			parts = append(parts, render(a))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case ast.ExprNullIf:
		return "NULLIF(" + render(e.NullIf.A) + ", " + render(e.NullIf.B) + ")"
	case ast.ExprSubquery:
		return "(SELECT ...)"
	case ast.ExprStar:
		return "*"
	case ast.ExprQualifiedStar:
		return e.QualifiedStar.Table + ".*"
	}
	return ""
}

func renderLiteral(l ast.Literal) string {
	switch l.Kind {
	case ast.LitInteger:
		return strconv.FormatInt(l.Int, 10)
	case ast.LitFloat:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	case ast.LitString:
		return "'" + l.Str + "'"
	case ast.LitBoolean:
		if l.Bool {
			return "TRUE"
		}
		return "FALSE"
	case ast.LitNull:
		return "NULL"
	case ast.LitDate:
		return "'" + l.Date + "'"
	case ast.LitInterval:
		return "INTERVAL " + strconv.FormatInt(l.IntervalAmount, 10) + " " + string(l.IntervalUnit)
	}
	return ""
}

func exprEqual(a, b ast.Expression) bool {
	return render(a) == render(b)
}

// fieldName picks the output document field a projection materialises as:
// the alias when given, the bare column name for column references, the
// lowercased function name for calls, and a positional fallback otherwise.
func fieldName(p ast.Projection, i int) string {
	if p.Alias != "" {
		return p.Alias
	}
	return exprFieldName(p.Expr, i)
}

func exprFieldName(e ast.Expression, i int) string {
	switch e.Kind {
	case ast.ExprColumn:
		return e.Column.Name
	case ast.ExprFunctionCall:
		return strings.ToLower(e.Call.Name)
	}
	return "expr_" + strconv.Itoa(i+1)
}

// isAggregateCall reports whether call is used as a $group accumulator.
// Windowed calls never accumulate, and the two-argument bitwise forms
// are scalar operators, which catalog.IsAccumulator accounts for.
func isAggregateCall(call *ast.FunctionCall) bool {
	if call == nil || call.Window != nil {
		return false
	}
	return catalog.IsAccumulator(call.Name, len(call.Args))
}

// containsAggregate walks e for aggregate calls outside nested subqueries.
func containsAggregate(e ast.Expression) bool {
	found := false
	walk(e, func(x ast.Expression) bool {
		if x.Kind == ast.ExprSubquery {
			return false
		}
		if x.Kind == ast.ExprFunctionCall && isAggregateCall(x.Call) {
			found = true
		}
		return !found
	})
	return found
}

func containsSubquery(e ast.Expression) bool {
	found := false
	walk(e, func(x ast.Expression) bool {
		if x.Kind == ast.ExprSubquery {
			found = true
		}
		return !found
	})
	return found
}

func containsWindow(e ast.Expression) bool {
	found := false
	walk(e, func(x ast.Expression) bool {
		if x.Kind == ast.ExprSubquery {
			return false
		}
		if x.Kind == ast.ExprFunctionCall && x.Call.Window != nil {
			found = true
		}
		return !found
	})
	return found
}

// walk visits e and, while fn keeps returning true, its children.
// Subquery bodies are not descended into — each nesting level owns its
// own lowering pass.
func walk(e ast.Expression, fn func(ast.Expression) bool) {
	if !fn(e) {
		return
	}
	switch e.Kind {
	case ast.ExprUnary:
		walk(*e.Operand, fn)
	case ast.ExprBinary:
		walk(*e.Left, fn)
		if e.Right != nil {
			walk(*e.Right, fn)
		}
		if e.BetweenHigh != nil {
			walk(*e.BetweenHigh, fn)
		}
	case ast.ExprFunctionCall:
		for _, a := range e.Call.Args {
			walk(a, fn)
		}
	case ast.ExprCase:
		if e.Case.Operand != nil {
			walk(*e.Case.Operand, fn)
		}
		for _, w := range e.Case.Whens {
			walk(w.When, fn)
			walk(w.Then, fn)
		}
		if e.Case.Else != nil {
			walk(*e.Case.Else, fn)
		}
	case ast.ExprIf:
		walk(e.If.Cond, fn)
		walk(e.If.Then, fn)
		walk(e.If.Else, fn)
	case ast.ExprCoalesce, ast.ExprTuple:
		for _, a := range e.Coalesce {
			walk(a, fn)
		}
	case ast.ExprNullIf:
		walk(e.NullIf.A, fn)
		walk(e.NullIf.B, fn)
	}
}
