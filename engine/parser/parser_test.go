package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/translrerr"
)

func mustSelect(t *testing.T, sql string) *ast.SelectStatement {
	t.Helper()
	stmt, err := Parse(sql)
	require.NoError(t, err)
	require.Equal(t, ast.StmtSelect, stmt.Kind)
	return stmt.Select
}

func TestParseBasicSelect(t *testing.T) {
	sel := mustSelect(t, "SELECT customerName, city FROM customers")

	require.Len(t, sel.Projections, 2)
	assert.Equal(t, "customerName", sel.Projections[0].Expr.Column.Name)
	assert.Equal(t, "city", sel.Projections[1].Expr.Column.Name)
	assert.Equal(t, "customers", sel.From.Name)
	assert.Nil(t, sel.Where)
}

func TestParseAliases(t *testing.T) {
	sel := mustSelect(t, "SELECT c.name AS customer, c.city town FROM customers c")

	assert.Equal(t, "customer", sel.Projections[0].Alias)
	assert.Equal(t, "town", sel.Projections[1].Alias)
	assert.Equal(t, "c", sel.Projections[0].Expr.Column.Qualifier)
	assert.Equal(t, "c", sel.From.Alias)
}

func TestParseBacktickTransparency(t *testing.T) {
	plain := mustSelect(t, "SELECT customerName FROM customers")
	escaped := mustSelect(t, "SELECT `customerName` FROM `customers`")
	assert.Equal(t, plain, escaped)
}

func TestParseReservedWordIdentifier(t *testing.T) {
	sel := mustSelect(t, "SELECT `order` FROM `select`")
	assert.Equal(t, "order", sel.Projections[0].Expr.Column.Name)
	assert.Equal(t, "select", sel.From.Name)
}

func TestParseWhereTree(t *testing.T) {
	sel := mustSelect(t, "SELECT a FROM t WHERE x > 1 AND y = 'v' OR z IS NOT NULL")

	// OR binds loosest.
	require.NotNil(t, sel.Where)
	assert.Equal(t, ast.OpOr, sel.Where.BinaryOp)
	assert.Equal(t, ast.OpAnd, sel.Where.Left.BinaryOp)
	assert.Equal(t, ast.OpIsNotNull, sel.Where.Right.BinaryOp)
}

func TestParseBetweenDesugars(t *testing.T) {
	sel := mustSelect(t, "SELECT a FROM t WHERE x BETWEEN 1 AND 5")

	w := sel.Where
	require.Equal(t, ast.OpAnd, w.BinaryOp)
	assert.Equal(t, ast.OpGe, w.Left.BinaryOp)
	assert.Equal(t, ast.OpLe, w.Right.BinaryOp)
}

func TestParseInList(t *testing.T) {
	sel := mustSelect(t, "SELECT a FROM t WHERE x IN (1, 2, 3)")

	w := sel.Where
	require.Equal(t, ast.OpIn, w.BinaryOp)
	require.Equal(t, ast.ExprTuple, w.Right.Kind)
	assert.Len(t, w.Right.Coalesce, 3)
}

func TestParseInSubquery(t *testing.T) {
	sel := mustSelect(t, "SELECT a FROM t WHERE x IN (SELECT x FROM u)")

	w := sel.Where
	require.Equal(t, ast.OpIn, w.BinaryOp)
	require.Equal(t, ast.ExprSubquery, w.Right.Kind)
	assert.Equal(t, ast.SubqueryIn, w.Right.Subquery.Kind)
}

func TestParseExists(t *testing.T) {
	sel := mustSelect(t, "SELECT a FROM t WHERE EXISTS (SELECT 1 FROM u)")
	require.Equal(t, ast.ExprSubquery, sel.Where.Kind)
	assert.Equal(t, ast.SubqueryExists, sel.Where.Subquery.Kind)

	sel = mustSelect(t, "SELECT a FROM t WHERE NOT EXISTS (SELECT 1 FROM u)")
	require.Equal(t, ast.ExprUnary, sel.Where.Kind)
	assert.Equal(t, ast.OpNot, sel.Where.UnaryOp)
}

func TestParseJoins(t *testing.T) {
	sel := mustSelect(t, `SELECT c.name, o.total FROM customers c
		LEFT OUTER JOIN orders o ON c.id = o.customerId
		INNER JOIN items i USING (orderId)
		CROSS JOIN regions`)

	require.Len(t, sel.Joins, 3)
	assert.Equal(t, ast.JoinLeft, sel.Joins[0].Kind)
	assert.Equal(t, ast.JoinInner, sel.Joins[1].Kind)
	assert.Equal(t, ast.JoinCross, sel.Joins[2].Kind)
	assert.Nil(t, sel.Joins[2].On)

	// USING(orderId) desugared to an equality.
	using := sel.Joins[1].On
	require.NotNil(t, using)
	assert.Equal(t, ast.OpEq, using.BinaryOp)
	assert.Equal(t, "i", using.Right.Column.Qualifier)
	assert.Equal(t, "orderId", using.Right.Column.Name)
}

func TestParseDerivedTableRequiresAlias(t *testing.T) {
	sel := mustSelect(t, "SELECT a FROM (SELECT a FROM t) sub")
	require.NotNil(t, sel.From.Derived)
	assert.Equal(t, "sub", sel.From.Alias)

	_, err := Parse("SELECT a FROM (SELECT a FROM t)")
	require.Error(t, err)
}

func TestParseGroupHavingOrder(t *testing.T) {
	sel := mustSelect(t, `SELECT country, COUNT(*) AS n FROM customers
		GROUP BY country HAVING COUNT(*) > 5 ORDER BY n DESC, country`)

	require.Len(t, sel.GroupBy, 1)
	require.NotNil(t, sel.Having)
	require.Len(t, sel.OrderBy, 2)
	assert.False(t, sel.OrderBy[0].Asc)
	assert.True(t, sel.OrderBy[1].Asc)
}

func TestParseLimitForms(t *testing.T) {
	sel := mustSelect(t, "SELECT a FROM t LIMIT 10")
	require.NotNil(t, sel.Limit)
	assert.EqualValues(t, 10, *sel.Limit)
	assert.Nil(t, sel.Offset)

	sel = mustSelect(t, "SELECT a FROM t LIMIT 10 OFFSET 5")
	assert.EqualValues(t, 10, *sel.Limit)
	assert.EqualValues(t, 5, *sel.Offset)

	// LIMIT m, n is offset-first.
	sel = mustSelect(t, "SELECT a FROM t LIMIT 5, 10")
	assert.EqualValues(t, 10, *sel.Limit)
	assert.EqualValues(t, 5, *sel.Offset)
}

func TestParseFunctionForms(t *testing.T) {
	sel := mustSelect(t, `SELECT COUNT(*), COUNT(DISTINCT city),
		GROUP_CONCAT(name ORDER BY name DESC SEPARATOR '; '),
		EXTRACT(YEAR FROM orderDate), CAST(total AS CHAR),
		YEAR(orderDate) FROM orders`)

	calls := make([]*ast.FunctionCall, len(sel.Projections))
	for i, p := range sel.Projections {
		require.Equal(t, ast.ExprFunctionCall, p.Expr.Kind)
		calls[i] = p.Expr.Call
	}

	assert.Equal(t, ast.ExprStar, calls[0].Args[0].Kind)
	assert.True(t, calls[1].Distinct)

	gc := calls[2]
	assert.True(t, gc.HasSeparator)
	assert.Equal(t, "; ", gc.GroupConcatSeparator)
	require.Len(t, gc.GroupConcatOrderBy, 1)
	assert.False(t, gc.GroupConcatOrderBy[0].Asc)

	assert.True(t, calls[3].IsExtract)
	assert.Equal(t, ast.UnitYear, calls[3].ExtractUnit)
	assert.True(t, calls[4].IsCast)
	assert.Equal(t, "CHAR", calls[4].CastType)
	assert.Equal(t, "YEAR", calls[5].Name)
}

func TestParseWindowSpec(t *testing.T) {
	sel := mustSelect(t, "SELECT ROW_NUMBER() OVER (PARTITION BY country ORDER BY name) rn FROM customers")

	call := sel.Projections[0].Expr.Call
	require.NotNil(t, call.Window)
	require.Len(t, call.Window.PartitionBy, 1)
	require.Len(t, call.Window.OrderBy, 1)
}

func TestParseCaseForms(t *testing.T) {
	sel := mustSelect(t, `SELECT
		CASE WHEN x > 1 THEN 'a' ELSE 'b' END,
		CASE status WHEN 1 THEN 'on' WHEN 0 THEN 'off' END
		FROM t`)

	plain := sel.Projections[0].Expr
	require.Equal(t, ast.ExprCase, plain.Kind)
	assert.Nil(t, plain.Case.Operand)
	require.NotNil(t, plain.Case.Else)

	operand := sel.Projections[1].Expr
	require.NotNil(t, operand.Case.Operand)
	assert.Len(t, operand.Case.Whens, 2)
	assert.Nil(t, operand.Case.Else)
}

func TestParseWith(t *testing.T) {
	stmt, err := Parse("WITH big (name) AS (SELECT customerName FROM customers) SELECT name FROM big")
	require.NoError(t, err)
	require.Equal(t, ast.StmtWith, stmt.Kind)
	require.Len(t, stmt.WithCTEs, 1)
	assert.Equal(t, "big", stmt.WithCTEs[0].Name)
	assert.Equal(t, []string{"name"}, stmt.WithCTEs[0].Columns)
	assert.False(t, stmt.WithCTEs[0].Recursive)
	require.Equal(t, ast.StmtSelect, stmt.WithBody.Kind)
}

func TestParseRecursiveWithUnion(t *testing.T) {
	stmt, err := Parse(`WITH RECURSIVE tree AS (
		SELECT id, parent FROM nodes WHERE parent IS NULL
		UNION ALL
		SELECT n.id, n.parent FROM nodes n JOIN tree ON n.parent = tree.id
	) SELECT id FROM tree`)
	require.NoError(t, err)
	cte := stmt.WithCTEs[0]
	assert.True(t, cte.Recursive)
	require.NotNil(t, cte.Query.Union)
	assert.True(t, cte.Query.UnionAll)
}

func TestParseInsert(t *testing.T) {
	stmt, err := Parse("INSERT INTO customers (name, city) VALUES ('Acme', 'Oslo'), ('Borg', 'Nantes')")
	require.NoError(t, err)
	require.Equal(t, ast.StmtInsert, stmt.Kind)
	assert.Equal(t, []string{"name", "city"}, stmt.InsertColumns)
	require.Len(t, stmt.InsertRows, 2)

	_, err = Parse("INSERT INTO t (a, b) VALUES (1)")
	require.Error(t, err)
}

func TestParseUpdate(t *testing.T) {
	stmt, err := Parse("UPDATE customers SET city = 'Oslo', active = TRUE WHERE id = 7")
	require.NoError(t, err)
	require.Equal(t, ast.StmtUpdate, stmt.Kind)
	require.Len(t, stmt.UpdateAssignments, 2)
	assert.Equal(t, "city", stmt.UpdateAssignments[0].Column.Name)
	require.NotNil(t, stmt.UpdateWhere)
}

func TestParseDelete(t *testing.T) {
	stmt, err := Parse("DELETE FROM customers WHERE id = 7")
	require.NoError(t, err)
	require.Equal(t, ast.StmtDelete, stmt.Kind)
	assert.Equal(t, "customers", stmt.DeleteTable)
}

func TestParseMany(t *testing.T) {
	stmts, err := ParseMany("SELECT a FROM t; SELECT b FROM u;")
	require.NoError(t, err)
	assert.Len(t, stmts, 2)

	// A semicolon inside a string is not a boundary.
	stmts, err = ParseMany("SELECT a FROM t WHERE x = 'a;b'")
	require.NoError(t, err)
	assert.Len(t, stmts, 1)

	_, err = ParseMany("SELECT a FROM t; SELEC b FROM u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")
}

func TestSyntaxErrorDetails(t *testing.T) {
	_, err := Parse("SELEC a FROM t")
	var syn *translrerr.SyntaxError
	require.True(t, errors.As(err, &syn))
	assert.Equal(t, "SELECT", syn.Hint)

	_, err = Parse("SELECT a FROM")
	var end *translrerr.UnexpectedEnd
	require.True(t, errors.As(err, &end))
}

func TestTrailingGarbageRejected(t *testing.T) {
	_, err := Parse("SELECT a FROM t extra garbage")
	require.Error(t, err)
}
