// Package ast defines the Statement intermediate representation the
// parser produces. The IR is a tree of value types: every
// node is owned by exactly one parent, nothing is mutated after parse
// completion, and the lowering engine consumes a Statement exactly once
// before dropping it.
package ast

// Identifier is a column or table reference, optionally qualified by a
// table name or alias.
type Identifier struct {
	Name      string
	Qualifier string // table name or alias; empty if unqualified
}

// Qualified reports whether the identifier carries a table/alias prefix.
func (id Identifier) Qualified() bool { return id.Qualifier != "" }

// IntervalUnit enumerates the units a Literal Interval carries.
type IntervalUnit string

const (
	UnitYear        IntervalUnit = "YEAR"
	UnitQuarter     IntervalUnit = "QUARTER"
	UnitMonth       IntervalUnit = "MONTH"
	UnitWeek        IntervalUnit = "WEEK"
	UnitDay         IntervalUnit = "DAY"
	UnitHour        IntervalUnit = "HOUR"
	UnitMinute      IntervalUnit = "MINUTE"
	UnitSecond      IntervalUnit = "SECOND"
	UnitMicrosecond IntervalUnit = "MICROSECOND"
)

// LiteralKind tags the variant a Literal holds.
type LiteralKind int

const (
	LitInteger LiteralKind = iota
	LitFloat
	LitString
	LitBoolean
	LitNull
	LitDate
	LitInterval
)

// Literal is a tagged constant value.
type Literal struct {
	Kind LiteralKind

	Int   int64
	Float float64
	Str   string
	Bool  bool
	// Date holds the literal's textual form (e.g. "2024-01-01"); the
	// lowering engine hands it to MongoDB's date constructors verbatim
	// rather than parsing it client-side.
	Date string

	// Interval fields, valid when Kind == LitInterval.
	IntervalAmount int64
	IntervalUnit   IntervalUnit
}

// Star represents bare `*` in a projection or COUNT(*).
type Star struct{}

// QualifiedStar represents `table.*` in a projection.
type QualifiedStar struct {
	Table string
}

// UnaryOp enumerates unary Expression operators.
type UnaryOp string

const (
	OpNeg    UnaryOp = "NEG"
	OpNot    UnaryOp = "NOT"
	OpBitNot UnaryOp = "BIT_NOT"
)

// BinaryOp enumerates binary Expression operators.
type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpMod BinaryOp = "%"

	OpEq  BinaryOp = "="
	OpNe  BinaryOp = "<>"
	OpLt  BinaryOp = "<"
	OpLe  BinaryOp = "<="
	OpGt  BinaryOp = ">"
	OpGe  BinaryOp = ">="

	OpAnd BinaryOp = "AND"
	OpOr  BinaryOp = "OR"

	OpLike     BinaryOp = "LIKE"
	OpNotLike  BinaryOp = "NOT_LIKE"
	OpIn       BinaryOp = "IN"
	OpNotIn    BinaryOp = "NOT_IN"
	OpBetween  BinaryOp = "BETWEEN"
	OpIsNull   BinaryOp = "IS_NULL"
	OpIsNotNull BinaryOp = "IS_NOT_NULL"
	OpConcat   BinaryOp = "CONCAT"
	OpBitAnd   BinaryOp = "BIT_AND"
	OpBitOr    BinaryOp = "BIT_OR"
	OpBitXor   BinaryOp = "BIT_XOR"
)

// Expression is the variant type for every scalar/boolean AST node.
// Exactly one of the typed fields is populated, selected by Kind.
type Expression struct {
	Kind ExprKind

	Column Identifier
	Lit    Literal

	UnaryOp  UnaryOp
	Operand  *Expression

	BinaryOp BinaryOp
	Left     *Expression
	Right    *Expression
	// BetweenHigh carries the upper bound when BinaryOp == OpBetween (Right
	// holds the lower bound).
	BetweenHigh *Expression

	Call *FunctionCall

	Case    *CaseExpr
	If      *IfExpr
	Coalesce []Expression
	NullIf  *NullIfExpr

	Subquery *SubqueryExpr

	Star          *Star
	QualifiedStar *QualifiedStar
}

// ExprKind tags the Expression variant.
type ExprKind int

const (
	ExprColumn ExprKind = iota
	ExprLit
	ExprUnary
	ExprBinary
	ExprFunctionCall
	ExprCase
	ExprIf
	ExprCoalesce
	ExprNullIf
	ExprSubquery
	ExprStar
	ExprQualifiedStar
	// ExprTuple is an ordered expression list: a scalar IN-list or the
	// parenthesised row on the left of a row-subquery comparison. It
	// borrows the Coalesce slice for storage.
	ExprTuple
)

// WindowSpec is the OVER(...) clause attached to a window FunctionCall.
type WindowSpec struct {
	PartitionBy []Expression
	OrderBy     []OrderExpr
}

// FunctionCall is `name(args...)`, optionally DISTINCT and/or windowed.
type FunctionCall struct {
	Name     string // uppercased
	Args     []Expression
	Distinct bool
	Window   *WindowSpec

	// GroupConcatSeparator and GroupConcatOrderBy hold GROUP_CONCAT's
	// optional SEPARATOR/ORDER BY clauses; unused by every other call.
	GroupConcatSeparator string
	HasSeparator         bool
	GroupConcatOrderBy   []OrderExpr

	// ExtractUnit holds EXTRACT's unit operand; unused by other calls.
	ExtractUnit IntervalUnit
	IsExtract   bool

	// CastType holds CAST's target type name; unused by other calls.
	CastType string
	IsCast   bool
}

// CaseExpr is `CASE [operand] WHEN c THEN v ... [ELSE e] END`.
type CaseExpr struct {
	Operand *Expression // non-nil for the operand form
	Whens   []WhenClause
	Else    *Expression
}

// WhenClause is one WHEN/THEN arm of a CaseExpr.
type WhenClause struct {
	When Expression
	Then Expression
}

// IfExpr is `IF(cond, then, else)`.
type IfExpr struct {
	Cond Expression
	Then Expression
	Else Expression
}

// NullIfExpr is `NULLIF(a, b)`.
type NullIfExpr struct {
	A Expression
	B Expression
}

// SubqueryKind enumerates the five subquery shapes.
type SubqueryKind int

const (
	SubqueryScalar SubqueryKind = iota
	SubqueryIn
	SubqueryNotIn
	SubqueryExists
	SubqueryNotExists
	SubqueryRow
	SubqueryDerived
)

// SubqueryExpr wraps a nested SelectStatement with its inferred shape.
type SubqueryExpr struct {
	Kind  SubqueryKind
	Query *SelectStatement
}

// Projection is one SELECT-list item.
type Projection struct {
	Expr  Expression
	Alias string
}

// TableRef is a FROM/JOIN target: either a bare table name or a derived
// table (a parenthesised subquery with a mandatory alias).
type TableRef struct {
	Name    string // empty when Derived != nil
	Alias   string
	Derived *SelectStatement
}

// JoinKind enumerates the supported JOIN varieties.
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
	JoinRight JoinKind = "RIGHT"
	JoinCross JoinKind = "CROSS"
)

// JoinOp is one JOIN clause chained onto the FROM table.
type JoinOp struct {
	Kind   JoinKind
	Target TableRef
	On     *Expression // nil for CROSS JOIN
}

// OrderExpr is one ORDER BY item; Expr may be a Column, a positional
// integer Literal, or a projection alias resolved at lowering time.
type OrderExpr struct {
	Expr Expression
	Asc  bool
}

// SelectStatement is the IR for a single SELECT.
type SelectStatement struct {
	Projections []Projection
	Distinct    bool

	From  TableRef
	Joins []JoinOp

	Where *Expression

	GroupBy []Expression
	Having  *Expression

	OrderBy []OrderExpr

	Limit  *int64
	Offset *int64

	// Union chains a `UNION [ALL]` arm onto this SELECT; the chain is
	// consumed by recursive-CTE lowering (anchor UNION ALL recursive arm)
	// and is unsupported elsewhere.
	Union    *SelectStatement
	UnionAll bool
}

// CTE is one WITH-clause common table expression.
type CTE struct {
	Name      string
	Columns   []string
	Query     *SelectStatement
	Recursive bool
}

// Assignment is one `col = expr` pair in an UPDATE's SET list.
type Assignment struct {
	Column Identifier
	Expr   Expression
}

// Statement is the top-level IR variant produced by the parser.
type Statement struct {
	Kind StatementKind

	Select *SelectStatement

	InsertTable   string
	InsertColumns []string
	InsertRows    [][]Expression

	UpdateTable       string
	UpdateAssignments []Assignment
	UpdateWhere       *Expression

	DeleteTable string
	DeleteWhere *Expression

	WithCTEs []CTE
	WithBody *Statement
}

// StatementKind tags the Statement variant.
type StatementKind int

const (
	StmtSelect StatementKind = iota
	StmtInsert
	StmtUpdate
	StmtDelete
	StmtWith
)
