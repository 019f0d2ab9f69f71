package parser

import (
	"strings"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/engine/lexer"
)

// parsePrimary parses a literal, identifier, function call, parenthesised
// expression, subquery, or the CASE/IF/COALESCE/NULLIF structural forms.
func (p *Parser) parsePrimary() (ast.Expression, error) {
	tok := p.cur()

	switch tok.Type {
	case lexer.Integer, lexer.Float:
		p.advance()
		return parseNumberLiteral(tok)
	case lexer.String:
		p.advance()
		return ast.Expression{Kind: ast.ExprLit, Lit: ast.Literal{Kind: ast.LitString, Str: tok.Value}}, nil
	case lexer.Question:
		p.advance()
		return ast.Expression{Kind: ast.ExprLit, Lit: ast.Literal{Kind: ast.LitNull}}, nil
	case lexer.Star:
		p.advance()
		return ast.Expression{Kind: ast.ExprStar, Star: &ast.Star{}}, nil
	case lexer.LParen:
		return p.parseParenOrSubquery()
	}

	switch {
	case tok.IsKeyword("TRUE"):
		p.advance()
		return ast.Expression{Kind: ast.ExprLit, Lit: ast.Literal{Kind: ast.LitBoolean, Bool: true}}, nil
	case tok.IsKeyword("FALSE"):
		p.advance()
		return ast.Expression{Kind: ast.ExprLit, Lit: ast.Literal{Kind: ast.LitBoolean, Bool: false}}, nil
	case tok.IsKeyword("NULL"):
		p.advance()
		return ast.Expression{Kind: ast.ExprLit, Lit: ast.Literal{Kind: ast.LitNull}}, nil
	case tok.IsKeyword("INTERVAL"):
		return p.parseInterval()
	case tok.IsKeyword("CASE"):
		return p.parseCase()
	case tok.IsKeyword("IF"):
		return p.parseIf()
	case tok.IsKeyword("COALESCE"):
		return p.parseCoalesce()
	case tok.IsKeyword("NULLIF"):
		return p.parseNullIf()
	case tok.IsKeyword("EXTRACT"):
		return p.parseExtract()
	case tok.IsKeyword("CAST"):
		return p.parseCast()
	case tok.IsKeyword("EXISTS"):
		p.advance()
		sub, err := p.parseParenSelect()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.ExprSubquery, Subquery: &ast.SubqueryExpr{Kind: ast.SubqueryExists, Query: sub}}, nil
	}

	if tok.Type == lexer.Name {
		return p.parseNameExpr()
	}

	// Reserved words double as function names when a call follows
	// (YEAR(d), LEFT(s, 3), WEEK(d)).
	if tok.Type == lexer.Keyword && p.peekN(1).Type == lexer.LParen {
		p.advance()
		return p.parseFunctionCall(tok.Value)
	}

	return ast.Expression{}, p.syntaxError("expression", tok)
}

// parseNameExpr parses a column reference, a qualified star, or a function
// call, disambiguated by lookahead for '(' and '.'.
func (p *Parser) parseNameExpr() (ast.Expression, error) {
	name := p.advance().Value

	if p.cur().Type == lexer.Dot {
		p.advance()
		if p.cur().Type == lexer.Star {
			p.advance()
			return ast.Expression{Kind: ast.ExprQualifiedStar, QualifiedStar: &ast.QualifiedStar{Table: name}}, nil
		}
		col, err := p.parseName()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.ExprColumn, Column: ast.Identifier{Qualifier: name, Name: col}}, nil
	}

	if p.cur().Type == lexer.LParen {
		return p.parseFunctionCall(name)
	}

	return ast.Expression{Kind: ast.ExprColumn, Column: ast.Identifier{Name: name}}, nil
}

// parseFunctionCall parses `name '(' [DISTINCT] arg {, arg}* ')' [OVER(...)]`,
// with COUNT(*) and GROUP_CONCAT's SEPARATOR/ORDER BY special-cased.
func (p *Parser) parseFunctionCall(name string) (ast.Expression, error) {
	upper := strings.ToUpper(name)
	if _, err := p.expectType(lexer.LParen); err != nil {
		return ast.Expression{}, err
	}

	call := &ast.FunctionCall{Name: upper}

	if upper == "COUNT" && p.cur().Type == lexer.Star {
		p.advance()
		call.Args = []ast.Expression{{Kind: ast.ExprStar, Star: &ast.Star{}}}
		if _, err := p.expectType(lexer.RParen); err != nil {
			return ast.Expression{}, err
		}
		return p.maybeWindow(call)
	}

	if p.consumeKeyword("DISTINCT") {
		call.Distinct = true
	}

	if p.cur().Type != lexer.RParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return ast.Expression{}, err
			}
			call.Args = append(call.Args, arg)
			if p.r.ConsumeIfType(lexer.Comma) {
				continue
			}
			break
		}
	}

	if upper == "GROUP_CONCAT" && p.consumeKeyword("ORDER") {
		if _, err := p.expectKeyword("BY"); err != nil {
			return ast.Expression{}, err
		}
		ob, err := p.parseOrderByList()
		if err != nil {
			return ast.Expression{}, err
		}
		call.GroupConcatOrderBy = ob
	}
	if upper == "GROUP_CONCAT" && p.consumeKeyword("SEPARATOR") {
		if p.cur().Type != lexer.String {
			return ast.Expression{}, p.syntaxError("string literal", p.cur())
		}
		call.GroupConcatSeparator = p.advance().Value
		call.HasSeparator = true
	}

	if _, err := p.expectType(lexer.RParen); err != nil {
		return ast.Expression{}, err
	}

	return p.maybeWindow(call)
}

// maybeWindow parses an optional `OVER (PARTITION BY ... ORDER BY ...)`
// clause attached to call, then returns the FunctionCall Expression.
func (p *Parser) maybeWindow(call *ast.FunctionCall) (ast.Expression, error) {
	if p.consumeKeyword("OVER") {
		spec, err := p.parseWindowSpec()
		if err != nil {
			return ast.Expression{}, err
		}
		call.Window = spec
	}
	return ast.Expression{Kind: ast.ExprFunctionCall, Call: call}, nil
}

func (p *Parser) parseWindowSpec() (*ast.WindowSpec, error) {
	if _, err := p.expectType(lexer.LParen); err != nil {
		return nil, err
	}
	spec := &ast.WindowSpec{}
	if p.consumeKeyword("PARTITION") {
		if _, err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			spec.PartitionBy = append(spec.PartitionBy, e)
			if p.r.ConsumeIfType(lexer.Comma) {
				continue
			}
			break
		}
	}
	if p.consumeKeyword("ORDER") {
		if _, err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		ob, err := p.parseOrderByList()
		if err != nil {
			return nil, err
		}
		spec.OrderBy = ob
	}
	if _, err := p.expectType(lexer.RParen); err != nil {
		return nil, err
	}
	return spec, nil
}

// parseParenOrSubquery disambiguates `(SELECT ...)` from a parenthesised
// expression or a row-subquery tuple.
func (p *Parser) parseParenOrSubquery() (ast.Expression, error) {
	if p.peekN(1).IsKeyword("SELECT") || p.peekN(1).IsKeyword("WITH") {
		p.advance() // '('
		sub, err := p.parseSelect()
		if err != nil {
			return ast.Expression{}, err
		}
		if _, err := p.expectType(lexer.RParen); err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.ExprSubquery, Subquery: &ast.SubqueryExpr{Kind: ast.SubqueryScalar, Query: sub}}, nil
	}
	p.advance() // '('
	inner, err := p.parseExpr()
	if err != nil {
		return ast.Expression{}, err
	}
	// `(a, b, ...)` is a row tuple, the left side of a row-subquery
	// comparison.
	if p.cur().Type == lexer.Comma {
		items := []ast.Expression{inner}
		for p.r.ConsumeIfType(lexer.Comma) {
			e, err := p.parseExpr()
			if err != nil {
				return ast.Expression{}, err
			}
			items = append(items, e)
		}
		if _, err := p.expectType(lexer.RParen); err != nil {
			return ast.Expression{}, err
		}
		return listExpr(items), nil
	}
	if _, err := p.expectType(lexer.RParen); err != nil {
		return ast.Expression{}, err
	}
	return inner, nil
}

// parseParenSelect parses `'(' SELECT ... ')'`, used by EXISTS/NOT EXISTS.
func (p *Parser) parseParenSelect() (*ast.SelectStatement, error) {
	if _, err := p.expectType(lexer.LParen); err != nil {
		return nil, err
	}
	sub, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectType(lexer.RParen); err != nil {
		return nil, err
	}
	return sub, nil
}

func (p *Parser) parseInterval() (ast.Expression, error) {
	if _, err := p.expectKeyword("INTERVAL"); err != nil {
		return ast.Expression{}, err
	}
	tok := p.cur()
	if tok.Type != lexer.Integer {
		return ast.Expression{}, p.syntaxError("integer amount", tok)
	}
	amount, err := parseIntLiteral(p.advance())
	if err != nil {
		return ast.Expression{}, err
	}
	if p.cur().Type != lexer.Keyword {
		return ast.Expression{}, p.syntaxError("interval unit", p.cur())
	}
	unit := ast.IntervalUnit(p.advance().Value)
	return ast.Expression{Kind: ast.ExprLit, Lit: ast.Literal{Kind: ast.LitInterval, IntervalAmount: amount, IntervalUnit: unit}}, nil
}

func (p *Parser) parseCase() (ast.Expression, error) {
	if _, err := p.expectKeyword("CASE"); err != nil {
		return ast.Expression{}, err
	}
	c := &ast.CaseExpr{}
	if !p.atKeyword("WHEN") {
		operand, err := p.parseExpr()
		if err != nil {
			return ast.Expression{}, err
		}
		c.Operand = &operand
	}
	for p.consumeKeyword("WHEN") {
		when, err := p.parseExpr()
		if err != nil {
			return ast.Expression{}, err
		}
		if _, err := p.expectKeyword("THEN"); err != nil {
			return ast.Expression{}, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return ast.Expression{}, err
		}
		c.Whens = append(c.Whens, ast.WhenClause{When: when, Then: then})
	}
	if len(c.Whens) == 0 {
		return ast.Expression{}, p.syntaxError("WHEN", p.cur())
	}
	if p.consumeKeyword("ELSE") {
		e, err := p.parseExpr()
		if err != nil {
			return ast.Expression{}, err
		}
		c.Else = &e
	}
	if _, err := p.expectKeyword("END"); err != nil {
		return ast.Expression{}, err
	}
	return ast.Expression{Kind: ast.ExprCase, Case: c}, nil
}

func (p *Parser) parseIf() (ast.Expression, error) {
	if _, err := p.expectKeyword("IF"); err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectType(lexer.LParen); err != nil {
		return ast.Expression{}, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectType(lexer.Comma); err != nil {
		return ast.Expression{}, err
	}
	then, err := p.parseExpr()
	if err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectType(lexer.Comma); err != nil {
		return ast.Expression{}, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectType(lexer.RParen); err != nil {
		return ast.Expression{}, err
	}
	return ast.Expression{Kind: ast.ExprIf, If: &ast.IfExpr{Cond: cond, Then: then, Else: els}}, nil
}

func (p *Parser) parseCoalesce() (ast.Expression, error) {
	if _, err := p.expectKeyword("COALESCE"); err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectType(lexer.LParen); err != nil {
		return ast.Expression{}, err
	}
	var args []ast.Expression
	for {
		e, err := p.parseExpr()
		if err != nil {
			return ast.Expression{}, err
		}
		args = append(args, e)
		if p.r.ConsumeIfType(lexer.Comma) {
			continue
		}
		break
	}
	if _, err := p.expectType(lexer.RParen); err != nil {
		return ast.Expression{}, err
	}
	return ast.Expression{Kind: ast.ExprCoalesce, Coalesce: args}, nil
}

func (p *Parser) parseNullIf() (ast.Expression, error) {
	if _, err := p.expectKeyword("NULLIF"); err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectType(lexer.LParen); err != nil {
		return ast.Expression{}, err
	}
	a, err := p.parseExpr()
	if err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectType(lexer.Comma); err != nil {
		return ast.Expression{}, err
	}
	b, err := p.parseExpr()
	if err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectType(lexer.RParen); err != nil {
		return ast.Expression{}, err
	}
	return ast.Expression{Kind: ast.ExprNullIf, NullIf: &ast.NullIfExpr{A: a, B: b}}, nil
}

func (p *Parser) parseExtract() (ast.Expression, error) {
	if _, err := p.expectKeyword("EXTRACT"); err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectType(lexer.LParen); err != nil {
		return ast.Expression{}, err
	}
	if p.cur().Type != lexer.Keyword {
		return ast.Expression{}, p.syntaxError("unit", p.cur())
	}
	unit := ast.IntervalUnit(p.advance().Value)
	if _, err := p.expectKeyword("FROM"); err != nil {
		return ast.Expression{}, err
	}
	arg, err := p.parseExpr()
	if err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectType(lexer.RParen); err != nil {
		return ast.Expression{}, err
	}
	return ast.Expression{Kind: ast.ExprFunctionCall, Call: &ast.FunctionCall{
		Name: "EXTRACT", Args: []ast.Expression{arg}, IsExtract: true, ExtractUnit: unit,
	}}, nil
}

func (p *Parser) parseCast() (ast.Expression, error) {
	if _, err := p.expectKeyword("CAST"); err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectType(lexer.LParen); err != nil {
		return ast.Expression{}, err
	}
	arg, err := p.parseExpr()
	if err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectKeyword("AS"); err != nil {
		return ast.Expression{}, err
	}
	typeName, err := p.parseName()
	if err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectType(lexer.RParen); err != nil {
		return ast.Expression{}, err
	}
	return ast.Expression{Kind: ast.ExprFunctionCall, Call: &ast.FunctionCall{
		Name: "CAST", Args: []ast.Expression{arg}, IsCast: true, CastType: strings.ToUpper(typeName),
	}}, nil
}
