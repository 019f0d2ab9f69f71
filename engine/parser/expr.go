package parser

import (
	"strconv"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/engine/lexer"
)

// parseExpr parses a full expression at the lowest precedence. The lexer's punctuation set carries no single-char
// `&`/`|`/`<<`/`>>` tokens, so the bitwise-infix precedence tier the
// table names is reached only through the BIT_AND/BIT_OR/BIT_XOR
// catalogue functions, never as an infix operator here.
func (p *Parser) parseExpr() (ast.Expression, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return ast.Expression{}, err
	}
	for p.consumeKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return ast.Expression{}, err
		}
		left = binExpr(ast.OpOr, left, right)
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return ast.Expression{}, err
	}
	for p.consumeKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return ast.Expression{}, err
		}
		left = binExpr(ast.OpAnd, left, right)
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expression, error) {
	if p.consumeKeyword("NOT") {
		operand, err := p.parseNot()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.ExprUnary, UnaryOp: ast.OpNot, Operand: &operand}, nil
	}
	return p.parseComparison()
}

// parseComparison handles =, <>, <, <=, >, >=, LIKE, [NOT] IN, BETWEEN,
// IS [NOT] NULL, and EXISTS/NOT EXISTS as standalone subquery predicates.
func (p *Parser) parseComparison() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return ast.Expression{}, err
	}

	for {
		switch {
		case p.cur().Type == lexer.Eq:
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpEq, left, right)
		case p.cur().Type == lexer.Ne:
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpNe, left, right)
		case p.cur().Type == lexer.Le:
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpLe, left, right)
		case p.cur().Type == lexer.Ge:
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpGe, left, right)
		case p.cur().Type == lexer.Lt:
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpLt, left, right)
		case p.cur().Type == lexer.Gt:
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpGt, left, right)
		case p.atKeyword("NOT"):
			// NOT LIKE / NOT IN / NOT BETWEEN
			save := p.r.Position()
			p.advance()
			switch {
			case p.atKeyword("LIKE"):
				p.advance()
				right, err := p.parseAdditive()
				if err != nil {
					return ast.Expression{}, err
				}
				left = binExpr(ast.OpNotLike, left, right)
			case p.atKeyword("IN"):
				p.advance()
				right, err := p.parseInList()
				if err != nil {
					return ast.Expression{}, err
				}
				left = binExpr(ast.OpNotIn, left, right)
			case p.atKeyword("BETWEEN"):
				p.advance()
				e, err := p.parseBetween(left)
				if err != nil {
					return ast.Expression{}, err
				}
				left = negateBetween(e)
			default:
				p.r.SetPosition(save)
				return left, nil
			}
		case p.atKeyword("LIKE"):
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpLike, left, right)
		case p.atKeyword("IN"):
			p.advance()
			right, err := p.parseInList()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpIn, left, right)
		case p.atKeyword("BETWEEN"):
			p.advance()
			e, err := p.parseBetween(left)
			if err != nil {
				return ast.Expression{}, err
			}
			left = e
		case p.atKeyword("IS"):
			p.advance()
			op := ast.OpIsNull
			if p.consumeKeyword("NOT") {
				op = ast.OpIsNotNull
			}
			if _, err := p.expectKeyword("NULL"); err != nil {
				return ast.Expression{}, err
			}
			left = ast.Expression{Kind: ast.ExprBinary, BinaryOp: op, Left: copyExpr(left)}
		default:
			return left, nil
		}
	}
}

// parseBetween desugars `x BETWEEN a AND b` to `x >= a AND x <= b`.
func (p *Parser) parseBetween(x ast.Expression) (ast.Expression, error) {
	low, err := p.parseAdditive()
	if err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expectKeyword("AND"); err != nil {
		return ast.Expression{}, err
	}
	high, err := p.parseAdditive()
	if err != nil {
		return ast.Expression{}, err
	}
	ge := binExpr(ast.OpGe, x, low)
	le := binExpr(ast.OpLe, x, high)
	return binExpr(ast.OpAnd, ge, le), nil
}

func negateBetween(andExpr ast.Expression) ast.Expression {
	notExpr := ast.Expression{Kind: ast.ExprUnary, UnaryOp: ast.OpNot, Operand: &andExpr}
	return notExpr
}

// parseInList parses the `(v1, v2, ...)` or `(SELECT ...)` right-hand side
// of IN/NOT IN.
func (p *Parser) parseInList() (ast.Expression, error) {
	if _, err := p.expectType(lexer.LParen); err != nil {
		return ast.Expression{}, err
	}
	if p.atKeyword("SELECT") || p.atKeyword("WITH") {
		sub, err := p.parseSelect()
		if err != nil {
			return ast.Expression{}, err
		}
		if _, err := p.expectType(lexer.RParen); err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.ExprSubquery, Subquery: &ast.SubqueryExpr{Kind: ast.SubqueryIn, Query: sub}}, nil
	}
	var items []ast.Expression
	for {
		e, err := p.parseExpr()
		if err != nil {
			return ast.Expression{}, err
		}
		items = append(items, e)
		if p.r.ConsumeIfType(lexer.Comma) {
			continue
		}
		break
	}
	if _, err := p.expectType(lexer.RParen); err != nil {
		return ast.Expression{}, err
	}
	return listExpr(items), nil
}

// listExpr packs a scalar IN-list (or a row tuple) as an ExprTuple; the
// lowering engine reads its meaning from the parent BinaryOp.
func listExpr(items []ast.Expression) ast.Expression {
	return ast.Expression{Kind: ast.ExprTuple, Coalesce: items}
}

func (p *Parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return ast.Expression{}, err
	}
	for {
		switch p.cur().Type {
		case lexer.Plus:
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpAdd, left, right)
		case lexer.Minus:
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpSub, left, right)
		case lexer.Pipe2:
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpConcat, left, right)
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return ast.Expression{}, err
	}
	for {
		switch p.cur().Type {
		case lexer.Star:
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpMul, left, right)
		case lexer.Slash:
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpDiv, left, right)
		case lexer.Percent:
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return ast.Expression{}, err
			}
			left = binExpr(ast.OpMod, left, right)
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	if p.cur().Type == lexer.Minus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.ExprUnary, UnaryOp: ast.OpNeg, Operand: &operand}, nil
	}
	if p.consumeKeyword("NOT") {
		operand, err := p.parseUnary()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.ExprUnary, UnaryOp: ast.OpNot, Operand: &operand}, nil
	}
	return p.parsePrimary()
}

func binExpr(op ast.BinaryOp, l, r ast.Expression) ast.Expression {
	left, right := l, r
	return ast.Expression{Kind: ast.ExprBinary, BinaryOp: op, Left: &left, Right: &right}
}

func copyExpr(e ast.Expression) *ast.Expression {
	v := e
	return &v
}

func parseNumberLiteral(tok lexer.Token) (ast.Expression, error) {
	if tok.Type == lexer.Integer {
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.ExprLit, Lit: ast.Literal{Kind: ast.LitInteger, Int: n}}, nil
	}
	f, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil {
		return ast.Expression{}, err
	}
	return ast.Expression{Kind: ast.ExprLit, Lit: ast.Literal{Kind: ast.LitFloat, Float: f}}, nil
}
