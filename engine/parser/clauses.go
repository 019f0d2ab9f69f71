package parser

import (
	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/engine/lexer"
)

// parseJoins parses zero or more chained JOIN clauses in source order.
func (p *Parser) parseJoins() ([]ast.JoinOp, error) {
	var joins []ast.JoinOp
	for {
		kind, ok, err := p.parseJoinKind()
		if err != nil {
			return nil, err
		}
		if !ok {
			return joins, nil
		}
		target, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}

		join := ast.JoinOp{Kind: kind, Target: target}
		switch {
		case p.consumeKeyword("ON"):
			on, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			join.On = &on
		case p.consumeKeyword("USING"):
			on, err := p.parseUsing(target)
			if err != nil {
				return nil, err
			}
			join.On = &on
		case kind != ast.JoinCross:
			return nil, p.syntaxError("ON or USING", p.cur())
		}
		joins = append(joins, join)
	}
}

// parseJoinKind consumes an optional join-kind prefix and the mandatory
// JOIN keyword, returning ok=false when no JOIN follows (end of FROM).
func (p *Parser) parseJoinKind() (ast.JoinKind, bool, error) {
	switch {
	case p.atKeyword("JOIN"):
		p.advance()
		return ast.JoinInner, true, nil
	case p.atKeyword("INNER"):
		p.advance()
		if _, err := p.expectKeyword("JOIN"); err != nil {
			return "", false, err
		}
		return ast.JoinInner, true, nil
	case p.atKeyword("LEFT"):
		p.advance()
		p.consumeKeyword("OUTER")
		if _, err := p.expectKeyword("JOIN"); err != nil {
			return "", false, err
		}
		return ast.JoinLeft, true, nil
	case p.atKeyword("RIGHT"):
		p.advance()
		p.consumeKeyword("OUTER")
		if _, err := p.expectKeyword("JOIN"); err != nil {
			return "", false, err
		}
		return ast.JoinRight, true, nil
	case p.atKeyword("CROSS"):
		p.advance()
		if _, err := p.expectKeyword("JOIN"); err != nil {
			return "", false, err
		}
		return ast.JoinCross, true, nil
	default:
		return "", false, nil
	}
}

// parseUsing parses `USING(col {, col}*)` and desugars it to
// `a.col = b.col [AND ...]` against target's alias/name.
func (p *Parser) parseUsing(target ast.TableRef) (ast.Expression, error) {
	if _, err := p.expectType(lexer.LParen); err != nil {
		return ast.Expression{}, err
	}
	targetName := target.Alias
	if targetName == "" {
		targetName = target.Name
	}

	var cond ast.Expression
	first := true
	for {
		col, err := p.parseName()
		if err != nil {
			return ast.Expression{}, err
		}
		eq := binExpr(ast.OpEq,
			ast.Expression{Kind: ast.ExprColumn, Column: ast.Identifier{Name: col}},
			ast.Expression{Kind: ast.ExprColumn, Column: ast.Identifier{Qualifier: targetName, Name: col}},
		)
		if first {
			cond = eq
			first = false
		} else {
			cond = binExpr(ast.OpAnd, cond, eq)
		}
		if p.r.ConsumeIfType(lexer.Comma) {
			continue
		}
		break
	}
	if _, err := p.expectType(lexer.RParen); err != nil {
		return ast.Expression{}, err
	}
	return cond, nil
}
