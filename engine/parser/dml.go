package parser

import (
	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/engine/lexer"
)

// parseInsert parses `INSERT INTO t (c1,...) VALUES (v11,...), (v21,...)`.
func (p *Parser) parseInsert() (*ast.Statement, error) {
	if _, err := p.expectKeyword("INSERT"); err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.parseName()
	if err != nil {
		return nil, err
	}

	stmt := &ast.Statement{Kind: ast.StmtInsert, InsertTable: table}

	if _, err := p.expectType(lexer.LParen); err != nil {
		return nil, err
	}
	for {
		col, err := p.parseName()
		if err != nil {
			return nil, err
		}
		stmt.InsertColumns = append(stmt.InsertColumns, col)
		if p.r.ConsumeIfType(lexer.Comma) {
			continue
		}
		break
	}
	if _, err := p.expectType(lexer.RParen); err != nil {
		return nil, err
	}

	if _, err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}

	for {
		row, err := p.parseValueRow(len(stmt.InsertColumns))
		if err != nil {
			return nil, err
		}
		stmt.InsertRows = append(stmt.InsertRows, row)
		if p.r.ConsumeIfType(lexer.Comma) {
			continue
		}
		break
	}

	return stmt, nil
}

func (p *Parser) parseValueRow(expected int) ([]ast.Expression, error) {
	if _, err := p.expectType(lexer.LParen); err != nil {
		return nil, err
	}
	var row []ast.Expression
	for {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		row = append(row, v)
		if p.r.ConsumeIfType(lexer.Comma) {
			continue
		}
		break
	}
	if _, err := p.expectType(lexer.RParen); err != nil {
		return nil, err
	}
	if expected > 0 && len(row) != expected {
		return nil, p.syntaxError("matching column count in VALUES row", p.cur())
	}
	return row, nil
}

// parseUpdate parses `UPDATE t SET c=e,... WHERE p`.
func (p *Parser) parseUpdate() (*ast.Statement, error) {
	if _, err := p.expectKeyword("UPDATE"); err != nil {
		return nil, err
	}
	table, err := p.parseName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}

	stmt := &ast.Statement{Kind: ast.StmtUpdate, UpdateTable: table}
	for {
		col, err := p.parseName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectType(lexer.Eq); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.UpdateAssignments = append(stmt.UpdateAssignments, ast.Assignment{
			Column: ast.Identifier{Name: col}, Expr: val,
		})
		if p.r.ConsumeIfType(lexer.Comma) {
			continue
		}
		break
	}

	if p.consumeKeyword("WHERE") {
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.UpdateWhere = &w
	}

	return stmt, nil
}

// parseDelete parses `DELETE FROM t WHERE p`.
func (p *Parser) parseDelete() (*ast.Statement, error) {
	if _, err := p.expectKeyword("DELETE"); err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.parseName()
	if err != nil {
		return nil, err
	}

	stmt := &ast.Statement{Kind: ast.StmtDelete, DeleteTable: table}
	if p.consumeKeyword("WHERE") {
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.DeleteWhere = &w
	}
	return stmt, nil
}
