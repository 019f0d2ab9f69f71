// Package parser is the recursive-descent parser over engine/token.Reader.
// It never looks at the SQL source string directly — every decision is
// made from the tagged token stream engine/lexer produces; no regex or
// substring matching happens anywhere above the lexer.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/toddstoffel/MongoSQL/engine/ast"
	"github.com/toddstoffel/MongoSQL/engine/lexer"
	"github.com/toddstoffel/MongoSQL/engine/token"
	"github.com/toddstoffel/MongoSQL/translrerr"
)

// Parser holds the cursor over one statement's tokens.
type Parser struct {
	r *token.Reader
}

// Parse tokenizes sql and parses exactly one statement, erroring if
// trailing tokens remain beyond an optional terminating semicolon.
func Parse(sql string) (*ast.Statement, error) {
	toks := lexer.Tokenize(sql)
	p := &Parser{r: token.New(toks)}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	p.r.ConsumeIfType(lexerSemicolon)
	if !p.r.AtEnd() {
		return nil, p.syntaxError("end of statement", p.cur())
	}
	return stmt, nil
}

// ParseMany splits sql on top-level semicolons and parses each statement
// independently. Batch parsing aborts on the
// first error, reporting the offending statement's 1-based index.
func ParseMany(sql string) ([]*ast.Statement, error) {
	stmts := []*ast.Statement{}
	index := 0
	for _, part := range splitStatements(sql) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		index++
		stmt, err := Parse(part)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", index, err)
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// splitStatements cuts sql on top-level semicolons, tracking quote/backtick
// state with the lexer's own scanner so a semicolon inside a string
// literal is never mistaken for a statement boundary.
func splitStatements(sql string) []string {
	toks := lexer.Tokenize(sql)
	var parts []string
	start := 0
	for _, t := range toks {
		if t.Type == lexer.EOF {
			break
		}
		if t.Type == lexer.Semicolon {
			parts = append(parts, sql[start:t.Pos])
			start = t.Pos + 1
		}
	}
	if start < len(sql) {
		tail := sql[start:]
		if strings.TrimSpace(tail) != "" {
			parts = append(parts, tail)
		}
	}
	return parts
}

const lexerSemicolon = lexer.Semicolon

func (p *Parser) cur() lexer.Token  { return p.r.Peek(0) }
func (p *Parser) peekN(k int) lexer.Token { return p.r.Peek(k) }
func (p *Parser) advance() lexer.Token    { return p.r.Next() }

func (p *Parser) atKeyword(word string) bool {
	return p.cur().IsKeyword(word)
}

func (p *Parser) consumeKeyword(word string) bool {
	return p.r.ConsumeIfKeyword(word)
}

func (p *Parser) expectKeyword(word string) (lexer.Token, error) {
	if !p.cur().IsKeyword(word) {
		return lexer.Token{}, p.syntaxError(word, p.cur())
	}
	return p.advance(), nil
}

func (p *Parser) expectType(tt lexer.TokenType) (lexer.Token, error) {
	if p.cur().Type != tt {
		return lexer.Token{}, p.syntaxError(tt.String(), p.cur())
	}
	return p.advance(), nil
}

func (p *Parser) syntaxError(expected string, found lexer.Token) error {
	foundDesc := found.Value
	if found.Type == lexer.EOF {
		return &translrerr.UnexpectedEnd{Expected: expected}
	}
	hint := ""
	if found.Type == lexer.Name || found.Type == lexer.Error {
		hint = lexer.SuggestKeyword(found.Value)
	}
	return &translrerr.SyntaxError{
		Position: translrerr.Position{Pos: found.Pos, Line: found.Line, Column: found.Column},
		Expected: expected,
		Found:    foundDesc,
		Hint:     hint,
	}
}

// parseStatement dispatches on the first keyword.
func (p *Parser) parseStatement() (*ast.Statement, error) {
	switch {
	case p.atKeyword("WITH"):
		return p.parseWith()
	case p.atKeyword("SELECT"):
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		return &ast.Statement{Kind: ast.StmtSelect, Select: sel}, nil
	case p.atKeyword("INSERT"):
		return p.parseInsert()
	case p.atKeyword("UPDATE"):
		return p.parseUpdate()
	case p.atKeyword("DELETE"):
		return p.parseDelete()
	default:
		return nil, p.syntaxError("SELECT, WITH, INSERT, UPDATE, or DELETE", p.cur())
	}
}

// parseName reads a Name or backtick-quoted identifier token.
func (p *Parser) parseName() (string, error) {
	if p.cur().Type != lexer.Name {
		return "", p.syntaxError("identifier", p.cur())
	}
	return p.advance().Value, nil
}

func parseIntLiteral(tok lexer.Token) (int64, error) {
	return strconv.ParseInt(tok.Value, 10, 64)
}
