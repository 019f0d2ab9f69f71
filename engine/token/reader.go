// Package token implements the positional cursor over a lexer.Token
// stream. It is the sole interface by which the parser and its clause
// sub-parsers consume tokens — nothing above this layer touches the
// original source string.
package token

import "github.com/toddstoffel/MongoSQL/engine/lexer"

// Reader is a read-only cursor with lookahead over a fixed token slice.
// Slicing a Reader produces an independent Reader over a sub-range. The
// parser does not slice: its clause sub-parsers all advance one shared
// Reader over the whole statement.
type Reader struct {
	tokens []lexer.Token
	pos    int
}

// New builds a Reader over tokens, which must end in an EOF token.
func New(tokens []lexer.Token) *Reader {
	return &Reader{tokens: tokens}
}

// Peek returns the token k positions ahead of the cursor (Peek(0) is the
// current token) without consuming anything. Past the end it returns the
// trailing EOF token.
func (r *Reader) Peek(k int) lexer.Token {
	i := r.pos + k
	if i < 0 {
		i = 0
	}
	if i >= len(r.tokens) {
		return r.tokens[len(r.tokens)-1]
	}
	return r.tokens[i]
}

// Next consumes and returns the current token.
func (r *Reader) Next() lexer.Token {
	t := r.Peek(0)
	if r.pos < len(r.tokens)-1 {
		r.pos++
	}
	return t
}

// AtEnd reports whether the cursor sits on the trailing EOF token.
func (r *Reader) AtEnd() bool {
	return r.Peek(0).Type == lexer.EOF
}

// Position returns the cursor's index into the underlying token slice, for
// use with Slice and for error reporting.
func (r *Reader) Position() int {
	return r.pos
}

// SetPosition rewinds or fast-forwards the cursor; the parser uses it to
// backtrack after looking past a NOT in a comparison.
func (r *Reader) SetPosition(p int) {
	r.pos = p
}

// ConsumeIfKeyword consumes and returns true if the current token is the
// given keyword.
func (r *Reader) ConsumeIfKeyword(word string) bool {
	if r.Peek(0).IsKeyword(word) {
		r.Next()
		return true
	}
	return false
}

// ConsumeIfType consumes and returns true if the current token has type tt.
func (r *Reader) ConsumeIfType(tt lexer.TokenType) bool {
	if r.Peek(0).Type == tt {
		r.Next()
		return true
	}
	return false
}

// Slice returns a new independent Reader over tokens[a:b] of the
// underlying stream (indices are absolute, as returned by Position),
// always terminated with an EOF token so sub-parsers can AtEnd() safely.
func (r *Reader) Slice(a, b int) *Reader {
	if a < 0 {
		a = 0
	}
	if b > len(r.tokens) {
		b = len(r.tokens)
	}
	if b < a {
		b = a
	}
	sub := make([]lexer.Token, 0, b-a+1)
	sub = append(sub, r.tokens[a:b]...)
	sub = append(sub, lexer.Token{Type: lexer.EOF})
	return &Reader{tokens: sub}
}

// Tokens exposes the full underlying slice.
func (r *Reader) Tokens() []lexer.Token {
	return r.tokens
}
