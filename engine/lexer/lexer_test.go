package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestTokenizeSelect(t *testing.T) {
	toks := Tokenize("SELECT name FROM customers WHERE id >= 10;")

	require.Equal(t, []TokenType{
		Keyword, Name, Keyword, Name, Keyword, Name, Ge, Integer, Semicolon, EOF,
	}, kinds(toks))
	assert.Equal(t, "SELECT", toks[0].Value)
	assert.Equal(t, "name", toks[1].Value)
	assert.Equal(t, "10", toks[7].Value)
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	toks := Tokenize("select FrOm where")
	for _, tok := range toks[:3] {
		assert.Equal(t, Keyword, tok.Type)
	}
	assert.Equal(t, "SELECT", toks[0].Value)
	assert.Equal(t, "FROM", toks[1].Value)
	assert.Equal(t, "WHERE", toks[2].Value)
}

func TestStringLiterals(t *testing.T) {
	toks := Tokenize(`'it''s' "a ""b"""`)
	require.Equal(t, String, toks[0].Type)
	assert.Equal(t, "it's", toks[0].Value)
	require.Equal(t, String, toks[1].Type)
	assert.Equal(t, `a "b"`, toks[1].Value)
}

func TestUnclosedStringIsErrorToken(t *testing.T) {
	toks := Tokenize("'oops")
	require.Equal(t, Error, toks[0].Type)
	assert.Equal(t, EOF, toks[1].Type)
}

func TestBacktickIdentifier(t *testing.T) {
	toks := Tokenize("`order` `select`")
	require.Equal(t, Name, toks[0].Type)
	assert.Equal(t, "order", toks[0].Value)
	require.Equal(t, Name, toks[1].Type)
	assert.Equal(t, "select", toks[1].Value)
}

func TestCommentsAreDropped(t *testing.T) {
	toks := Tokenize("SELECT 1 -- trailing\n/* block\ncomment */ + 2")
	require.Equal(t, []TokenType{Keyword, Integer, Plus, Integer, EOF}, kinds(toks))
}

func TestNumbers(t *testing.T) {
	toks := Tokenize("42 3.14 1e6 2.5E-3 .5")
	require.Equal(t, []TokenType{Integer, Float, Float, Float, Float, EOF}, kinds(toks))
	assert.Equal(t, "1e6", toks[2].Value)
	assert.Equal(t, "2.5E-3", toks[3].Value)
}

func TestOperatorsGreedy(t *testing.T) {
	toks := Tokenize("<= >= <> != || := < > =")
	require.Equal(t, []TokenType{Le, Ge, Ne, Ne, Pipe2, Assign, Lt, Gt, Eq, EOF}, kinds(toks))
}

func TestTotalOverGarbage(t *testing.T) {
	// The scanner never aborts: unknown bytes become Error tokens.
	toks := Tokenize("SELECT @ FROM t")
	require.Equal(t, []TokenType{Keyword, Error, Keyword, Name, EOF}, kinds(toks))
}

func TestPositions(t *testing.T) {
	toks := Tokenize("SELECT\n  name")
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
	assert.Equal(t, 3, toks[1].Column)
}

func TestSuggestKeyword(t *testing.T) {
	assert.Equal(t, "SELECT", SuggestKeyword("SELEC"))
	assert.Equal(t, "WHERE", SuggestKeyword("wher"))
	assert.Equal(t, "", SuggestKeyword("zzzzzzzz"))
}
