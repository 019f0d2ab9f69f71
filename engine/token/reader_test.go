package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toddstoffel/MongoSQL/engine/lexer"
)

func TestReaderCursor(t *testing.T) {
	r := New(lexer.Tokenize("SELECT a, b"))

	assert.Equal(t, "SELECT", r.Peek(0).Value)
	assert.Equal(t, "a", r.Peek(1).Value)
	assert.False(t, r.AtEnd())

	assert.Equal(t, "SELECT", r.Next().Value)
	assert.Equal(t, "a", r.Next().Value)
	assert.Equal(t, lexer.Comma, r.Next().Type)
	assert.Equal(t, "b", r.Next().Value)
	assert.True(t, r.AtEnd())

	// Reading past the end keeps returning EOF.
	assert.Equal(t, lexer.EOF, r.Next().Type)
	assert.Equal(t, lexer.EOF, r.Peek(5).Type)
}

func TestConsumeIf(t *testing.T) {
	r := New(lexer.Tokenize("SELECT DISTINCT a"))

	assert.True(t, r.ConsumeIfKeyword("SELECT"))
	assert.False(t, r.ConsumeIfKeyword("FROM"))
	assert.True(t, r.ConsumeIfKeyword("DISTINCT"))
	assert.True(t, r.ConsumeIfType(lexer.Name))
	assert.True(t, r.AtEnd())
}

func TestSetPosition(t *testing.T) {
	r := New(lexer.Tokenize("a b c"))
	r.Next()
	save := r.Position()
	r.Next()
	r.SetPosition(save)
	assert.Equal(t, "b", r.Peek(0).Value)
}

func TestSlice(t *testing.T) {
	r := New(lexer.Tokenize("a b c d"))
	sub := r.Slice(1, 3)

	require.Equal(t, "b", sub.Next().Value)
	require.Equal(t, "c", sub.Next().Value)
	assert.True(t, sub.AtEnd())

	// The parent cursor is untouched.
	assert.Equal(t, "a", r.Peek(0).Value)
}
