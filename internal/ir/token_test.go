package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSource_InternsByName(t *testing.T) {
	src := NewTokenSource()

	a := src.Intern("count")
	b := src.Intern("count")
	c := src.Intern("other")

	assert.Same(t, a, b, "same name must return identical token")
	assert.NotSame(t, a, c)
	assert.Equal(t, "count", a.Name())
	assert.Equal(t, "?count", a.String())
	assert.Equal(t, 2, src.Len())
}

func TestTokenSource_ScopedPerRule(t *testing.T) {
	a := NewTokenSource().Intern("count")
	b := NewTokenSource().Intern("count")

	assert.NotSame(t, a, b, "distinct sources never share tokens")
}

func TestTokenSource_Lookup(t *testing.T) {
	src := NewTokenSource()

	_, ok := src.Lookup("missing")
	assert.False(t, ok)

	interned := src.Intern("x")
	found, ok := src.Lookup("x")
	require.True(t, ok)
	assert.Same(t, interned, found)
}
