package parser

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/ir"
)

const lookupSrc = `
sync ResolveShort

when
    Web.request (method: "lookup", shortUrlSuffix) : (request: request)

where
    UrlShortening._lookup (shortUrlSuffix: shortUrlSuffix) : (targetUrl: targetUrl)
    hits < 100

then
    Analytics.record (shortUrlSuffix: shortUrlSuffix, hits: 1)
    Web.respond (request: request, targetUrl: targetUrl)
`

func TestFormat_Golden(t *testing.T) {
	rule := Parse(lookupSrc)

	g := goldie.New(t)
	g.Assert(t, "resolve_short", []byte(Format(rule)))
}

func TestFormat_RoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{"register short", registerShortSrc},
		{"resolve with where", lookupSrc},
		{"filter only", "sync T\n\nwhen\n    Counter.increment () : (count: count)\n\nwhere\n    count > 5\n\nthen\n    Alert.raise (count: count)\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			first := Parse(tc.src)
			second := Parse(Format(first))

			assertSameShape(t, first, second)

			// Formatting is a fixpoint after one pass.
			assert.Equal(t, Format(first), Format(second))
		})
	}
}

// assertSameShape checks the round-trip property: concept names, operation
// names, and variable-vs-literal classification of every field survive.
func assertSameShape(t *testing.T, a, b *ir.Rule) {
	t.Helper()

	assert.Equal(t, a.Name, b.Name)
	require.Equal(t, len(a.When), len(b.When))
	require.Equal(t, len(a.Where), len(b.Where))
	require.Equal(t, len(a.Then), len(b.Then))

	for i := range a.When {
		assertSamePattern(t, a.When[i], b.When[i])
	}
	for i := range a.Then {
		assertSamePattern(t, a.Then[i], b.Then[i])
	}
	for i := range a.Where {
		switch sa := a.Where[i].(type) {
		case ir.QueryStep:
			sb, ok := b.Where[i].(ir.QueryStep)
			require.True(t, ok)
			assert.Equal(t, sa.Ref(), sb.Ref())
			assert.Equal(t, sa.InOrder, sb.InOrder)
			assert.Equal(t, sa.BindOrder, sb.BindOrder)
		case ir.FilterStep:
			sb, ok := b.Where[i].(ir.FilterStep)
			require.True(t, ok)
			assert.Equal(t, sa.Expr, sb.Expr)
		}
	}
}

func assertSamePattern(t *testing.T, a, b ir.ActionPattern) {
	t.Helper()

	assert.Equal(t, a.Ref(), b.Ref())
	require.Equal(t, a.InOrder, b.InOrder)
	for _, name := range a.InOrder {
		ta, tb := a.In[name], b.In[name]
		require.Equal(t, ta.IsVar(), tb.IsVar(), "field %s classification", name)
		if ta.IsVar() {
			assert.Equal(t, ta.Var.Name(), tb.Var.Name())
		} else {
			assert.True(t, ir.Equal(ta.Literal, tb.Literal), "field %s literal", name)
		}
	}
	require.Equal(t, a.OutOrder, b.OutOrder)
	for _, name := range a.OutOrder {
		assert.Equal(t, a.Out[name].Name(), b.Out[name].Name())
	}
}
