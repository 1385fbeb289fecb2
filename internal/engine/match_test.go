package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/parser"
)

func record(concept, op string, input, output ir.Object) ir.ActionRecord {
	return ir.ActionRecord{Concept: concept, Op: op, Input: input, Output: output}
}

func TestUnify(t *testing.T) {
	rule := parser.Parse(`
sync T
when
    A.op(lit: 5, v: x): (out: y)
then
    B.sink()
`)
	require.Len(t, rule.When, 1)
	pattern := rule.When[0]

	t.Run("binds variables and checks literals", func(t *testing.T) {
		bound, ok := unify(pattern, record("A", "op",
			ir.Object{"lit": ir.Int(5), "v": ir.String("val")},
			ir.Object{"out": ir.Int(9)},
		))
		require.True(t, ok)

		x, _ := rule.Tokens.Lookup("x")
		y, _ := rule.Tokens.Lookup("y")
		assert.True(t, ir.Equal(ir.String("val"), bound[x]))
		assert.True(t, ir.Equal(ir.Int(9), bound[y]))
	})

	t.Run("literal mismatch fails", func(t *testing.T) {
		_, ok := unify(pattern, record("A", "op",
			ir.Object{"lit": ir.Int(6), "v": ir.String("val")},
			ir.Object{"out": ir.Int(9)},
		))
		assert.False(t, ok)
	})

	t.Run("missing field fails", func(t *testing.T) {
		_, ok := unify(pattern, record("A", "op",
			ir.Object{"lit": ir.Int(5)},
			ir.Object{"out": ir.Int(9)},
		))
		assert.False(t, ok)
	})
}

func TestUnify_SameTokenTwice(t *testing.T) {
	rule := parser.Parse(`
sync T
when
    A.op(a: x, b: x)
then
    B.sink()
`)
	pattern := rule.When[0]

	_, ok := unify(pattern, record("A", "op",
		ir.Object{"a": ir.Int(1), "b": ir.Int(1)}, nil))
	assert.True(t, ok, "equal values for one token unify")

	_, ok = unify(pattern, record("A", "op",
		ir.Object{"a": ir.Int(1), "b": ir.Int(2)}, nil))
	assert.False(t, ok, "unequal values for one token fail")
}

func TestMatchTrigger_SymmetricClauseOrder(t *testing.T) {
	rule := parser.Parse(`
sync Joined
when
    A.first(v: x)
    A.second(v: x)
then
    B.done(v: x)
`)

	first := record("A", "first", ir.Object{"v": ir.Int(1)}, nil)
	second := record("A", "second", ir.Object{"v": ir.Int(1)}, nil)

	t.Run("fires when the last clause arrives", func(t *testing.T) {
		log := []ir.ActionRecord{first, second}
		frames := matchTrigger(rule, second, log)
		assert.Len(t, frames, 1)
	})

	t.Run("fires regardless of which clause was last", func(t *testing.T) {
		log := []ir.ActionRecord{second, first}
		frames := matchTrigger(rule, first, log)
		assert.Len(t, frames, 1)
	})

	t.Run("no frames while a clause is unmatched", func(t *testing.T) {
		log := []ir.ActionRecord{first}
		frames := matchTrigger(rule, first, log)
		assert.Empty(t, frames)
	})

	t.Run("irrelevant record skips the rule", func(t *testing.T) {
		other := record("C", "noise", nil, nil)
		log := []ir.ActionRecord{first, second, other}
		frames := matchTrigger(rule, other, log)
		assert.Empty(t, frames)
	})
}

func TestMatchTrigger_MultipleCandidates(t *testing.T) {
	rule := parser.Parse(`
sync Pairs
when
    A.left(v: x)
    A.right(v: x)
then
    B.done(v: x)
`)

	log := []ir.ActionRecord{
		record("A", "left", ir.Object{"v": ir.Int(1)}, nil),
		record("A", "left", ir.Object{"v": ir.Int(2)}, nil),
		record("A", "right", ir.Object{"v": ir.Int(1)}, nil),
		record("A", "right", ir.Object{"v": ir.Int(2)}, nil),
	}

	frames := matchTrigger(rule, log[3], log)
	require.Len(t, frames, 2, "only consistent left/right pairs survive")

	x, _ := rule.Tokens.Lookup("x")
	v0, _ := frames[0].Get(x)
	v1, _ := frames[1].Get(x)
	assert.True(t, ir.Equal(ir.Int(1), v0))
	assert.True(t, ir.Equal(ir.Int(2), v1))
}
