package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/ir"
)

func filterFrame(t *testing.T, bindings map[string]ir.Value) (ir.FilterStep, *Frame) {
	t.Helper()
	ts := ir.NewTokenSource()
	bound := make(map[*ir.Token]ir.Value, len(bindings))
	var vars []*ir.Token
	for name, v := range bindings {
		tok := ts.Intern(name)
		bound[tok] = v
		vars = append(vars, tok)
	}
	frame, ok := EmptyFrame().Merge(bound)
	require.True(t, ok)
	return ir.FilterStep{Vars: vars}, frame
}

func TestEvalFilter_Comparisons(t *testing.T) {
	tests := []struct {
		expr     string
		bindings map[string]ir.Value
		want     bool
	}{
		{"count > 5", map[string]ir.Value{"count": ir.Int(6)}, true},
		{"count > 5", map[string]ir.Value{"count": ir.Int(5)}, false},
		{"count >= 5", map[string]ir.Value{"count": ir.Int(5)}, true},
		{"count < 0", map[string]ir.Value{"count": ir.Int(-1)}, true},
		{"count <= -1", map[string]ir.Value{"count": ir.Int(0)}, false},
		{"count == 3", map[string]ir.Value{"count": ir.Int(3)}, true},
		{"count != 3", map[string]ir.Value{"count": ir.Int(3)}, false},
		{`name == "ada"`, map[string]ir.Value{"name": ir.String("ada")}, true},
		{`name < "b"`, map[string]ir.Value{"name": ir.String("ada")}, true},
		{"ok == true", map[string]ir.Value{"ok": ir.Bool(true)}, true},
		{"a == b", map[string]ir.Value{"a": ir.Int(2), "b": ir.Int(2)}, true},
		{"a == b", map[string]ir.Value{"a": ir.Int(2), "b": ir.Int(3)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			step, frame := filterFrame(t, tt.bindings)
			step.Expr = tt.expr

			got, err := evalFilter(step, frame)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalFilter_Conjunction(t *testing.T) {
	bindings := map[string]ir.Value{"count": ir.Int(6), "kind": ir.String("hit")}

	for expr, want := range map[string]bool{
		`count > 5 and kind == "hit"`:  true,
		`count > 5 AND kind == "miss"`: false,
		`count > 9 && kind == "hit"`:   false,
	} {
		step, frame := filterFrame(t, bindings)
		step.Expr = expr

		got, err := evalFilter(step, frame)
		require.NoError(t, err, expr)
		assert.Equal(t, want, got, expr)
	}
}

func TestEvalFilter_Errors(t *testing.T) {
	t.Run("unbound variable", func(t *testing.T) {
		ts := ir.NewTokenSource()
		step := ir.FilterStep{Expr: "ghost > 1", Vars: []*ir.Token{ts.Intern("ghost")}}

		_, err := evalFilter(step, EmptyFrame())
		assert.Error(t, err)
	})

	t.Run("incomparable types", func(t *testing.T) {
		step, frame := filterFrame(t, map[string]ir.Value{"v": ir.Bool(true)})
		step.Expr = "v > 1"

		_, err := evalFilter(step, frame)
		assert.Error(t, err)
	})

	t.Run("unsupported expression", func(t *testing.T) {
		step, frame := filterFrame(t, map[string]ir.Value{"v": ir.Int(1)})
		step.Expr = "v is odd"

		_, err := evalFilter(step, frame)
		assert.Error(t, err)
	})
}

func TestSplitConjunction_QuoteAware(t *testing.T) {
	parts := splitConjunction(`name == "x and y" and count > 1`)
	require.Len(t, parts, 2)
	assert.Equal(t, `name == "x and y"`, parts[0])
	assert.Equal(t, "count > 1", parts[1])
}
