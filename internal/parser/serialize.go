package parser

import (
	"strconv"
	"strings"

	"github.com/weftlabs/weft/internal/ir"
)

// Format re-serializes a rule to canonical rule text. Parsing the result
// yields a rule with identical concept names, operation names, and
// variable-vs-literal classification of every field. Punning shorthand is
// expanded; field order follows the original source.
func Format(rule *ir.Rule) string {
	var b strings.Builder

	b.WriteString("sync ")
	b.WriteString(rule.Name)
	b.WriteString("\n")

	if len(rule.When) > 0 {
		b.WriteString("\nwhen\n")
		for _, p := range rule.When {
			b.WriteString("    ")
			b.WriteString(formatPattern(p, true))
			b.WriteString("\n")
		}
	}

	if len(rule.Where) > 0 {
		b.WriteString("\nwhere\n")
		for _, step := range rule.Where {
			b.WriteString("    ")
			b.WriteString(formatRefinement(step))
			b.WriteString("\n")
		}
	}

	if len(rule.Then) > 0 {
		b.WriteString("\nthen\n")
		for _, p := range rule.Then {
			b.WriteString("    ")
			b.WriteString(formatPattern(p, len(p.Out) > 0))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func formatPattern(p ir.ActionPattern, withOut bool) string {
	var b strings.Builder

	b.WriteString(p.Concept)
	b.WriteString(".")
	b.WriteString(p.Op)
	b.WriteString(" (")
	for i, name := range p.InOrder {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(formatTerm(p.In[name]))
	}
	b.WriteString(")")

	if withOut && len(p.OutOrder) > 0 {
		b.WriteString(" : (")
		for i, name := range p.OutOrder {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(p.Out[name].Name())
		}
		b.WriteString(")")
	}

	return b.String()
}

func formatRefinement(step ir.RefinementStep) string {
	switch s := step.(type) {
	case ir.QueryStep:
		return formatPattern(ir.ActionPattern{
			Concept:  s.Concept,
			Op:       s.Op,
			In:       s.In,
			Out:      s.Bind,
			InOrder:  s.InOrder,
			OutOrder: s.BindOrder,
		}, true)
	case ir.FilterStep:
		return s.Expr
	default:
		return ""
	}
}

func formatTerm(t ir.Term) string {
	if t.IsVar() {
		return t.Var.Name()
	}
	return formatLiteral(t.Literal)
}

func formatLiteral(v ir.Value) string {
	switch val := v.(type) {
	case ir.String:
		return strconv.Quote(string(val))
	case ir.Int:
		return strconv.FormatInt(int64(val), 10)
	case ir.Bool:
		return strconv.FormatBool(bool(val))
	case ir.Null:
		return "null"
	default:
		// Arrays and objects do not occur in parsed rule text; fall back
		// to canonical JSON so output stays parseable as an opaque literal.
		data, err := ir.MarshalCanonical(v)
		if err != nil {
			return `""`
		}
		return string(data)
	}
}
