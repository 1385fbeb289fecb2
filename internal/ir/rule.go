package ir

import "strings"

// QueryPrefix marks side-effect-free read operations. The engine only
// reaches these through explicit query steps; their completions are never
// broadcast as triggers.
const QueryPrefix = "_"

// ErrorField is the reserved output field concepts use to report a
// business failure. The engine passes it through without retry or rollback.
const ErrorField = "error"

// IsQueryOp reports whether op names a read operation.
func IsQueryOp(op string) bool {
	return strings.HasPrefix(op, QueryPrefix)
}

// Term is one input-pattern entry: either a literal Value or a variable
// token. Exactly one of the two is set.
type Term struct {
	Literal Value
	Var     *Token
}

// Lit builds a literal Term.
func Lit(v Value) Term {
	return Term{Literal: v}
}

// Bind builds a variable Term.
func Bind(t *Token) Term {
	return Term{Var: t}
}

// IsVar reports whether the term is a variable reference.
func (t Term) IsVar() bool {
	return t.Var != nil
}

// ActionPattern is a (concept, operation, input-pattern, output-pattern)
// template. It serves both trigger clauses and consequent clauses; for
// consequents the output-pattern is ignored.
type ActionPattern struct {
	Concept string
	Op      string

	// In maps field names to literal-or-token terms.
	In map[string]Term
	// Out maps field names to capture tokens.
	Out map[string]*Token

	// InOrder and OutOrder preserve source field order for serialization.
	InOrder  []string
	OutOrder []string
}

// Ref returns the "Concept.op" form used in logs and diagnostics.
func (p ActionPattern) Ref() string {
	return p.Concept + "." + p.Op
}

// RefinementStep is a sealed interface: only QueryStep and FilterStep
// implement it. Sealing enables exhaustive type switches in the engine.
type RefinementStep interface {
	refinementStep()
}

// QueryStep invokes a concept read operation once per frame and replaces
// the frame with zero-or-more frames, one per result row, merged under the
// output binding.
type QueryStep struct {
	Concept string
	Op      string // always QueryPrefix-ed
	In      map[string]Term
	InOrder []string
	// Bind maps result-row fields to capture tokens.
	Bind      map[string]*Token
	BindOrder []string
}

func (QueryStep) refinementStep() {}

// Ref returns the "Concept._op" form used in logs and diagnostics.
func (s QueryStep) Ref() string {
	return s.Concept + "." + s.Op
}

// FilterStep evaluates a boolean expression over bound variables and drops
// frames evaluating false. Vars records every variable the expression
// references, in order of first appearance.
type FilterStep struct {
	Expr string
	Vars []*Token
}

func (FilterStep) refinementStep() {}

// Rule is one parsed synchronization: ordered trigger clauses, ordered
// refinement steps, ordered consequent clauses. Tokens is the per-rule
// interning source; every *Token referenced by the clauses comes from it.
type Rule struct {
	Name   string
	When   []ActionPattern
	Where  []RefinementStep
	Then   []ActionPattern
	Tokens *TokenSource
}

// Empty reports whether the rule carries no clauses at all. Parsers yield
// an Empty rule for degenerate input so callers can fall back to a
// template instead of failing.
func (r *Rule) Empty() bool {
	return len(r.When) == 0 && len(r.Where) == 0 && len(r.Then) == 0
}

// Concepts returns the distinct concept names the rule references, in
// order of first appearance. Used for registry validation.
func (r *Rule) Concepts() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, p := range r.When {
		add(p.Concept)
	}
	for _, step := range r.Where {
		if q, ok := step.(QueryStep); ok {
			add(q.Concept)
		}
	}
	for _, p := range r.Then {
		add(p.Concept)
	}
	return out
}
