package manifest

import (
	"fmt"
	"strings"

	"github.com/weftlabs/weft/internal/ir"
)

// Problem is one vetting finding against a rule.
type Problem struct {
	Rule    string `json:"rule"`
	Concept string `json:"concept,omitempty"`
	Op      string `json:"op,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	ref := p.Concept
	if p.Op != "" {
		ref += "." + p.Op
	}
	if ref != "" {
		return fmt.Sprintf("rule %q: %s: %s", p.Rule, ref, p.Message)
	}
	return fmt.Sprintf("rule %q: %s", p.Rule, p.Message)
}

// Vet checks rules against compiled manifests: every referenced concept
// must be declared, trigger and consequent operations must be declared
// actions, query steps must be declared queries, and input fields must be
// declared arguments. Findings come back in rule order; an empty slice
// means the rules are consistent with the manifests.
func Vet(manifests []*Manifest, rules []*ir.Rule) []Problem {
	byName := make(map[string]*Manifest, len(manifests))
	for _, m := range manifests {
		byName[m.Name] = m
	}

	var problems []Problem
	for _, rule := range rules {
		problems = append(problems, vetRule(byName, rule)...)
	}
	return problems
}

func vetRule(manifests map[string]*Manifest, rule *ir.Rule) []Problem {
	var problems []Problem

	checkAction := func(p ir.ActionPattern, position string) {
		m, ok := manifests[p.Concept]
		if !ok {
			problems = append(problems, Problem{
				Rule:    rule.Name,
				Concept: p.Concept,
				Message: "concept is not declared in any manifest",
			})
			return
		}
		if ir.IsQueryOp(p.Op) {
			problems = append(problems, Problem{
				Rule:    rule.Name,
				Concept: p.Concept,
				Op:      p.Op,
				Message: "read operation cannot appear in a " + position + " clause",
			})
			return
		}
		op, ok := m.Action(p.Op)
		if !ok {
			problems = append(problems, Problem{
				Rule:    rule.Name,
				Concept: p.Concept,
				Op:      p.Op,
				Message: "operation is not a declared action",
			})
			return
		}
		problems = append(problems, vetFields(rule.Name, p.Concept, p.Op, p.InOrder, op)...)
	}

	for _, p := range rule.When {
		checkAction(p, "trigger")
	}
	for _, p := range rule.Then {
		checkAction(p, "consequent")
	}

	for _, step := range rule.Where {
		q, ok := step.(ir.QueryStep)
		if !ok {
			continue
		}
		m, found := manifests[q.Concept]
		if !found {
			problems = append(problems, Problem{
				Rule:    rule.Name,
				Concept: q.Concept,
				Message: "concept is not declared in any manifest",
			})
			continue
		}
		bare := strings.TrimPrefix(q.Op, ir.QueryPrefix)
		op, found := m.Query(bare)
		if !found {
			problems = append(problems, Problem{
				Rule:    rule.Name,
				Concept: q.Concept,
				Op:      q.Op,
				Message: "operation is not a declared query",
			})
			continue
		}
		problems = append(problems, vetFields(rule.Name, q.Concept, q.Op, q.InOrder, op)...)
	}

	return problems
}

func vetFields(rule, concept, opName string, fields []string, op Operation) []Problem {
	declared := make(map[string]bool, len(op.Args))
	for _, arg := range op.Args {
		declared[arg] = true
	}

	var problems []Problem
	for _, field := range fields {
		if !declared[field] {
			problems = append(problems, Problem{
				Rule:    rule,
				Concept: concept,
				Op:      opName,
				Message: fmt.Sprintf("field %q is not a declared argument", field),
			})
		}
	}
	return problems
}
