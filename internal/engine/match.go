package engine

import "github.com/weftlabs/weft/internal/ir"

// unify matches an action pattern against a concrete record, producing
// the bindings the pattern extracts.
//
// Input fields: a literal must equal the record's concrete value; a
// variable binds the concrete value. Output fields always bind. A field
// the record does not carry fails the match, as does one token bound to
// two unequal values within the same pattern.
func unify(p ir.ActionPattern, rec ir.ActionRecord) (map[*ir.Token]ir.Value, bool) {
	bound := make(map[*ir.Token]ir.Value, len(p.In)+len(p.Out))

	bind := func(t *ir.Token, v ir.Value) bool {
		if existing, ok := bound[t]; ok {
			return ir.Equal(existing, v)
		}
		bound[t] = v
		return true
	}

	for field, term := range p.In {
		concrete, ok := rec.Input[field]
		if !ok {
			return nil, false
		}
		if term.IsVar() {
			if !bind(term.Var, concrete) {
				return nil, false
			}
			continue
		}
		if !ir.Equal(term.Literal, concrete) {
			return nil, false
		}
	}

	for field, t := range p.Out {
		concrete, ok := rec.Output[field]
		if !ok {
			return nil, false
		}
		if !bind(t, concrete) {
			return nil, false
		}
	}

	return bound, true
}

// matchTrigger builds the frame set for one rule against the scope log,
// which already includes the record that just completed. Triggering is
// symmetric: a multi-clause rule fires whichever of its clauses completes
// last, so every clause joins against the full log and the event only
// gates whether the rule is worth evaluating at all. Frames composed
// purely of older records re-derive bindings that already fired; the
// per-scope cycle suppression drops those downstream.
//
// Returns an empty set when any clause has no matching record yet - the
// rule may still fire later when that clause's completion arrives.
func matchTrigger(rule *ir.Rule, rec ir.ActionRecord, log []ir.ActionRecord) FrameSet {
	relevant := false
	for _, clause := range rule.When {
		if clause.Concept == rec.Concept && clause.Op == rec.Op {
			relevant = true
			break
		}
	}
	if !relevant {
		return nil
	}

	frames := FrameSet{EmptyFrame()}
	for _, clause := range rule.When {
		var candidates []map[*ir.Token]ir.Value
		for _, logged := range log {
			if logged.Concept != clause.Concept || logged.Op != clause.Op {
				continue
			}
			if m, ok := unify(clause, logged); ok {
				candidates = append(candidates, m)
			}
		}
		frames = frames.Join(candidates)
		if len(frames) == 0 {
			return nil
		}
	}

	return frames
}
