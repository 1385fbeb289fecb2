package engine

import (
	"context"
	"time"

	"github.com/weftlabs/weft/internal/ir"
)

// completed is the single entry point for settled mutating operations.
// It records the completion, evaluates every registered rule against it,
// and invokes consequent operations, all on the caller's goroutine. A
// consequent's own completion re-enters here at depth+1, so an entire
// rule chain finishes before the outermost instrumented call returns.
func (rt *Runtime) completed(ctx context.Context, concept, op string, input, output ir.Object) {
	outermost := rt.scope == nil
	if outermost {
		rt.scope = newDispatchScope(rt.scopeGen.Generate())
		rt.logger.Debug("dispatch scope opened",
			"scope", rt.scope.token,
			"concept", concept,
			"op", op,
		)
	}
	scope := rt.scope
	defer func() {
		if outermost {
			rt.logger.Debug("dispatch scope closed",
				"scope", scope.token,
				"steps", scope.steps,
			)
			rt.scope = nil
		}
	}()

	seq := rt.clock.Next()
	id, err := ir.RecordID(concept, op, input, seq)
	if err != nil {
		// Inputs reaching a concept are already ir.Values, so this only
		// trips on values that cannot canonicalize. Record without an ID
		// rather than lose the completion.
		rt.logger.Error("record id failed", "concept", concept, "op", op, "error", err)
	}
	rec := ir.ActionRecord{
		ID:      id,
		Concept: concept,
		Op:      op,
		Input:   input.Clone(),
		Output:  output.Clone(),
		Seq:     seq,
		At:      time.Now(),
	}
	scope.append(rec)

	if rt.observer != nil {
		rt.observer.Observe(rec, scope.token)
	}

	if scope.dead {
		return
	}

	scope.depth++
	scope.steps++
	defer func() { scope.depth-- }()

	if scope.depth > rt.maxDepth {
		scope.dead = true
		limitErr := &DispatchLimitError{
			ScopeToken: scope.token,
			Depth:      scope.depth,
			Steps:      scope.steps,
			Limit:      rt.maxDepth,
			Kind:       "depth",
		}
		rt.logger.Error("dispatch limit exceeded", "error", limitErr, "record", rec.Ref())
		return
	}
	if scope.steps > rt.maxSteps {
		scope.dead = true
		limitErr := &DispatchLimitError{
			ScopeToken: scope.token,
			Depth:      scope.depth,
			Steps:      scope.steps,
			Limit:      rt.maxSteps,
			Kind:       "steps",
		}
		rt.logger.Error("dispatch limit exceeded", "error", limitErr, "record", rec.Ref())
		return
	}

	rt.evaluate(ctx, scope, rec)
}

// evaluate runs every registered rule, in registration order, against a
// freshly logged completion. Rules are independent: each starts from its
// own trigger match and nothing one rule does changes which frames
// another retains (only side-effect order follows registry order).
func (rt *Runtime) evaluate(ctx context.Context, scope *dispatchScope, rec ir.ActionRecord) {
	for _, rule := range rt.rules {
		frames := matchTrigger(rule, rec, scope.records)
		if len(frames) == 0 {
			continue
		}

		frames = rt.refine(ctx, rule, frames)

		for _, frame := range frames {
			hash, err := ir.BindingHash(frame.Bindings())
			if err != nil {
				rt.logger.Warn("binding hash failed, frame dropped",
					"rule", rule.Name,
					"error", err,
				)
				continue
			}
			if scope.wouldRefire(rule.Name, hash) {
				rt.logger.Debug("cycle suppressed",
					"scope", scope.token,
					"rule", rule.Name,
					"binding_hash", hash,
				)
				continue
			}
			scope.markFired(rule.Name, hash)

			rt.logger.Info("rule fired",
				"scope", scope.token,
				"rule", rule.Name,
				"trigger", rec.Ref(),
				"binding_hash", hash,
			)

			rt.invokeConsequents(ctx, rule, frame)
			if scope.dead {
				return
			}
		}
	}
}

// refine runs a rule's refinement pipeline over the frame set, one step
// at a time. Each step sees only the survivors of the previous step. A
// failure inside a step (query error, filter evaluation error, panic)
// drops the affected frame and nothing else; rule processing is never
// allowed to fail the triggering operation.
func (rt *Runtime) refine(ctx context.Context, rule *ir.Rule, frames FrameSet) FrameSet {
	for _, step := range rule.Where {
		switch st := step.(type) {
		case ir.QueryStep:
			frames = frames.Expand(func(f *Frame) []*Frame {
				return rt.expandQuery(ctx, rule, st, f)
			})
		case ir.FilterStep:
			frames = frames.Filter(func(f *Frame) bool {
				ok, err := evalFilter(st, f)
				if err != nil {
					rt.logger.Warn("filter dropped frame",
						"rule", rule.Name,
						"expr", st.Expr,
						"error", err,
					)
					return false
				}
				return ok
			})
		}
		if len(frames) == 0 {
			return nil
		}
	}
	return frames
}

// expandQuery executes one query step for one frame: input terms resolve
// against the frame, the concept's read operation runs, and every
// returned row that merges consistently yields one extended frame. Zero
// rows prune the frame; n rows fan it out n ways.
func (rt *Runtime) expandQuery(ctx context.Context, rule *ir.Rule, step ir.QueryStep, frame *Frame) (out []*Frame) {
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Warn("query step panicked, frame dropped",
				"rule", rule.Name,
				"query", step.Concept+"."+step.Op,
				"panic", r,
			)
			out = nil
		}
	}()

	concept, ok := rt.concepts[step.Concept]
	if !ok {
		rt.logger.Warn("query step names unknown concept, frame dropped",
			"rule", rule.Name,
			"concept", step.Concept,
		)
		return nil
	}

	input := make(ir.Object, len(step.In))
	for field, term := range step.In {
		if !term.IsVar() {
			input[field] = term.Literal
			continue
		}
		v, bound := frame.Get(term.Var)
		if !bound {
			rt.logger.Warn("query input variable unbound, frame dropped",
				"rule", rule.Name,
				"query", step.Concept+"."+step.Op,
				"variable", term.Var.Name(),
			)
			return nil
		}
		input[field] = v
	}

	rows, err := concept.Query(ctx, step.Op, input)
	if err != nil {
		rt.logger.Warn("query step failed, frame dropped",
			"rule", rule.Name,
			"query", step.Concept+"."+step.Op,
			"error", err,
		)
		return nil
	}

	for _, row := range rows {
		bindings := make(map[*ir.Token]ir.Value, len(step.Bind))
		consistent := true
		for field, t := range step.Bind {
			v, ok := row[field]
			if !ok {
				consistent = false
				break
			}
			bindings[t] = v
		}
		if !consistent {
			continue
		}
		if merged, ok := frame.Merge(bindings); ok {
			out = append(out, merged)
		}
	}
	return out
}

// invokeConsequents resolves and invokes each consequent clause for one
// surviving frame, in clause order. A clause referencing an unbound
// variable is skipped with a warning; the others still run. Consequent
// errors are logged, never propagated: the triggering caller's result is
// already settled.
func (rt *Runtime) invokeConsequents(ctx context.Context, rule *ir.Rule, frame *Frame) {
	for _, clause := range rule.Then {
		input, ok := rt.resolveConsequent(rule, clause, frame)
		if !ok {
			continue
		}

		concept, found := rt.concepts[clause.Concept]
		if !found {
			rt.logger.Warn("consequent names unknown concept, skipped",
				"rule", rule.Name,
				"concept", clause.Concept,
			)
			continue
		}

		if _, err := concept.Perform(ctx, clause.Op, input); err != nil {
			rt.logger.Warn("consequent failed",
				"rule", rule.Name,
				"action", clause.Ref(),
				"error", err,
			)
		}
	}
}

// resolveConsequent builds the concrete input for one consequent clause:
// literals pass through, variables substitute their frame values. An
// unbound variable makes the whole clause unresolvable.
func (rt *Runtime) resolveConsequent(rule *ir.Rule, clause ir.ActionPattern, frame *Frame) (ir.Object, bool) {
	input := make(ir.Object, len(clause.In))
	for field, term := range clause.In {
		if !term.IsVar() {
			input[field] = term.Literal
			continue
		}
		v, bound := frame.Get(term.Var)
		if !bound {
			rt.logger.Warn("consequent variable unbound, clause skipped",
				"rule", rule.Name,
				"action", clause.Ref(),
				"variable", term.Var.Name(),
			)
			return nil, false
		}
		input[field] = v
	}
	return input, true
}
