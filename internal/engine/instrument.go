package engine

import (
	"context"
	"time"

	"github.com/weftlabs/weft/internal/ir"
)

// instrumented wraps one concept so every settled operation becomes an
// observable completion. The wrapper is transparent to callers: identical
// operations, identical results.
type instrumented struct {
	rt    *Runtime
	name  string
	inner Concept
}

// Perform invokes the underlying mutating operation. Once its result is
// determined, exactly one completion is emitted to the runtime - and all
// rule processing it triggers runs - before the result is returned to the
// original caller. An infrastructure error means no result was settled,
// so no completion is emitted.
func (c *instrumented) Perform(ctx context.Context, op string, input ir.Object) (ir.Object, error) {
	output, err := c.inner.Perform(ctx, op, input.Clone())
	if err != nil {
		return output, err
	}

	c.rt.completed(ctx, c.name, op, input, output)
	return output, nil
}

// Query invokes the underlying read operation. Read completions are
// observed (for the audit trace) but never broadcast as triggers: they
// are side-effect free and safely re-invocable, so rules reach them only
// through explicit query steps.
func (c *instrumented) Query(ctx context.Context, op string, input ir.Object) ([]ir.Object, error) {
	rows, err := c.inner.Query(ctx, op, input.Clone())
	if err != nil {
		return rows, err
	}

	if c.rt.observer != nil {
		token := ""
		if c.rt.scope != nil {
			token = c.rt.scope.token
		}
		seq := c.rt.clock.Next()
		id, err := ir.RecordID(c.name, op, input, seq)
		if err != nil {
			c.rt.logger.Error("record id failed", "concept", c.name, "op", op, "error", err)
		}
		c.rt.observer.Observe(ir.ActionRecord{
			ID:      id,
			Concept: c.name,
			Op:      op,
			Input:   input.Clone(),
			Output:  ir.Object{"rows": ir.Int(int64(len(rows)))},
			Seq:     seq,
			At:      time.Now(),
		}, token)
	}

	return rows, nil
}
