package concepts

import (
	"context"
	"fmt"

	"github.com/weftlabs/weft/internal/ir"
)

// Counter maintains named monotonic counters in memory.
//
// Operations:
//
//	increment (name?)        -> (name, count)
//	decrement (name?)        -> (name, count)
//	_get      (name?)        -> rows of (name, count)
//
// A missing name addresses the "default" counter.
type Counter struct {
	counts map[string]int64
}

// NewCounter creates an empty counter concept.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int64)}
}

func (c *Counter) Perform(_ context.Context, op string, input ir.Object) (ir.Object, error) {
	name := counterName(input)
	switch op {
	case "increment":
		c.counts[name]++
	case "decrement":
		c.counts[name]--
	default:
		return nil, fmt.Errorf("counter: unknown operation %q", op)
	}
	return ir.Object{
		"name":  ir.String(name),
		"count": ir.Int(c.counts[name]),
	}, nil
}

func (c *Counter) Query(_ context.Context, op string, input ir.Object) ([]ir.Object, error) {
	if op != "_get" {
		return nil, fmt.Errorf("counter: unknown query %q", op)
	}
	name := counterName(input)
	return []ir.Object{{
		"name":  ir.String(name),
		"count": ir.Int(c.counts[name]),
	}}, nil
}

func counterName(input ir.Object) string {
	if v, ok := input["name"]; ok {
		if s, ok := v.(ir.String); ok {
			return string(s)
		}
	}
	return "default"
}
