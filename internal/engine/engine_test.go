package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/weftlabs/weft/internal/ir"
)

// fakeConcept is a programmable concept recording every mutating call.
type fakeConcept struct {
	onPerform func(op string, input ir.Object) (ir.Object, error)
	onQuery   func(op string, input ir.Object) ([]ir.Object, error)

	performs []performCall
	queries  []performCall
}

type performCall struct {
	Op    string
	Input ir.Object
}

func (f *fakeConcept) Perform(_ context.Context, op string, input ir.Object) (ir.Object, error) {
	f.performs = append(f.performs, performCall{Op: op, Input: input})
	if f.onPerform != nil {
		return f.onPerform(op, input)
	}
	return ir.Object{}, nil
}

func (f *fakeConcept) Query(_ context.Context, op string, input ir.Object) ([]ir.Object, error) {
	f.queries = append(f.queries, performCall{Op: op, Input: input})
	if f.onQuery != nil {
		return f.onQuery(op, input)
	}
	return nil, nil
}

// echoConcept returns its input unchanged, the usual gateway shape.
func echoConcept() *fakeConcept {
	return &fakeConcept{
		onPerform: func(_ string, input ir.Object) (ir.Object, error) {
			return input.Clone(), nil
		},
	}
}

func quietRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(append([]Option{WithLogger(discard)}, opts...)...)
}
