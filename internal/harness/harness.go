package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/weftlabs/weft/internal/engine"
	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/parser"
	"github.com/weftlabs/weft/internal/testutil"
)

// TraceEvent is one observed completion, flattened for assertions and
// golden comparison.
type TraceEvent struct {
	Scope  string
	Action string // "Concept.op"
	Input  ir.Object
	Output ir.Object
	Seq    int64
}

// Result is the outcome of running a scenario.
type Result struct {
	Pass   bool
	Trace  []TraceEvent
	Errors []string
}

func (r *Result) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario against a fresh runtime.
//
// Each run instruments the scenario's stub concepts, registers its rules,
// performs the steps in order, and evaluates the assertions over the
// observed trace. Scope tokens are sequential ("scope-0001", ...) so the
// trace is fully deterministic.
//
// Run returns an error for defects in the scenario itself (a rule that
// fails registration, an unconvertible input value). Assertion failures
// and step-level business errors are reported through the Result instead.
func Run(scenario *Scenario) (*Result, error) {
	recorder := &testutil.Recorder{}
	rt := engine.New(
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithScopeTokens(&testutil.FixedTokens{}),
		engine.WithObserver(recorder),
	)

	concepts := make(map[string]engine.Concept, len(scenario.Concepts))
	for name, def := range scenario.Concepts {
		stub, err := newStub(name, def)
		if err != nil {
			return nil, err
		}
		concepts[name] = stub
	}
	wrapped := rt.Instrument(concepts)

	for i, src := range scenario.Rules {
		rule := parser.Parse(src)
		if err := rt.Register(rule); err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
	}

	ctx := context.Background()
	result := &Result{Pass: true}

	for i, step := range scenario.Steps {
		input, err := toObject(step.Input)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		if _, err := wrapped[step.Concept].Perform(ctx, step.Op, input); err != nil {
			result.addError("steps[%d]: %s.%s: %v", i, step.Concept, step.Op, err)
		}
	}

	for _, obs := range recorder.Observations() {
		result.Trace = append(result.Trace, TraceEvent{
			Scope:  obs.Scope,
			Action: obs.Record.Ref(),
			Input:  obs.Record.Input,
			Output: obs.Record.Output,
			Seq:    obs.Record.Seq,
		})
	}

	evaluateAssertions(result, scenario.Assertions)
	return result, nil
}

// stub is a deterministic concept built from a scenario definition.
// Perform echoes the input and lays the configured output fields on top;
// Query returns the configured rows verbatim.
type stub struct {
	name    string
	actions map[string]ir.Object
	queries map[string][]ir.Object
}

func newStub(name string, def StubConcept) (*stub, error) {
	s := &stub{
		name:    name,
		actions: make(map[string]ir.Object, len(def.Actions)),
		queries: make(map[string][]ir.Object, len(def.Queries)),
	}
	for op, action := range def.Actions {
		out, err := toObject(action.Output)
		if err != nil {
			return nil, fmt.Errorf("concept %s action %s: %w", name, op, err)
		}
		s.actions[op] = out
	}
	for op, query := range def.Queries {
		rows := make([]ir.Object, 0, len(query.Rows))
		for i, raw := range query.Rows {
			row, err := toObject(raw)
			if err != nil {
				return nil, fmt.Errorf("concept %s query %s row %d: %w", name, op, i, err)
			}
			rows = append(rows, row)
		}
		s.queries[op] = rows
	}
	return s, nil
}

func (s *stub) Perform(_ context.Context, op string, input ir.Object) (ir.Object, error) {
	extra, ok := s.actions[op]
	if !ok {
		return nil, fmt.Errorf("stub %s: unknown action %q", s.name, op)
	}
	out := input.Clone()
	for k, v := range extra {
		out[k] = v
	}
	return out, nil
}

func (s *stub) Query(_ context.Context, op string, _ ir.Object) ([]ir.Object, error) {
	rows, ok := s.queries[op]
	if !ok {
		return nil, fmt.Errorf("stub %s: unknown query %q", s.name, op)
	}
	return rows, nil
}

// toObject converts YAML-decoded values into the runtime's value model.
// Null and fractional floats have no representation there and are
// rejected with an error naming the offending field.
func toObject(raw map[string]interface{}) (ir.Object, error) {
	obj := make(ir.Object, len(raw))
	for key, val := range raw {
		v, err := toValue(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		obj[key] = v
	}
	return obj, nil
}

func toValue(val interface{}) (ir.Value, error) {
	switch v := val.(type) {
	case nil:
		return nil, fmt.Errorf("null values are not representable")
	case string:
		return ir.String(v), nil
	case int:
		return ir.Int(int64(v)), nil
	case int64:
		return ir.Int(v), nil
	case float64:
		if v == float64(int64(v)) {
			return ir.Int(int64(v)), nil
		}
		return nil, fmt.Errorf("fractional numbers are not representable: %v", v)
	case bool:
		return ir.Bool(v), nil
	case []interface{}:
		arr := make(ir.Array, len(v))
		for i, elem := range v {
			e, err := toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]interface{}:
		return toObject(v)
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}
