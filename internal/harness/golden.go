package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/weftlabs/weft/internal/ir"
)

// RunWithGolden executes a scenario and compares its trace against the
// golden file testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// The snapshot uses canonical JSON, so field order and integer formatting
// are stable across runs and platforms.
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("run scenario %s: %v", scenario.Name, err)
	}

	trace := make(ir.Array, len(result.Trace))
	for i, event := range result.Trace {
		trace[i] = ir.Object{
			"scope":  ir.String(event.Scope),
			"action": ir.String(event.Action),
			"input":  event.Input,
			"output": event.Output,
			"seq":    ir.Int(event.Seq),
		}
	}
	snapshot, err := ir.MarshalCanonical(ir.Object{
		"scenario": ir.String(scenario.Name),
		"trace":    trace,
	})
	if err != nil {
		t.Fatalf("marshal trace snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)

	return result
}
