package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a declarative conformance test. It names the rules to
// register, the stub concepts to instrument, the calls to perform, and
// the assertions to evaluate over the observed trace.
type Scenario struct {
	// Name identifies the scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what behavior the scenario pins down.
	Description string `yaml:"description"`

	// Rules holds rule source text, registered in order.
	Rules []string `yaml:"rules"`

	// Concepts maps concept names to stub definitions.
	Concepts map[string]StubConcept `yaml:"concepts"`

	// Steps are the top-level instrumented calls, performed in order.
	// Each step opens (and closes) its own dispatch scope.
	Steps []Step `yaml:"steps"`

	// Assertions validate the observed completion trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// StubConcept configures a deterministic stand-in concept.
type StubConcept struct {
	// Actions maps mutating operation names to their canned behavior.
	Actions map[string]StubAction `yaml:"actions,omitempty"`

	// Queries maps read operation names (with the "_" prefix) to the
	// rows they return.
	Queries map[string]StubQuery `yaml:"queries,omitempty"`
}

// StubAction is the canned behavior of one mutating operation. The stub
// echoes the call's input and lays the configured output fields on top.
type StubAction struct {
	Output map[string]interface{} `yaml:"output,omitempty"`
}

// StubQuery is the canned row set of one read operation.
type StubQuery struct {
	Rows []map[string]interface{} `yaml:"rows,omitempty"`
}

// Step is one top-level call into an instrumented concept.
type Step struct {
	Concept string                 `yaml:"concept"`
	Op      string                 `yaml:"op"`
	Input   map[string]interface{} `yaml:"input"`
}

// Assertion validates the observed trace.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count.
	Type string `yaml:"type"`

	// Action is the "Concept.op" reference (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Input holds expected input fields (trace_contains). Subset match:
	// only the named fields are compared.
	Input map[string]interface{} `yaml:"input,omitempty"`

	// Actions is the expected relative order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`
}

const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario file. Unknown YAML fields are
// rejected so typos fail loudly instead of silently weakening a test.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Concepts) == 0 {
		return fmt.Errorf("concepts map is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if step.Concept == "" || step.Op == "" {
			return fmt.Errorf("steps[%d]: concept and op are required", i)
		}
		if _, ok := s.Concepts[step.Concept]; !ok {
			return fmt.Errorf("steps[%d]: concept %q is not defined", i, step.Concept)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) < 2 {
			return fmt.Errorf("assertions[%d]: trace_order needs at least two actions", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
