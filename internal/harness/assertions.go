package harness

import (
	"github.com/weftlabs/weft/internal/ir"
)

// evaluateAssertions checks every assertion against the result's trace,
// recording one error per failed assertion.
func evaluateAssertions(result *Result, assertions []Assertion) {
	for i, a := range assertions {
		switch a.Type {
		case AssertTraceContains:
			assertTraceContains(result, i, a)
		case AssertTraceOrder:
			assertTraceOrder(result, i, a)
		case AssertTraceCount:
			assertTraceCount(result, i, a)
		}
	}
}

func assertTraceContains(result *Result, index int, a Assertion) {
	want, err := toObject(a.Input)
	if err != nil {
		result.addError("assertions[%d]: %v", index, err)
		return
	}
	for _, event := range result.Trace {
		if event.Action == a.Action && inputMatches(event.Input, want) {
			return
		}
	}
	result.addError("assertions[%d]: trace has no %s completion matching the expected input", index, a.Action)
}

// inputMatches reports whether every expected field is present in the
// observed input with an equal value. Fields the assertion does not name
// are ignored.
func inputMatches(got, want ir.Object) bool {
	for key, wantVal := range want {
		gotVal, ok := got[key]
		if !ok || !ir.Equal(gotVal, wantVal) {
			return false
		}
	}
	return true
}

func assertTraceOrder(result *Result, index int, a Assertion) {
	next := 0
	for _, event := range result.Trace {
		if next < len(a.Actions) && event.Action == a.Actions[next] {
			next++
		}
	}
	if next < len(a.Actions) {
		result.addError("assertions[%d]: trace order broken, %s never settled after its predecessors", index, a.Actions[next])
	}
}

func assertTraceCount(result *Result, index int, a Assertion) {
	count := 0
	for _, event := range result.Trace {
		if event.Action == a.Action {
			count++
		}
	}
	if count != a.Count {
		result.addError("assertions[%d]: %s settled %d time(s), expected %d", index, a.Action, count, a.Count)
	}
}
