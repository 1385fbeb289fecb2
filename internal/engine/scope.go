package engine

import "github.com/weftlabs/weft/internal/ir"

// dispatchScope is the correlation window for one outer instrumented
// call: the rolling record log multi-clause triggers join against, plus
// the termination bookkeeping for the rule chains that call causes.
//
// A scope is created when a completion arrives with no scope active and
// torn down when the outermost completion's processing returns. Nothing
// in it survives the scope; there is no durable partial-match state.
type dispatchScope struct {
	token   string
	records []ir.ActionRecord

	// fired maps ruleName+":"+bindingHash to suppress a rule refiring
	// the identical binding within this scope (cycle breaker).
	fired map[string]bool

	depth int  // current recursion depth of completion processing
	steps int  // total completions processed in this scope
	dead  bool // set once a limit trips; suppresses further evaluation
}

func newDispatchScope(token string) *dispatchScope {
	return &dispatchScope{
		token: token,
		fired: make(map[string]bool),
	}
}

// append logs a settled completion for correlation within this scope.
func (s *dispatchScope) append(rec ir.ActionRecord) {
	s.records = append(s.records, rec)
}

// wouldRefire reports whether the rule already fired this exact binding
// in this scope.
func (s *dispatchScope) wouldRefire(rule, bindingHash string) bool {
	return s.fired[rule+":"+bindingHash]
}

// markFired records a (rule, binding) firing for cycle suppression.
func (s *dispatchScope) markFired(rule, bindingHash string) {
	s.fired[rule+":"+bindingHash] = true
}
