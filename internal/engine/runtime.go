package engine

import (
	"fmt"
	"log/slog"

	"github.com/weftlabs/weft/internal/ir"
)

// DefaultMaxDepth bounds the recursion depth of rule chains: a consequent
// completion nested this many levels below the outer call stops
// triggering further rules.
const DefaultMaxDepth = 100

// DefaultMaxSteps bounds the total completions processed within one
// dispatch scope, catching linear explosions the depth cap misses.
const DefaultMaxSteps = 1000

// Runtime owns the rule registry, the instrumented concepts, and the
// per-scope completion log. It is an explicit context object, not an
// ambient singleton: independent Runtimes coexist freely (tests rely on
// this), each created when its concepts are instrumented and rules
// registered, torn down by dropping it.
//
// INVARIANTS:
//   - registry order never changes after registration (rules are
//     evaluated in registration order; only side-effect order depends on
//     it, never which frames survive)
//   - the runtime touches concept state only through declared operations
//
// Concurrency: cooperative single-threaded. Completion handling runs on
// the caller's goroutine; no two completion-handling passes run
// concurrently. The Runtime is NOT safe for concurrent instrumented
// calls from multiple goroutines.
type Runtime struct {
	rules    []*ir.Rule
	names    map[string]bool
	concepts map[string]Concept // instrumented wrappers
	inner    map[string]Concept // underlying concepts

	clock    *Clock
	scopeGen ScopeTokenGenerator
	logger   *slog.Logger
	observer Observer

	maxDepth int
	maxSteps int

	scope *dispatchScope // active dispatch scope, nil when idle
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithMaxDepth sets the dispatch recursion depth cap.
func WithMaxDepth(n int) Option {
	return func(rt *Runtime) {
		rt.maxDepth = n
	}
}

// WithMaxSteps sets the per-scope step quota.
func WithMaxSteps(n int) Option {
	return func(rt *Runtime) {
		rt.maxSteps = n
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// WithObserver attaches a completion observer (e.g. the audit trace).
func WithObserver(obs Observer) Option {
	return func(rt *Runtime) {
		rt.observer = obs
	}
}

// WithScopeTokens sets the scope token generator. Defaults to UUIDv7.
func WithScopeTokens(gen ScopeTokenGenerator) Option {
	return func(rt *Runtime) {
		rt.scopeGen = gen
	}
}

// New creates an empty Runtime. Instrument concepts first, then register
// rules; registration validates rules against the instrumented set.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		names:    make(map[string]bool),
		concepts: make(map[string]Concept),
		inner:    make(map[string]Concept),
		clock:    NewClock(),
		scopeGen: UUIDv7Generator{},
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Instrument wraps a name-to-concept mapping so every settled operation
// becomes an observable completion, and returns the wrapped mapping with
// identical operations. Callers must use the wrapped concepts; invoking
// an underlying concept directly bypasses synchronization.
//
// Instrumenting the same name again replaces the previous concept.
func (rt *Runtime) Instrument(concepts map[string]Concept) map[string]Concept {
	wrapped := make(map[string]Concept, len(concepts))
	for name, c := range concepts {
		w := &instrumented{rt: rt, name: name, inner: c}
		rt.inner[name] = c
		rt.concepts[name] = w
		wrapped[name] = w
	}
	return wrapped
}

// Concept returns the instrumented wrapper for a concept name.
func (rt *Runtime) Concept(name string) (Concept, bool) {
	c, ok := rt.concepts[name]
	return c, ok
}

// Register appends a rule to the registry after validating it against the
// instrumented concepts. The registry is append-only; registration order
// is evaluation order.
func (rt *Runtime) Register(rule *ir.Rule) error {
	if rule.Name == "" {
		return &ConfigError{Code: ErrCodeUnnamedRule, Message: "rule has no name"}
	}
	if rt.names[rule.Name] {
		return &ConfigError{Code: ErrCodeDuplicateRule, Rule: rule.Name, Message: "rule name already registered"}
	}
	if len(rule.When) == 0 {
		return &ConfigError{Code: ErrCodeNoTrigger, Rule: rule.Name, Message: "rule has no trigger clauses"}
	}

	for _, concept := range rule.Concepts() {
		if _, ok := rt.concepts[concept]; !ok {
			return &ConfigError{
				Code:    ErrCodeUnknownConcept,
				Rule:    rule.Name,
				Concept: concept,
				Message: "rule names a concept that was never instrumented",
			}
		}
	}

	// Read operations never broadcast completions, so they can neither
	// trigger a rule nor stand in for a mutating consequent.
	for _, p := range rule.When {
		if ir.IsQueryOp(p.Op) {
			return &ConfigError{
				Code:    ErrCodeReservedOp,
				Rule:    rule.Name,
				Concept: p.Concept,
				Message: fmt.Sprintf("read operation %q cannot be a trigger", p.Ref()),
			}
		}
	}
	for _, p := range rule.Then {
		if ir.IsQueryOp(p.Op) {
			return &ConfigError{
				Code:    ErrCodeReservedOp,
				Rule:    rule.Name,
				Concept: p.Concept,
				Message: fmt.Sprintf("read operation %q cannot be a consequent", p.Ref()),
			}
		}
	}

	rt.names[rule.Name] = true
	rt.rules = append(rt.rules, rule)

	rt.logger.Debug("rule registered",
		"rule", rule.Name,
		"triggers", len(rule.When),
		"refinements", len(rule.Where),
		"consequents", len(rule.Then),
	)
	return nil
}

// RegisterAll registers rules in order, stopping at the first error.
func (rt *Runtime) RegisterAll(rules ...*ir.Rule) error {
	for _, rule := range rules {
		if err := rt.Register(rule); err != nil {
			return err
		}
	}
	return nil
}

// Rules returns the registered rules in registration order.
// Used for introspection and tests.
func (rt *Runtime) Rules() []*ir.Rule {
	return rt.rules
}

// Clock returns the runtime's logical clock.
func (rt *Runtime) Clock() *Clock {
	return rt.clock
}
