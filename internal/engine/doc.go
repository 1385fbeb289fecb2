// Package engine implements the weft synchronization runtime.
//
// The runtime is the heart of weft - it observes concept-operation
// completions, matches registered synchronization rules, runs refinement
// steps, and dispatches consequent operations.
//
// ARCHITECTURE:
//
// Cooperative Single-Threaded Dispatch:
// The runtime processes completions on the caller's goroutine for
// deterministic behavior. This ensures:
// - Predictable rule evaluation order (registration order)
// - Depth-first chaining that mirrors ordinary nested-call semantics
// - Simple reasoning about causality
//
// Completion Processing Flow:
//  1. A wrapped concept operation settles; the instrumentation layer emits
//     exactly one completion record to the runtime
//  2. The record is appended to the current dispatch scope's log
//  3. Rules with a trigger clause matching the record's operation are
//     evaluated in registration order; every clause of a multi-clause
//     trigger joins against the scope log, so the rule fires whichever
//     clause settles last
//  4. Refinement steps narrow or fan out the frame set
//  5. Consequents are invoked once per surviving frame; each invocation
//     re-enters the runtime depth-first before the dispatch loop advances
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// All records are stamped with a monotonic seq counter from Clock.Next().
// NEVER use wall-clock timestamps for ordering.
//
// Correlation Scope:
// Multi-clause triggers correlate only within one outer dispatch scope -
// the records logged between the outermost instrumented call's settlement
// and the end of the rule processing it transitively causes. The log is
// discarded when the outermost call returns; there is no durable partial
// match state.
//
// Termination:
// Rules that retrigger each other are bounded two ways: a per-scope
// (rule, binding-hash) cycle check suppresses exact refirings, and a
// recursion depth cap plus a per-scope step quota catch linear explosions.
package engine
