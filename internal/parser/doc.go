// Package parser converts declarative synchronization rule text into
// structured ir.Rule values.
//
// The parser is deliberately tolerant: partially written rule text must stay
// usable in editors and pipelines. Malformed individual lines are skipped
// rather than failing the whole rule, a missing or garbled name yields an
// empty-name rule, and degenerate input (no clauses at all) yields a named
// rule with empty clause lists so callers can fall back to a template.
// Acceptance policy belongs to the caller (the engine's registry), not here.
package parser
