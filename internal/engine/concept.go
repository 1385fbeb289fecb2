package engine

import (
	"context"

	"github.com/weftlabs/weft/internal/ir"
)

// Concept is the contract the runtime consumes. A concept is an
// independent, self-contained stateful service; it exposes mutating
// operations and side-effect-free read operations and never depends on
// other concepts.
//
// Perform runs a mutating operation: one input object in, one output
// object out. An output carrying the reserved "error" field denotes a
// business failure; a non-nil Go error denotes an infrastructure failure
// (no result was determined, so no completion is emitted for it).
//
// Query runs a read operation (name carries the "_" prefix): one input
// object in, zero-or-more result rows out. Read operations must not
// mutate state - contractual on the concept, not enforced here - and are
// safely re-invocable.
type Concept interface {
	Perform(ctx context.Context, op string, input ir.Object) (ir.Object, error)
	Query(ctx context.Context, op string, input ir.Object) ([]ir.Object, error)
}

// Observer receives every settled completion the runtime emits, including
// those of query steps. Used to attach an audit trace without coupling the
// engine to storage.
type Observer interface {
	Observe(rec ir.ActionRecord, scopeToken string)
}

// ScopeTokenGenerator mints correlation tokens for outer dispatch scopes.
// Implemented by UUIDv7Generator (production) and testutil.FixedTokens.
type ScopeTokenGenerator interface {
	Generate() string
}
