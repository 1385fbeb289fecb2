// Package testutil provides deterministic stand-ins for the runtime's
// nondeterministic collaborators, so tests can assert on exact tokens
// and observed completions.
package testutil

import (
	"fmt"
	"sync"

	"github.com/weftlabs/weft/internal/ir"
)

// FixedTokens generates sequential scope tokens ("scope-0001",
// "scope-0002", ...) instead of UUIDs.
type FixedTokens struct {
	mu   sync.Mutex
	next int
}

// Generate returns the next sequential token.
func (g *FixedTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("scope-%04d", g.next)
}

// Observation is one completion as seen by a Recorder.
type Observation struct {
	Record ir.ActionRecord
	Scope  string
}

// Recorder is an engine.Observer that retains every observation.
type Recorder struct {
	mu           sync.Mutex
	observations []Observation
}

// Observe appends the completion to the recorder's log.
func (r *Recorder) Observe(rec ir.ActionRecord, scopeToken string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, Observation{Record: rec, Scope: scopeToken})
}

// Observations returns a copy of the observed completions, in order.
func (r *Recorder) Observations() []Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Observation, len(r.observations))
	copy(out, r.observations)
	return out
}
