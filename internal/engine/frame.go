package engine

import "github.com/weftlabs/weft/internal/ir"

// Frame is one consistent variable-to-value binding produced while
// matching a rule. Frames are immutable: every refinement produces new
// Frames, never mutates existing ones.
type Frame struct {
	bindings map[*ir.Token]ir.Value
}

// EmptyFrame returns a frame with no bindings.
func EmptyFrame() *Frame {
	return &Frame{bindings: map[*ir.Token]ir.Value{}}
}

// Get returns the value bound to a token.
func (f *Frame) Get(t *ir.Token) (ir.Value, bool) {
	v, ok := f.bindings[t]
	return v, ok
}

// Len returns the number of bound tokens.
func (f *Frame) Len() int {
	return len(f.bindings)
}

// Merge returns a new frame extending f with the given bindings.
// Returns ok=false if any token is already bound to an unequal value -
// the join condition: a token appearing in multiple clauses must carry
// equal values in any retained frame.
func (f *Frame) Merge(more map[*ir.Token]ir.Value) (*Frame, bool) {
	for t, v := range more {
		if existing, ok := f.bindings[t]; ok && !ir.Equal(existing, v) {
			return nil, false
		}
	}

	merged := make(map[*ir.Token]ir.Value, len(f.bindings)+len(more))
	for t, v := range f.bindings {
		merged[t] = v
	}
	for t, v := range more {
		merged[t] = v
	}
	return &Frame{bindings: merged}, true
}

// Bindings returns the frame's bindings keyed by variable display name.
// Used for binding hashes and log output.
func (f *Frame) Bindings() ir.Object {
	obj := make(ir.Object, len(f.bindings))
	for t, v := range f.bindings {
		obj[t.Name()] = v
	}
	return obj
}

// FrameSet is an ordered collection of frames produced while matching one
// rule. Order is significant: consequents fire in frame order, with the
// first trigger clause varying slowest.
type FrameSet []*Frame

// Join cross-combines every frame with every candidate binding set,
// keeping only unions whose shared tokens agree. Frame order is
// preserved on the outside, candidate order on the inside.
func (s FrameSet) Join(candidates []map[*ir.Token]ir.Value) FrameSet {
	var out FrameSet
	for _, f := range s {
		for _, c := range candidates {
			if merged, ok := f.Merge(c); ok {
				out = append(out, merged)
			}
		}
	}
	return out
}

// Filter drops frames failing the predicate, retaining all others
// unchanged.
func (s FrameSet) Filter(keep func(*Frame) bool) FrameSet {
	var out FrameSet
	for _, f := range s {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// Expand replaces each frame with zero-or-more frames. A frame expanding
// to nothing is dropped; this is how query steps fan out or prune.
func (s FrameSet) Expand(fn func(*Frame) []*Frame) FrameSet {
	var out FrameSet
	for _, f := range s {
		out = append(out, fn(f)...)
	}
	return out
}
