package ir

import "time"

// ActionRecord is one settled concept-operation completion. Records are
// ephemeral: they live in the engine's per-scope log only long enough to
// correlate multi-clause triggers, plus optionally in the audit trace.
type ActionRecord struct {
	ID      string    // Content-addressed (RecordID)
	Concept string
	Op      string
	Input   Object
	Output  Object
	Seq     int64     // Logical clock, settlement order
	At      time.Time // Informational only, never used for ordering
}

// Ref returns the "Concept.op" form used in logs and diagnostics.
func (r ActionRecord) Ref() string {
	return r.Concept + "." + r.Op
}

// BusinessError returns the reserved error field of the output, if set.
func (r ActionRecord) BusinessError() (Value, bool) {
	if r.Output == nil {
		return nil, false
	}
	v, ok := r.Output[ErrorField]
	return v, ok
}
