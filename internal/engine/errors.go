package engine

import (
	"errors"
	"fmt"
)

// ConfigErrorCode categorizes registration-time configuration errors.
// These are surfaced eagerly because they silently change which
// completions are observable if left undetected.
type ConfigErrorCode string

const (
	// ErrCodeDuplicateRule indicates two rules share a name.
	ErrCodeDuplicateRule ConfigErrorCode = "DUPLICATE_RULE"

	// ErrCodeUnnamedRule indicates a rule with an empty name.
	ErrCodeUnnamedRule ConfigErrorCode = "UNNAMED_RULE"

	// ErrCodeNoTrigger indicates a rule without trigger clauses.
	ErrCodeNoTrigger ConfigErrorCode = "NO_TRIGGER"

	// ErrCodeUnknownConcept indicates a rule naming a concept that was
	// never instrumented.
	ErrCodeUnknownConcept ConfigErrorCode = "UNKNOWN_CONCEPT"

	// ErrCodeReservedOp indicates a read operation used where a mutating
	// operation is expected (trigger or consequent position).
	ErrCodeReservedOp ConfigErrorCode = "RESERVED_OP"
)

// ConfigError is a registration-time configuration error.
type ConfigError struct {
	Code    ConfigErrorCode
	Rule    string
	Concept string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Concept != "" {
		return fmt.Sprintf("%s: rule %q: %s (concept %q)", e.Code, e.Rule, e.Message, e.Concept)
	}
	return fmt.Sprintf("%s: rule %q: %s", e.Code, e.Rule, e.Message)
}

// IsConfigError reports whether err is a ConfigError, unwrapping as needed.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// DispatchLimitError is recorded when a dispatch scope exceeds the
// recursion depth cap or the step quota. The affected completion's rule
// evaluation is skipped; the triggering caller is never failed by it.
type DispatchLimitError struct {
	ScopeToken string
	Depth      int
	Steps      int
	Limit      int
	Kind       string // "depth" or "steps"
}

// Error implements the error interface.
func (e *DispatchLimitError) Error() string {
	if e.Kind == "depth" {
		return fmt.Sprintf("scope %s exceeded dispatch depth: %d > %d", e.ScopeToken, e.Depth, e.Limit)
	}
	return fmt.Sprintf("scope %s exceeded step quota: %d > %d", e.ScopeToken, e.Steps, e.Limit)
}
