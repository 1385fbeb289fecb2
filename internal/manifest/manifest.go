// Package manifest compiles CUE concept manifests and vets rule files
// against them.
//
// A manifest declares what a concept exposes, so rule files can be
// checked statically before a runtime ever instruments anything:
//
//	concept: UrlShortening: {
//		purpose: "map short urls to targets"
//		action: register: args: {
//			shortUrlSuffix: string
//			shortUrlBase:   string
//			targetUrl:      string
//		}
//		action: delete: args: shortUrl: string
//		query: lookup: args: shortUrl: string
//	}
//
// Query names are declared without the read prefix ("lookup", not
// "_lookup"): a leading underscore marks a hidden field in CUE. The
// prefix is implied; vetting strips it from rule operations before
// comparing.
package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Operation is one declared action or query.
type Operation struct {
	Name string
	Args []string
}

// Manifest is one compiled concept declaration.
type Manifest struct {
	Name    string
	Purpose string
	Actions []Operation
	Queries []Operation
}

// Action returns the declared mutating operation by name.
func (m *Manifest) Action(name string) (Operation, bool) {
	return findOp(m.Actions, name)
}

// Query returns the declared read operation by bare name (no prefix).
func (m *Manifest) Query(name string) (Operation, bool) {
	return findOp(m.Queries, name)
}

func findOp(ops []Operation, name string) (Operation, bool) {
	for _, op := range ops {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// CompileSource compiles CUE source holding a top-level "concept" struct
// and returns one Manifest per declared concept, in declaration order.
func CompileSource(source string) ([]*Manifest, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(source)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	root := v.LookupPath(cue.ParsePath("concept"))
	if !root.Exists() {
		return nil, &CompileError{
			Field:   "concept",
			Message: "no concept declarations found",
			Pos:     v.Pos(),
		}
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var manifests []*Manifest
	for iter.Next() {
		m, err := compileConcept(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	if len(manifests) == 0 {
		return nil, &CompileError{
			Field:   "concept",
			Message: "no concept declarations found",
			Pos:     root.Pos(),
		}
	}
	return manifests, nil
}

func compileConcept(name string, v cue.Value) (*Manifest, error) {
	m := &Manifest{Name: name}

	purposeVal := v.LookupPath(cue.ParsePath("purpose"))
	if !purposeVal.Exists() {
		return nil, &CompileError{
			Field:   name + ".purpose",
			Message: "purpose is required",
			Pos:     v.Pos(),
		}
	}
	purpose, err := purposeVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	m.Purpose = purpose

	m.Actions, err = parseOperations(v, "action")
	if err != nil {
		return nil, err
	}
	if len(m.Actions) == 0 {
		return nil, &CompileError{
			Field:   name + ".action",
			Message: "at least one action is required",
			Pos:     v.Pos(),
		}
	}

	// Queries are optional; a concept may be write-only.
	m.Queries, err = parseOperations(v, "query")
	if err != nil {
		return nil, err
	}

	return m, nil
}

func parseOperations(v cue.Value, kind string) ([]Operation, error) {
	root := v.LookupPath(cue.ParsePath(kind))
	if !root.Exists() {
		return nil, nil
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var ops []Operation
	for iter.Next() {
		op := Operation{Name: iter.Label()}

		argsVal := iter.Value().LookupPath(cue.ParsePath("args"))
		if argsVal.Exists() {
			argsIter, err := argsVal.Fields()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for argsIter.Next() {
				if err := checkArgType(argsIter.Value()); err != nil {
					return nil, err
				}
				op.Args = append(op.Args, argsIter.Label())
			}
		}

		ops = append(ops, op)
	}
	return ops, nil
}

// checkArgType rejects argument types the value model cannot carry.
// Floats in particular are forbidden; everything is int64 or below.
func checkArgType(v cue.Value) error {
	switch v.IncompleteKind() {
	case cue.StringKind, cue.IntKind, cue.BoolKind, cue.ListKind, cue.StructKind:
		return nil
	case cue.FloatKind, cue.NumberKind:
		return &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError is a manifest compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
