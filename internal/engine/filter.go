package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/weftlabs/weft/internal/ir"
)

// evalFilter evaluates a filter step's boolean expression against one
// frame. An evaluation error (unknown variable, unsupported expression,
// incomparable types) is reported to the caller, which drops only the
// affected frame.
//
// Supported expression forms:
//   - "operand OP operand" with OP one of == != < <= > >=
//   - conjunctions joined by "and" / "AND" / "&&"
//
// Operands are bound variable names or literals (quoted strings,
// integers, true/false).
func evalFilter(step ir.FilterStep, frame *Frame) (bool, error) {
	byName := make(map[string]*ir.Token, len(step.Vars))
	for _, t := range step.Vars {
		byName[t.Name()] = t
	}

	for _, clause := range splitConjunction(step.Expr) {
		ok, err := evalComparison(clause, byName, frame)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// splitConjunction splits an expression on top-level "and"/"AND"/"&&".
func splitConjunction(expr string) []string {
	expr = strings.TrimSpace(expr)

	var parts []string
	remaining := expr
	for {
		idx, width := findConjunction(remaining)
		if idx < 0 {
			parts = append(parts, strings.TrimSpace(remaining))
			return parts
		}
		parts = append(parts, strings.TrimSpace(remaining[:idx]))
		remaining = remaining[idx+width:]
	}
}

func findConjunction(s string) (idx, width int) {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '&' && i+1 < len(s) && s[i+1] == '&':
			return i, 2
		case c == ' ':
			rest := s[i:]
			if strings.HasPrefix(rest, " and ") || strings.HasPrefix(rest, " AND ") {
				return i, 5
			}
		}
	}
	return -1, 0
}

var comparisonOps = []string{"==", "!=", "<=", ">=", "<", ">"}

// evalComparison evaluates a single comparison clause.
func evalComparison(clause string, vars map[string]*ir.Token, frame *Frame) (bool, error) {
	op, lhs, rhs, ok := splitComparison(clause)
	if !ok {
		return false, fmt.Errorf("unsupported filter expression: %q", clause)
	}

	left, err := resolveOperand(lhs, vars, frame)
	if err != nil {
		return false, err
	}
	right, err := resolveOperand(rhs, vars, frame)
	if err != nil {
		return false, err
	}

	switch op {
	case "==":
		return ir.Equal(left, right), nil
	case "!=":
		return !ir.Equal(left, right), nil
	}

	cmp, err := order(left, right)
	if err != nil {
		return false, fmt.Errorf("%q: %w", clause, err)
	}
	switch op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

// splitComparison finds the comparison operator outside quoted literals.
func splitComparison(clause string) (op, lhs, rhs string, ok bool) {
	var quote byte
	for i := 0; i < len(clause); i++ {
		c := clause[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		default:
			for _, cand := range comparisonOps {
				if strings.HasPrefix(clause[i:], cand) {
					lhs = strings.TrimSpace(clause[:i])
					rhs = strings.TrimSpace(clause[i+len(cand):])
					return cand, lhs, rhs, lhs != "" && rhs != ""
				}
			}
		}
	}
	return "", "", "", false
}

// resolveOperand resolves an operand: a known variable name reads the
// frame; anything else parses as a literal.
func resolveOperand(operand string, vars map[string]*ir.Token, frame *Frame) (ir.Value, error) {
	if t, ok := vars[operand]; ok {
		v, bound := frame.Get(t)
		if !bound {
			return nil, fmt.Errorf("variable %q not bound", operand)
		}
		return v, nil
	}

	if len(operand) >= 2 {
		if (operand[0] == '"' && operand[len(operand)-1] == '"') ||
			(operand[0] == '\'' && operand[len(operand)-1] == '\'') {
			if operand[0] == '"' {
				if unquoted, err := strconv.Unquote(operand); err == nil {
					return ir.String(unquoted), nil
				}
			}
			return ir.String(operand[1 : len(operand)-1]), nil
		}
	}
	if n, err := strconv.ParseInt(operand, 10, 64); err == nil {
		return ir.Int(n), nil
	}
	if operand == "true" {
		return ir.Bool(true), nil
	}
	if operand == "false" {
		return ir.Bool(false), nil
	}

	return nil, fmt.Errorf("unresolvable operand %q", operand)
}

// order compares two values for the relational operators.
// Ints compare numerically, strings lexically; anything else is an error.
func order(a, b ir.Value) (int, error) {
	switch av := a.(type) {
	case ir.Int:
		bv, ok := b.(ir.Int)
		if !ok {
			return 0, fmt.Errorf("cannot order %T against %T", a, b)
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}
	case ir.String:
		bv, ok := b.(ir.String)
		if !ok {
			return 0, fmt.Errorf("cannot order %T against %T", a, b)
		}
		return strings.Compare(string(av), string(bv)), nil
	default:
		return 0, fmt.Errorf("type %T does not support ordering", a)
	}
}
