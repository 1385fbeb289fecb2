package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/weftlabs/weft/internal/ir"
)

// varNamePattern matches a bare identifier treated as a variable reference.
// Anything else on the value side of a field is a literal.
var varNamePattern = regexp.MustCompile(`^[a-z][A-Za-z0-9_]*$`)

// identPattern matches candidate variable names inside filter expressions.
var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// filterKeywords are identifiers never treated as variable references
// inside a filter expression.
var filterKeywords = map[string]bool{
	"true":  true,
	"false": true,
	"and":   true,
	"or":    true,
	"not":   true,
}

type section int

const (
	sectionNone section = iota
	sectionWhen
	sectionWhere
	sectionThen
)

// Parse converts rule source text into a structured Rule.
//
// Recognized shape (see the repository README for the full grammar):
//
//	sync <Name>
//
//	when
//	    <Concept>.<op> (<field>: <value|variable>, ...) : (<field>: <variable>, ...)
//
//	where
//	    <query step or boolean expression>
//
//	then
//	    <Concept>.<op> (<field>: <value|variable>, ...)
//
// Inline comments start with '#' and run to end of line. The section
// keywords are recognized only as the sole content of a line. Parse never
// fails: bad lines are skipped and missing sections yield empty lists.
func Parse(src string) *ir.Rule {
	rule := &ir.Rule{Tokens: ir.NewTokenSource()}

	lines := strings.Split(stripWrapper(src), "\n")
	mode := sectionNone

	for _, raw := range lines {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}

		switch line {
		case "when":
			mode = sectionWhen
			continue
		case "where":
			mode = sectionWhere
			continue
		case "then":
			mode = sectionThen
			continue
		}

		if name, ok := strings.CutPrefix(line, "sync "); ok && mode == sectionNone {
			rule.Name = strings.TrimSpace(name)
			continue
		}

		switch mode {
		case sectionWhen:
			if p, ok := parseClause(line, rule.Tokens); ok {
				rule.When = append(rule.When, p)
			}
		case sectionThen:
			if p, ok := parseClause(line, rule.Tokens); ok {
				rule.Then = append(rule.Then, p)
			}
		case sectionWhere:
			rule.Where = append(rule.Where, parseRefinement(line, rule.Tokens))
		default:
			// Text before any section header that is not a sync line.
			// Skipped: partially written specifications stay usable.
		}
	}

	return rule
}

// stripWrapper removes a wrapping delimiter around the whole rule text:
// a fenced code block or a single pair of backticks/quotes.
func stripWrapper(src string) string {
	s := strings.TrimSpace(src)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop an info string on the opening fence
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			first := strings.TrimSpace(s[:idx])
			if first != "" && !strings.ContainsAny(first, " (") {
				s = s[idx+1:]
			}
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		return s
	}

	for _, q := range []string{"`", `"""`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) > 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}

	return s
}

// stripComment discards a '#' comment to end of line, ignoring '#' inside
// quoted literals.
func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return line[:i]
		}
	}
	return line
}

// parseClause parses one when/then line of the form
// Concept.op (field: value, ...) : (field: variable, ...).
// The output group is optional. Returns ok=false for lines that do not
// parse; callers skip those.
func parseClause(line string, tokens *ir.TokenSource) (ir.ActionPattern, bool) {
	open := strings.IndexByte(line, '(')
	if open < 0 {
		return ir.ActionPattern{}, false
	}

	concept, op, ok := splitHead(line[:open])
	if !ok {
		return ir.ActionPattern{}, false
	}

	inBody, rest, ok := readGroup(line[open:])
	if !ok {
		return ir.ActionPattern{}, false
	}

	pattern := ir.ActionPattern{
		Concept: concept,
		Op:      op,
		In:      make(map[string]ir.Term),
		Out:     make(map[string]*ir.Token),
	}

	for _, field := range splitTopLevel(inBody) {
		name, value, ok := splitField(field)
		if !ok {
			// Punning shorthand: a bare identifier stands for
			// "name: name" with the value a variable reference.
			pun := strings.TrimSpace(field)
			if !varNamePattern.MatchString(pun) {
				return ir.ActionPattern{}, false
			}
			name, value = pun, pun
		}
		pattern.In[name] = parseTerm(value, tokens)
		pattern.InOrder = append(pattern.InOrder, name)
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return pattern, true
	}

	// An output group follows ": (...)"
	if !strings.HasPrefix(rest, ":") {
		return ir.ActionPattern{}, false
	}
	rest = strings.TrimSpace(rest[1:])

	outBody, tail, ok := readGroup(rest)
	if !ok || strings.TrimSpace(tail) != "" {
		return ir.ActionPattern{}, false
	}

	for _, field := range splitTopLevel(outBody) {
		name, value, ok := splitField(field)
		if !ok {
			pun := strings.TrimSpace(field)
			if !varNamePattern.MatchString(pun) {
				return ir.ActionPattern{}, false
			}
			name, value = pun, pun
		}
		// Output patterns are capture-only: the value must be a bare
		// variable name.
		if !varNamePattern.MatchString(value) {
			return ir.ActionPattern{}, false
		}
		pattern.Out[name] = tokens.Intern(value)
		pattern.OutOrder = append(pattern.OutOrder, name)
	}

	return pattern, true
}

// splitHead splits "Concept.operation" into its parts.
func splitHead(head string) (concept, op string, ok bool) {
	head = strings.TrimSpace(head)
	dot := strings.IndexByte(head, '.')
	if dot <= 0 || dot == len(head)-1 {
		return "", "", false
	}
	concept = head[:dot]
	op = head[dot+1:]
	if strings.ContainsAny(concept, " \t") || strings.ContainsAny(op, " \t") {
		return "", "", false
	}
	return concept, op, true
}

// readGroup reads a balanced parenthesized group from the start of s,
// returning the group body and the remainder after the closing paren.
// Quote-aware so parens inside string literals do not count.
func readGroup(s string) (body, rest string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return "", "", false
	}

	depth := 0
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
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return s[1:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}

// splitTopLevel splits a group body on top-level commas. Commas nested in
// parens, brackets, braces, or quoted literals must not split.
func splitTopLevel(body string) []string {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}

	var parts []string
	depth := 0
	var quote byte
	start := 0

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, body[start:i])
			start = i + 1
		}
	}
	parts = append(parts, body[start:])

	return parts
}

// splitField splits "name: value" on the first colon outside quotes.
func splitField(field string) (name, value string, ok bool) {
	var quote byte
	for i := 0; i < len(field); i++ {
		c := field[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ':':
			name = strings.TrimSpace(field[:i])
			value = strings.TrimSpace(field[i+1:])
			return name, value, name != "" && value != ""
		}
	}
	return "", "", false
}

// parseTerm classifies a field value: a bare identifier matching
// [a-z][A-Za-z0-9_]* is a variable reference, anything else a literal.
func parseTerm(value string, tokens *ir.TokenSource) ir.Term {
	if varNamePattern.MatchString(value) && value != "true" && value != "false" {
		return ir.Bind(tokens.Intern(value))
	}
	return ir.Lit(parseLiteral(value))
}

// parseLiteral converts literal source text into a Value.
// Quoted strings are unquoted; integers and booleans get native types;
// everything else is kept verbatim as a string.
func parseLiteral(value string) ir.Value {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			inner := value[1 : len(value)-1]
			if value[0] == '"' {
				if unquoted, err := strconv.Unquote(value); err == nil {
					return ir.String(unquoted)
				}
			}
			return ir.String(inner)
		}
	}

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return ir.Int(n)
	}
	if value == "true" {
		return ir.Bool(true)
	}
	if value == "false" {
		return ir.Bool(false)
	}

	return ir.String(value)
}

// parseRefinement parses one where line. A line in clause form whose
// operation carries the read prefix becomes a query step; anything else is
// a filter expression with its referenced variable names recorded.
func parseRefinement(line string, tokens *ir.TokenSource) ir.RefinementStep {
	if p, ok := parseClause(line, tokens); ok && ir.IsQueryOp(p.Op) {
		return ir.QueryStep{
			Concept:   p.Concept,
			Op:        p.Op,
			In:        p.In,
			InOrder:   p.InOrder,
			Bind:      p.Out,
			BindOrder: p.OutOrder,
		}
	}

	return ir.FilterStep{
		Expr: line,
		Vars: filterVars(line, tokens),
	}
}

// filterVars records the variable names a filter expression references,
// in order of first appearance. Identifiers inside quoted literals and
// expression keywords are excluded.
func filterVars(expr string, tokens *ir.TokenSource) []*ir.Token {
	masked := maskQuoted(expr)

	seen := make(map[string]bool)
	var vars []*ir.Token
	for _, ident := range identPattern.FindAllString(masked, -1) {
		if filterKeywords[ident] || seen[ident] {
			continue
		}
		if !varNamePattern.MatchString(ident) {
			continue
		}
		seen[ident] = true
		vars = append(vars, tokens.Intern(ident))
	}
	return vars
}

// maskQuoted blanks out quoted literals so identifier scanning skips them.
func maskQuoted(s string) string {
	out := []byte(s)
	var quote byte
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			out[i] = ' '
		case c == '"' || c == '\'':
			quote = c
			out[i] = ' '
		}
	}
	return string(out)
}
