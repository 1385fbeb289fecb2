package ir

// Token is an opaque symbolic variable scoped to one rule definition.
// Two clauses of the same rule that reference the same name share the same
// *Token, which is what lets the engine unify values across clauses.
// Tokens are in-memory correlation handles only and are never serialized.
type Token struct {
	id   int
	name string
}

// Name returns the display name the rule text used for this variable.
func (t *Token) Name() string {
	return t.name
}

// String implements fmt.Stringer for log output.
func (t *Token) String() string {
	return "?" + t.name
}

// TokenSource interns tokens by name for one rule definition.
// Lookups for the same name return the identical *Token; distinct
// TokenSources never share tokens even for equal names.
//
// Not safe for concurrent use; a rule is parsed by a single goroutine.
type TokenSource struct {
	next   int
	byName map[string]*Token
}

// NewTokenSource creates an empty per-rule token factory.
func NewTokenSource() *TokenSource {
	return &TokenSource{byName: make(map[string]*Token)}
}

// Intern returns the token for name, creating it on first reference.
func (s *TokenSource) Intern(name string) *Token {
	if t, ok := s.byName[name]; ok {
		return t
	}
	s.next++
	t := &Token{id: s.next, name: name}
	s.byName[name] = t
	return t
}

// Lookup returns the token for name if it has been interned.
func (s *TokenSource) Lookup(name string) (*Token, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Len returns the number of distinct names interned.
func (s *TokenSource) Len() int {
	return len(s.byName)
}
