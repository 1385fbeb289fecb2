// Package concepts ships the sample concepts the repository's rules and
// scenarios exercise: an in-memory counter, a nonce generator, a
// sqlite-backed URL shortener, and a request/response web gateway.
//
// Each concept is an independent stateful service implementing
// engine.Concept. Concepts never reference each other; all coordination
// between them happens through synchronization rules.
package concepts
