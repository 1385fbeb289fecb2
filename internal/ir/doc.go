// Package ir provides the canonical in-memory representation shared by the
// rule parser and the synchronization engine.
//
// This package contains type definitions and canonical encoding only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Variable tokens are interned per rule definition and never serialized
//   - Logical clocks (seq) only, never wall-clock ordering
package ir
