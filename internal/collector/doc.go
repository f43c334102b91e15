// Package collector implements the in-memory gameplay event store.
//
// A Collector accumulates one session's telemetry: the session identity,
// an ordered sequence of levels, the tasks recorded inside the currently
// open level, and a free-form raw metric map. It enforces the accumulation
// invariants:
//
//   - At most one level is open ("current") at any time.
//   - Tasks append only to the current level, and only when the caller's
//     level id matches it.
//   - EndLevel closes only the current level; a mismatched id is a soft
//     rejection, never a redirect to a different level.
//   - Reset is the only operation that clears session, levels, and metrics
//     together.
//
// Precondition failures are soft: they return a *StateError, log a warning,
// and leave all state untouched. Nothing in this package is fatal.
//
// All operations are serialized behind one mutex so the invariants hold even
// with concurrent callers, though the expected embedding is single-threaded.
package collector
