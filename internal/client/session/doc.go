// Package session owns the identity of the logged-in user.
//
// # Overview
//
// A Manager is the single source of truth for "who is logged in". It mirrors
// the current models.Identity into a kv.Repository slot so the session
// survives restarts, and publishes every committed change to subscribers.
//
// # Lifecycle
//
// Create one Manager per process with New, call Init once to restore the
// stored identity (Ready is closed when that finishes, whatever the outcome)
// and Close it on shutdown.
//
// # Consistency
//
// Mutating operations are serialized per storage slot. Each one writes the
// slot first, then swaps the in-memory identity and broadcasts an Event while
// still holding the write lock, so subscribers see changes in commit order
// and never a half-merged identity. Writes apply in arrival order. A sign-up
// or log-in identical in every input to the write queued just before it,
// which has not started yet, shares that write and its result.
//
// # Degraded mode
//
// A storage failure is not an operation failure: the Manager logs it and
// keeps serving the in-memory session. It stops writing identities to
// storage for the rest of the process, clears the slot on the failed write
// and still clears it on log-out, so a restart never restores a session
// that has ended. Events and Degraded report the mode.
package session
