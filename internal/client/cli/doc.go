// Package cli provides the interactive Study Circle terminal client.
//
// The App waits until the session manager has restored any stored identity,
// then runs a small REPL over the pages in package views:
//
//   - register / login / logout / reset
//   - profile (show) and edit (profile editor)
//   - nav (navigation bar for the current session)
//
// A background watcher follows session events so a storage failure is
// reported once, as soon as it happens. Run blocks until the user exits.
package cli
