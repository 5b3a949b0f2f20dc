// Package views renders the pages that react to the session: the navigation
// bar, the profile page and the login/registration forms.
//
// Pages are templ components that write plain text, so the terminal client
// can render them and tests can assert on the output. Each page takes a
// Params struct built from the current identity; nothing here talks to the
// session manager except Watch, which re-renders on every published change.
package views
