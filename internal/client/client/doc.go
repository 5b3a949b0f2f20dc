// Package client contains the auth backend seam of the Study Circle client.
//
// # Overview
//
// The Client interface is what the session manager calls to register, log
// in and request password resets. MockClient implements it without any
// network: it waits for a configurable latency (a context-aware timer that
// stands in for a round trip), accepts any credentials, mints UUIDv7 ids and
// logs reset notifications instead of sending them.
//
// # Error Handling
//
// ErrUnavailable is reserved for transport failures of a real backend;
// ErrClosed is returned after Close. A cancelled context aborts the simulated
// round trip and returns ctx.Err().
package client
