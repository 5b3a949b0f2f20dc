package session

import "errors"

var (
	// ErrNotAuthenticated is returned by operations that need a current identity.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrStorageUnavailable wraps storage failures that switched the manager
	// to memory-only mode. It is logged, not returned by operations.
	ErrStorageUnavailable = errors.New("session storage unavailable")
)
