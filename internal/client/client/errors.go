package client

import "errors"

var (
	ErrUnavailable = errors.New("auth backend unavailable")
	ErrClosed      = errors.New("client closed")
)
