// Package kv is the durable key/value slot the session is mirrored to.
//
// Every backend honours the same contract: Get returns (nil, nil) for a
// missing key, Set fully overwrites the previous value and Delete is
// idempotent. There is no partial-value merge at this layer.
package kv

import (
	"context"
	"errors"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrEmptyKey       = errors.New("empty key")
)
