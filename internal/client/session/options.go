package session

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/studycircle/internal/logging"
)

// DefaultKey is the storage key the identity record lives under.
const DefaultKey = "user"

const defaultBufferSize = 16

type Option func(*Manager)

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithKey overrides DefaultKey. Empty keys are ignored.
func WithKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.key = key
		}
	}
}

// WithBufferSize sets how many events a subscriber may lag behind before it
// is dropped.
func WithBufferSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.bufferSize = n
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) {
		if t != nil {
			m.tracer = t
		}
	}
}
