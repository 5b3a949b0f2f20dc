package session

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/studycircle/internal/broadcast"
	"github.com/dmitrijs2005/studycircle/internal/client/client"
	"github.com/dmitrijs2005/studycircle/internal/client/models"
	"github.com/dmitrijs2005/studycircle/internal/client/repositories/kv"
	"github.com/dmitrijs2005/studycircle/internal/logging"
)

const tracerName = "github.com/dmitrijs2005/studycircle/internal/client/session"

// Manager owns the current identity. It is safe for concurrent use.
type Manager struct {
	client client.Client
	repo   kv.Repository
	key    string

	logger     logging.Logger
	tracer     trace.Tracer
	bufferSize int
	hub        *broadcast.MemoryBroadcaster[Event]

	// writes serializes everything that touches the slot. Taken before mu.
	writes *semaphore.Weighted

	queueMu sync.Mutex
	// open is the most recently queued write while it still waits for
	// writes; identical requests arriving meanwhile share it.
	open *flight

	mu       sync.RWMutex
	current  *models.Identity
	degraded bool

	initOnce sync.Once
	ready    chan struct{}
}

// New creates a Manager backed by c and mirrored to repo. Call Init before
// serving consumers.
func New(c client.Client, repo kv.Repository, opts ...Option) *Manager {
	m := &Manager{
		client:     c,
		repo:       repo,
		key:        DefaultKey,
		logger:     logging.Nop(),
		tracer:     otel.Tracer(tracerName),
		bufferSize: defaultBufferSize,
		writes:     semaphore.NewWeighted(1),
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "session")
	m.hub = broadcast.NewMemoryBroadcaster[Event](m.bufferSize)
	return m
}

type registration struct {
	Email string `json:"email" validate:"required"`
	Name  string `json:"name" validate:"required"`
}

type credentials struct {
	Email    string `json:"email" validate:"required"`
	Password []byte `json:"password" validate:"min=1"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required"`
}

// Init restores the stored identity, if any, and closes Ready. Only the
// first call does anything. A storage read failure switches the manager to
// memory-only mode; a malformed record is ignored. The returned error is
// non-nil only when ctx ended first.
func (m *Manager) Init(ctx context.Context) error {
	var err error
	m.initOnce.Do(func() {
		defer close(m.ready)
		err = m.traced(ctx, "Init", m.restore)
	})
	return err
}

func (m *Manager) restore(ctx context.Context) error {
	if err := m.writes.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.writes.Release(1)

	var identity *models.Identity
	if !m.Degraded() {
		raw, err := m.repo.Get(ctx, m.key)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			m.degrade(ctx, "restore", err)
		case raw == nil:
			m.logger.Debug(ctx, "no stored session")
		default:
			identity, err = models.DecodeIdentity(raw)
			if err != nil {
				m.logger.Warn(ctx, "ignoring malformed stored session", "error", err)
				identity = nil
			}
		}
	}

	m.publish(ctx, identity, ReasonRestore)
	if identity != nil {
		m.logger.Info(ctx, "session restored", "user_id", identity.ID)
	}
	return nil
}

// Ready is closed once Init has finished.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// SignUp registers a new account and makes it current, replacing any
// stored identity.
func (m *Manager) SignUp(ctx context.Context, email string, password []byte, name string) (*models.Identity, error) {
	in := registration{Email: strings.TrimSpace(email), Name: strings.TrimSpace(name)}
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	password = bytes.Clone(password)
	key := requestKey("sign_up", []byte(in.Email), []byte(in.Name), password)
	return m.collapse(ctx, "SignUp", key, func(ctx context.Context) (*models.Identity, error) {
		identity, err := m.client.Register(ctx, in.Email, password, in.Name)
		if err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
		if err := m.commit(ctx, identity, ReasonSignUp); err != nil {
			return nil, err
		}
		m.logger.Info(ctx, "signed up", "user_id", identity.ID, "email", identity.Email)
		return identity, nil
	})
}

// LogIn authenticates and makes the returned identity current. The record
// from a previous sign-up is overwritten entirely.
func (m *Manager) LogIn(ctx context.Context, email string, password []byte) (*models.Identity, error) {
	in := credentials{Email: strings.TrimSpace(email), Password: password}
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	password = bytes.Clone(password)
	key := requestKey("log_in", []byte(in.Email), password)
	return m.collapse(ctx, "LogIn", key, func(ctx context.Context) (*models.Identity, error) {
		identity, err := m.client.Login(ctx, in.Email, password)
		if err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		if identity.Name == "" {
			identity.Name = models.DisplayNameFromEmail(identity.Email)
		}
		if err := m.commit(ctx, identity, ReasonLogIn); err != nil {
			return nil, err
		}
		m.logger.Info(ctx, "logged in", "user_id", identity.ID, "email", identity.Email)
		return identity, nil
	})
}

// LogOut forgets the current identity. It waits for in-flight writes, ignores
// cancellation and the returned error is always nil.
func (m *Manager) LogOut(ctx context.Context) error {
	return m.traced(ctx, "LogOut", func(ctx context.Context) error {
		ctx = context.WithoutCancel(ctx)
		m.seal(nil)
		if err := m.writes.Acquire(ctx, 1); err != nil {
			return err
		}
		defer m.writes.Release(1)

		prev := m.Current()
		if err := m.commit(ctx, nil, ReasonLogOut); err != nil {
			return err
		}
		if prev != nil {
			m.logger.Info(ctx, "logged out", "user_id", prev.ID)
		}
		return nil
	})
}

// ResetPassword asks the backend to send a reset notification. Session state
// is not touched.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	in := resetRequest{Email: strings.TrimSpace(email)}
	if err := models.ValidateStruct(in); err != nil {
		return err
	}

	return m.traced(ctx, "ResetPassword", func(ctx context.Context) error {
		if err := m.client.ResetPassword(ctx, in.Email); err != nil {
			return fmt.Errorf("reset password: %w", err)
		}
		return nil
	})
}

// UpdateProfile merges u into the current identity. Fields u leaves unset
// keep their values.
func (m *Manager) UpdateProfile(ctx context.Context, u models.ProfileUpdate) (*models.Identity, error) {
	var out *models.Identity
	err := m.traced(ctx, "UpdateProfile", func(ctx context.Context) error {
		m.seal(nil)
		identity, err := m.locked(ctx, func(ctx context.Context) (*models.Identity, error) {
			cur := m.Current()
			if cur == nil {
				return nil, ErrNotAuthenticated
			}

			next := cur.Apply(u)
			if err := next.Validate(); err != nil {
				return nil, err
			}

			accepted, err := m.client.UpdateProfile(ctx, &next)
			if err != nil {
				return nil, fmt.Errorf("update profile: %w", err)
			}
			if err := m.commit(ctx, accepted, ReasonProfileUpdate); err != nil {
				return nil, err
			}
			m.logger.Info(ctx, "profile updated", "user_id", accepted.ID)
			return accepted, nil
		})
		out = identity
		return err
	})
	return out, err
}

// Current returns a copy of the current identity, or nil.
func (m *Manager) Current() *models.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// Degraded reports whether storage has failed and the session is memory-only.
func (m *Manager) Degraded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.degraded
}

// Subscribe returns a subscription to Events. It ends when ctx is done, when
// it is closed, when it falls too far behind or when the Manager is closed.
func (m *Manager) Subscribe(ctx context.Context) broadcast.Subscriber[Event] {
	return m.hub.Subscribe(ctx)
}

// Close ends all subscriptions and closes the backend client.
func (m *Manager) Close() error {
	return errors.Join(m.hub.Close(), m.client.Close())
}

// flight is one queued SignUp or LogIn, shared by identical requests that
// arrive before it takes the write lock.
type flight struct {
	key  string
	done chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	// waiters is guarded by Manager.queueMu. The flight is cancelled when
	// it drops to zero.
	waiters int

	identity *models.Identity
	err      error
}

// requestKey identifies a request by its operation and every input, so only
// exact duplicates share a flight.
func requestKey(op string, fields ...[]byte) string {
	h := sha256.New()
	var n [8]byte
	for _, f := range fields {
		binary.BigEndian.PutUint64(n[:], uint64(len(f)))
		h.Write(n[:])
		h.Write(f)
	}
	return op + ":" + hex.EncodeToString(h.Sum(nil))
}

// collapse runs fn under the write lock. A call identical to the write
// queued just before it, which has not started yet, joins that write
// instead of queueing its own.
func (m *Manager) collapse(ctx context.Context, op, key string, fn func(context.Context) (*models.Identity, error)) (*models.Identity, error) {
	var out *models.Identity
	err := m.traced(ctx, op, func(ctx context.Context) error {
		f, joined := m.enqueue(ctx, key, fn)
		if joined {
			m.logger.Debug(ctx, "duplicate request collapsed", "op", op)
		}
		identity, err := m.await(ctx, f)
		if err != nil {
			return err
		}
		out = identity
		return nil
	})
	return out, err
}

func (m *Manager) enqueue(ctx context.Context, key string, fn func(context.Context) (*models.Identity, error)) (*flight, bool) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	if f := m.open; f != nil && f.key == key && f.waiters > 0 {
		f.waiters++
		return f, true
	}

	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight{key: key, done: make(chan struct{}), ctx: fctx, cancel: cancel, waiters: 1}
	m.open = f
	go m.fly(f, fn)
	return f, false
}

func (m *Manager) fly(f *flight, fn func(context.Context) (*models.Identity, error)) {
	defer close(f.done)
	defer f.cancel()
	defer m.seal(f)

	f.identity, f.err = m.locked(f.ctx, func(ctx context.Context) (*models.Identity, error) {
		m.seal(f)
		return fn(ctx)
	})
}

// await waits for f on behalf of one caller. When the last caller gives up
// the flight is cancelled; it either aborts or, if its commit already
// started, finishes and reports success.
func (m *Manager) await(ctx context.Context, f *flight) (*models.Identity, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		m.queueMu.Lock()
		f.waiters--
		last := f.waiters == 0
		if last && m.open == f {
			m.open = nil
		}
		m.queueMu.Unlock()

		if !last {
			return nil, ctx.Err()
		}
		f.cancel()
		<-f.done
		if errors.Is(f.err, context.Canceled) {
			return nil, ctx.Err()
		}
	}

	if f.err != nil {
		return nil, f.err
	}
	return f.identity.Clone(), nil
}

// seal stops later requests from joining f. seal(nil) closes whatever write
// is open; every non-collapsible write calls it on arrival.
func (m *Manager) seal(f *flight) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	if f == nil || m.open == f {
		m.open = nil
	}
}

func (m *Manager) locked(ctx context.Context, fn func(context.Context) (*models.Identity, error)) (*models.Identity, error) {
	if err := m.writes.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer m.writes.Release(1)
	return fn(ctx)
}

// commit mirrors identity into storage (nil deletes the record), then makes
// it current and publishes it. Callers hold the write lock. Once storage is
// touched the commit runs to completion regardless of ctx.
func (m *Manager) commit(ctx context.Context, identity *models.Identity, reason Reason) error {
	var raw []byte
	if identity != nil {
		b, err := models.EncodeIdentity(identity)
		if err != nil {
			return err
		}
		raw = b
	}

	ctx = context.WithoutCancel(ctx)
	switch {
	case identity == nil:
		// Clearing is attempted in memory-only mode too.
		if err := m.repo.Delete(ctx, m.key); err != nil {
			m.degrade(ctx, string(reason), err)
		}
	case !m.Degraded():
		if err := m.repo.Set(ctx, m.key, raw); err != nil {
			m.degrade(ctx, string(reason), err)
			m.discard(ctx)
		}
	}

	m.publish(ctx, identity, reason)
	return nil
}

// discard drops whatever record an earlier write left in the slot, so a
// restart does not restore an identity that is no longer current.
func (m *Manager) discard(ctx context.Context) {
	if err := m.repo.Delete(ctx, m.key); err != nil {
		m.logger.Debug(ctx, "could not clear stale session record", "error", err)
	}
}

func (m *Manager) publish(ctx context.Context, identity *models.Identity, reason Reason) {
	m.mu.Lock()
	m.current = identity.Clone()
	degraded := m.degraded
	m.mu.Unlock()

	ev := Event{Identity: identity.Clone(), Degraded: degraded, Reason: reason}
	if err := m.hub.Broadcast(ctx, broadcast.Message[Event]{Data: ev}); err != nil {
		m.logger.Error(ctx, "broadcast failed", "error", err)
	}
}

func (m *Manager) degrade(ctx context.Context, op string, cause error) {
	m.mu.Lock()
	already := m.degraded
	m.degraded = true
	m.mu.Unlock()

	if !already {
		err := fmt.Errorf("%w: %w", ErrStorageUnavailable, cause)
		m.logger.Warn(ctx, "session storage failed, continuing in memory only", "op", op, "error", err)
	}
}

func (m *Manager) traced(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := m.tracer.Start(ctx, "session."+op)
	defer span.End()

	err := fn(ctx)
	span.SetAttributes(attribute.Bool("session.degraded", m.Degraded()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
