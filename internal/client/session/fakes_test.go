package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/studycircle/internal/broadcast"
	"github.com/dmitrijs2005/studycircle/internal/client/client"
	"github.com/dmitrijs2005/studycircle/internal/client/models"
	"github.com/dmitrijs2005/studycircle/internal/client/repositories/kv"
	"github.com/dmitrijs2005/studycircle/internal/logging"
)

var errDiskFull = errors.New("disk full")

// spyRepo wraps a MemoryRepository, counts writes and can be told to fail.
type spyRepo struct {
	inner *kv.MemoryRepository

	mu      sync.Mutex
	gets    int
	sets    int
	deletes int
	getErr  error
	setErr  error
	delErr  error
}

func newSpyRepo() *spyRepo {
	return &spyRepo{inner: kv.NewMemoryRepository()}
}

func (r *spyRepo) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	r.gets++
	err := r.getErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.inner.Get(ctx, key)
}

func (r *spyRepo) Set(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	r.sets++
	err := r.setErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.inner.Set(ctx, key, value)
}

func (r *spyRepo) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	r.deletes++
	err := r.delErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.inner.Delete(ctx, key)
}

func (r *spyRepo) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets + r.deletes
}

func (r *spyRepo) stored(t *testing.T) *models.Identity {
	t.Helper()
	raw, err := r.inner.Get(context.Background(), DefaultKey)
	require.NoError(t, err)
	if raw == nil {
		return nil
	}
	id, err := models.DecodeIdentity(raw)
	require.NoError(t, err)
	return id
}

// gateClient lets tests hold backend calls open. Each call reports its email
// on entered and, when gate is set, waits for a value on release.
type gateClient struct {
	entered chan string
	release chan struct{}
	gate    bool
	// loginName overrides the synthesized login name when non-nil.
	loginName *string

	mu     sync.Mutex
	seq    int
	logins int
	closed bool
}

func newGateClient(gate bool) *gateClient {
	return &gateClient{
		entered: make(chan string, 16),
		release: make(chan struct{}),
		gate:    gate,
	}
}

func (c *gateClient) wait(ctx context.Context, email string) error {
	c.entered <- email
	if !c.gate {
		return nil
	}
	select {
	case <-c.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *gateClient) nextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return fmt.Sprintf("id-%03d", c.seq)
}

func (c *gateClient) Register(ctx context.Context, email string, password []byte, name string) (*models.Identity, error) {
	if err := c.wait(ctx, email); err != nil {
		return nil, err
	}
	return &models.Identity{ID: c.nextID(), Email: email, Name: name}, nil
}

func (c *gateClient) Login(ctx context.Context, email string, password []byte) (*models.Identity, error) {
	c.mu.Lock()
	c.logins++
	c.mu.Unlock()
	if err := c.wait(ctx, email); err != nil {
		return nil, err
	}
	name := models.DisplayNameFromEmail(email)
	if c.loginName != nil {
		name = *c.loginName
	}
	return &models.Identity{ID: c.nextID(), Email: email, Name: name}, nil
}

func (c *gateClient) ResetPassword(ctx context.Context, email string) error {
	return c.wait(ctx, email)
}

func (c *gateClient) UpdateProfile(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	if err := c.wait(ctx, identity.Email); err != nil {
		return nil, err
	}
	return identity.Clone(), nil
}

func (c *gateClient) Ping(ctx context.Context) error { return nil }

func (c *gateClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *gateClient) loginCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logins
}

func (c *gateClient) awaitEntered(t *testing.T) string {
	t.Helper()
	select {
	case email := <-c.entered:
		return email
	case <-time.After(2 * time.Second):
		t.Fatal("backend call did not start")
		return ""
	}
}

var _ client.Client = (*gateClient)(nil)

// newGateManager builds an initialized Manager over a gated backend.
func newGateManager(t *testing.T, repo kv.Repository) (*Manager, *gateClient) {
	t.Helper()
	gc := newGateClient(true)
	m := New(gc, repo)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Init(context.Background()))
	return m, gc
}

// holdSlot starts a sign-up that keeps the write lock until gc is released
// once. Its result arrives on the returned channel.
func holdSlot(t *testing.T, m *Manager, gc *gateClient) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := m.SignUp(context.Background(), "hold@x.com", []byte("pw"), "Hold")
		done <- err
	}()
	require.Equal(t, "hold@x.com", gc.awaitEntered(t))
	return done
}

// settle gives goroutines started just before time to queue on the lock.
func settle() {
	time.Sleep(50 * time.Millisecond)
}

// newTestManager builds an initialized Manager over repo using the mock
// client without latency.
func newTestManager(t *testing.T, repo kv.Repository, opts ...Option) *Manager {
	t.Helper()
	m := New(client.NewMockClient(0, logging.Nop()), repo, opts...)
	require.NoError(t, m.Init(context.Background()))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func receive(t *testing.T, sub broadcast.Subscriber[Event]) Event {
	t.Helper()
	select {
	case msg, ok := <-sub.Receive():
		require.True(t, ok, "subscription closed")
		return msg.Data
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}
