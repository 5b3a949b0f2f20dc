package client

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/studycircle/internal/client/models"
	"github.com/dmitrijs2005/studycircle/internal/common"
	"github.com/dmitrijs2005/studycircle/internal/logging"
)

// MockClient simulates the auth backend. Any email/password pair is
// accepted; the password is never stored or inspected.
type MockClient struct {
	latency time.Duration
	logger  logging.Logger
	newID   func() (string, error)
	closed  atomic.Bool
}

// NewMockClient returns a MockClient that waits latency before every reply.
func NewMockClient(latency time.Duration, logger logging.Logger) *MockClient {
	return &MockClient{
		latency: latency,
		logger:  logger.With("component", "mock_client"),
		newID:   newIdentityID,
	}
}

// newIdentityID returns a UUIDv7: unique and ordered by creation time.
func newIdentityID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (c *MockClient) Register(ctx context.Context, email string, password []byte, name string) (*models.Identity, error) {
	if err := c.roundTrip(ctx); err != nil {
		return nil, err
	}

	id, err := c.newID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	return &models.Identity{
		ID:    id,
		Email: strings.TrimSpace(email),
		Name:  strings.TrimSpace(name),
	}, nil
}

// Login always succeeds. The name is derived from the email, so logging in
// with an address used for sign-up yields a different synthesized identity.
func (c *MockClient) Login(ctx context.Context, email string, password []byte) (*models.Identity, error) {
	if err := c.roundTrip(ctx); err != nil {
		return nil, err
	}

	id, err := c.newID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	email = strings.TrimSpace(email)
	return &models.Identity{
		ID:    id,
		Email: email,
		Name:  models.DisplayNameFromEmail(email),
	}, nil
}

// ResetPassword pretends to email a reset link; the token only goes to the log.
func (c *MockClient) ResetPassword(ctx context.Context, email string) error {
	if err := c.roundTrip(ctx); err != nil {
		return err
	}

	token, err := common.MakeRandHexString(16)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	c.logger.Info(ctx, "password reset notification sent", "email", email, "token", token)
	return nil
}

// UpdateProfile echoes identity back after the simulated round trip.
func (c *MockClient) UpdateProfile(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	if err := c.roundTrip(ctx); err != nil {
		return nil, err
	}
	return identity.Clone(), nil
}

func (c *MockClient) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

func (c *MockClient) Close() error {
	c.closed.Store(true)
	return nil
}

// roundTrip waits for the simulated latency or until ctx is done.
func (c *MockClient) roundTrip(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(c.latency)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
