package client

import (
	"context"

	"github.com/dmitrijs2005/studycircle/internal/client/models"
)

// Client is the auth backend the session manager talks to. MockClient is the
// only implementation; a networked client would verify credentials here.
type Client interface {
	// Register creates an account and returns its identity.
	Register(ctx context.Context, email string, password []byte, name string) (*models.Identity, error)
	// Login authenticates and returns the identity to make current.
	Login(ctx context.Context, email string, password []byte) (*models.Identity, error)
	// ResetPassword asks the backend to notify email about a password reset.
	ResetPassword(ctx context.Context, email string) error
	// UpdateProfile stores an edited identity and returns the accepted version.
	UpdateProfile(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	Ping(ctx context.Context) error
	Close() error
}
