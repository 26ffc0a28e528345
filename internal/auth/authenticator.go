// Package auth implements the authentication gateway: account creation,
// credential checks, and JWT session tokens. Everything past the gateway
// trusts the asserted user ID and only authorizes actions against it.
package auth

import (
	"context"

	"github.com/rthakur/expenso/internal/models"
)

// Authenticator is the interface for authentication implementations,
// allowing the gateway to swap auth methods without touching the
// HTTP layer.
type Authenticator interface {
	// Register creates a new user account with the given credential.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the credentials and returns the user.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)
}
