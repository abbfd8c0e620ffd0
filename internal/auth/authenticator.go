package auth

import (
	"context"

	"github.com/mmynk/familyfund/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// The service layer only depends on this, so the credential scheme can
// change without touching handlers.
type Authenticator interface {
	// Register creates a credential for username. The username is stored
	// normalized (trimmed, title-cased). Returns ErrEmptyCredentials or
	// ErrUsernameExists on validation failures.
	Register(ctx context.Context, username, credential string) (models.Credential, error)

	// Authenticate verifies username and credential and returns the stored
	// record. Unknown users and wrong passwords both yield
	// ErrInvalidCredentials.
	Authenticate(ctx context.Context, username, credential string) (models.Credential, error)

	// ValidateCredential checks the credential before any store access.
	ValidateCredential(username, credential string) error
}
