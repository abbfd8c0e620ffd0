package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/familyfund/internal/models"
)

var (
	ErrEmptyCredentials   = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
)

// CredentialStorage defines the credential persistence the authenticator
// needs. The AUTHENTICATION tab has no key, so lookups scan the full list.
type CredentialStorage interface {
	ListCredentials(ctx context.Context) ([]models.Credential, error)
	AppendCredential(ctx context.Context, cred models.Credential) error
}

// PasswordAuthenticator implements password-based authentication.
type PasswordAuthenticator struct {
	storage CredentialStorage
	hasher  *Hasher
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage CredentialStorage, hasher *Hasher) *PasswordAuthenticator {
	if hasher == nil {
		hasher = NewHasher(0, "")
	}
	return &PasswordAuthenticator{
		storage: storage,
		hasher:  hasher,
	}
}

// ValidateCredential rejects blank usernames and empty passwords.
func (a *PasswordAuthenticator) ValidateCredential(username, credential string) error {
	if strings.TrimSpace(username) == "" || credential == "" {
		return ErrEmptyCredentials
	}
	return nil
}

// Register stores a new credential under the normalized username.
func (a *PasswordAuthenticator) Register(ctx context.Context, username, credential string) (models.Credential, error) {
	// Validate input
	if err := a.ValidateCredential(username, credential); err != nil {
		return models.Credential{}, err
	}
	name := models.NormalizeName(username)

	// Check if username already exists
	existing, err := a.storage.ListCredentials(ctx)
	if err != nil {
		return models.Credential{}, fmt.Errorf("failed to list credentials: %w", err)
	}
	if _, ok := find(existing, name); ok {
		return models.Credential{}, ErrUsernameExists
	}

	// Hash the password
	hashed, err := a.hasher.Hash(credential)
	if err != nil {
		return models.Credential{}, err
	}

	// Save to storage
	cred := models.Credential{Username: name, PasswordHash: hashed}
	if err := a.storage.AppendCredential(ctx, cred); err != nil {
		return models.Credential{}, fmt.Errorf("failed to append credential: %w", err)
	}

	return cred, nil
}

// Authenticate verifies username and password, returning the stored record.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, username, credential string) (models.Credential, error) {
	if err := a.ValidateCredential(username, credential); err != nil {
		return models.Credential{}, err
	}

	creds, err := a.storage.ListCredentials(ctx)
	if err != nil {
		return models.Credential{}, fmt.Errorf("failed to list credentials: %w", err)
	}

	// Duplicate rows can exist in the tab; any matching one may verify.
	name := models.NormalizeName(username)
	for _, c := range creds {
		if models.NormalizeName(c.Username) == name && a.hasher.Verify(c.PasswordHash, credential) {
			c.Username = name
			return c, nil
		}
	}

	return models.Credential{}, ErrInvalidCredentials
}

func find(creds []models.Credential, name string) (models.Credential, bool) {
	for _, c := range creds {
		if models.NormalizeName(c.Username) == name {
			return c, true
		}
	}
	return models.Credential{}, false
}
