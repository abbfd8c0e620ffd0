package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/familyfund/internal/auth"
	"github.com/mmynk/familyfund/internal/metrics"
	"github.com/mmynk/familyfund/internal/models"
)

// Identity is an authenticated caller.
type Identity struct {
	Username string
	Role     models.Role
}

// AuthService handles sign-up, login and API token issue.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	roles         auth.Roles
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, roles auth.Roles, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		roles:         roles,
		logger:        logger,
	}
}

// SignUp registers a new account.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (Identity, error) {
	s.logger.Info("Sign-up request", "username", username)

	cred, err := s.authenticator.Register(ctx, username, password)
	if err != nil {
		s.logger.Warn("Sign-up failed", "username", username, "error", err)
		metrics.Logins.WithLabelValues("signup", "rejected").Inc()
		return Identity{}, err
	}

	metrics.Logins.WithLabelValues("signup", "ok").Inc()
	s.logger.Info("User registered successfully", "username", cred.Username)
	return s.identity(cred.Username), nil
}

// Login verifies credentials and returns the caller's identity.
func (s *AuthService) Login(ctx context.Context, username, password string) (Identity, error) {
	s.logger.Info("Login request", "username", username)

	cred, err := s.authenticator.Authenticate(ctx, username, password)
	if err != nil {
		s.logger.Warn("Login failed", "username", username, "error", err)
		metrics.Logins.WithLabelValues("login", "rejected").Inc()
		return Identity{}, err
	}

	id := s.identity(cred.Username)
	metrics.Logins.WithLabelValues("login", "ok").Inc()
	s.logger.Info("User logged in successfully", "username", id.Username, "role", id.Role)
	return id, nil
}

// IssueToken logs in and returns a bearer token for the JSON API.
func (s *AuthService) IssueToken(ctx context.Context, username, password string) (string, Identity, error) {
	id, err := s.Login(ctx, username, password)
	if err != nil {
		return "", Identity{}, err
	}

	// Generate JWT token
	token, err := s.jwtManager.Generate(id.Username, id.Role)
	if err != nil {
		s.logger.Error("Failed to generate token", "username", id.Username, "error", err)
		return "", Identity{}, err
	}
	return token, id, nil
}

// Verify validates a bearer token.
func (s *AuthService) Verify(token string) (Identity, error) {
	claims, err := s.jwtManager.Validate(token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Username: claims.Username, Role: claims.Role}, nil
}

func (s *AuthService) identity(username string) Identity {
	name := models.NormalizeName(username)
	return Identity{Username: name, Role: s.roles.For(name)}
}
