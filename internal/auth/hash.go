package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes new passwords with bcrypt and still verifies legacy
// salted SHA-256 digests when a legacy salt is configured.
type Hasher struct {
	cost       int
	legacySalt string
}

// NewHasher creates a Hasher. cost 0 means bcrypt.DefaultCost. An empty
// legacySalt disables legacy verification.
func NewHasher(cost int, legacySalt string) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost, legacySalt: legacySalt}
}

// Hash returns a bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches stored.
func (h *Hasher) Verify(stored, password string) bool {
	stored = strings.TrimSpace(stored)
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	if h.legacySalt == "" {
		return false
	}
	want := LegacyHash(h.legacySalt, password)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(want)) == 1
}

// LegacyHash is the hex SHA-256 of salt+password, as written by the old
// sign-up flow. Deterministic.
func LegacyHash(salt, password string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
