package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Credential columns in the AUTHENTICATION tab.
const (
	ColUsername = "USERNAME"
	ColPassword = "PASSWORD"
)

// Role is the access level of an authenticated user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole maps a carrier value to a Role. Anything but "admin" is a user.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// Credential is one row of the AUTHENTICATION tab.
type Credential struct {
	// Username is stored title-cased ("Alice", "Mary Jane").
	Username string

	// PasswordHash is a bcrypt hash, or a legacy hex SHA-256 digest for
	// rows written before bcrypt was introduced.
	PasswordHash string
}

// NormalizeName trims s and title-cases each word, lower-casing the rest
// ("  aLICE smith" becomes "Alice Smith").
func NormalizeName(s string) string {
	// Casers carry state, so one per call.
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}

// SameUser reports whether two usernames refer to the same account.
func SameUser(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
