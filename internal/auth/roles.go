package auth

import (
	"strings"

	"github.com/mmynk/familyfund/internal/models"
)

// Roles maps usernames to roles from a fixed admin list.
type Roles struct {
	admins map[string]bool
}

// NewRoles builds a Roles from admin usernames. Names are compared
// case-insensitively after trimming. An empty list falls back to "admin".
func NewRoles(admins []string) Roles {
	r := Roles{admins: make(map[string]bool)}
	for _, a := range admins {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			r.admins[a] = true
		}
	}
	if len(r.admins) == 0 {
		r.admins["admin"] = true
	}
	return r
}

// For returns the role of username.
func (r Roles) For(username string) models.Role {
	if r.admins[strings.ToLower(models.NormalizeName(username))] {
		return models.RoleAdmin
	}
	return models.RoleUser
}
