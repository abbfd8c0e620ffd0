// Package session keeps a login alive across page loads by carrying a
// signed token in the page URL.
//
// The carrier holds four fields: u (username), r (role), x (expiry, unix
// seconds) and s, a hex HMAC-SHA256 over "u|r|x" keyed by the server secret.
// A token is accepted only while unexpired and when the signature matches.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/mmynk/familyfund/internal/models"
)

// Carrier field names.
const (
	KeyUser   = "u"
	KeyRole   = "r"
	KeyExpiry = "x"
	KeySig    = "s"
)

var ErrMissingSecret = errors.New("session secret is required")

// Carrier is where session fields live between requests. url.Values
// satisfies it.
type Carrier interface {
	Get(key string) string
	Set(key, value string)
	Del(key string)
}

// Signer creates and checks session signatures.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a Signer keyed by secret. Tokens live for ttl.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Sign returns the hex signature of username, role and expiry.
func (s *Signer) Sign(username, role string, expires time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(username + "|" + role + "|" + strconv.FormatInt(expires.Unix(), 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// verify checks sig in constant time.
func (s *Signer) verify(username, role string, expires time.Time, sig string) bool {
	want := s.Sign(username, role, expires)
	return hmac.Equal([]byte(want), []byte(sig))
}

// Session is the request-scoped login state.
type Session struct {
	signer  *Signer
	carrier Carrier

	Username      string
	Role          models.Role
	Authenticated bool

	loggedOut bool
}

// New creates an unauthenticated session reading from and writing to c.
func (s *Signer) New(c Carrier) *Session {
	return &Session{signer: s, carrier: c}
}

// Persist marks the session authenticated and writes a fresh token to the
// carrier, unless the carrier already holds a valid token for the same
// user and role.
func (s *Session) Persist(username string, role models.Role) {
	name := models.NormalizeName(username)
	s.Username = name
	s.Role = role
	s.Authenticated = true
	s.loggedOut = false

	if s.carrierMatches(name, role) {
		return
	}

	expires := s.signer.now().Add(s.signer.ttl).Truncate(time.Second)
	s.carrier.Set(KeyUser, name)
	s.carrier.Set(KeyRole, string(role))
	s.carrier.Set(KeyExpiry, strconv.FormatInt(expires.Unix(), 10))
	s.carrier.Set(KeySig, s.signer.Sign(name, string(role), expires))
}

// Restore authenticates the session from the carrier. It does nothing when
// already authenticated or after Clear.
func (s *Session) Restore() bool {
	if s.Authenticated || s.loggedOut {
		return s.Authenticated
	}

	name, role, ok := s.readCarrier()
	if !ok {
		return false
	}
	s.Username = name
	s.Role = models.ParseRole(role)
	s.Authenticated = true
	return true
}

// Clear logs out: it unauthenticates, blocks further Restore calls on this
// session, and removes the token from the carrier.
func (s *Session) Clear() {
	s.Username = ""
	s.Role = ""
	s.Authenticated = false
	s.loggedOut = true
	for _, k := range []string{KeyUser, KeyRole, KeyExpiry, KeySig} {
		s.carrier.Del(k)
	}
}

// Token returns just the carrier fields, for appending to links. It is
// empty when the session is not authenticated.
func (s *Session) Token() url.Values {
	v := url.Values{}
	if !s.Authenticated {
		return v
	}
	for _, k := range []string{KeyUser, KeyRole, KeyExpiry, KeySig} {
		if val := s.carrier.Get(k); val != "" {
			v.Set(k, val)
		}
	}
	return v
}

// IsAdmin reports whether the session belongs to an authenticated admin.
func (s *Session) IsAdmin() bool {
	return s.Authenticated && s.Role == models.RoleAdmin
}

func (s *Session) readCarrier() (name, role string, ok bool) {
	name = s.carrier.Get(KeyUser)
	role = s.carrier.Get(KeyRole)
	x := s.carrier.Get(KeyExpiry)
	sig := s.carrier.Get(KeySig)
	if name == "" || role == "" || x == "" || sig == "" {
		return "", "", false
	}

	unix, err := strconv.ParseInt(x, 10, 64)
	if err != nil {
		return "", "", false
	}
	expires := time.Unix(unix, 0)
	if !s.signer.now().Before(expires) {
		return "", "", false
	}
	if !s.signer.verify(name, role, expires, sig) {
		return "", "", false
	}
	return name, role, true
}

func (s *Session) carrierMatches(name string, role models.Role) bool {
	n, r, ok := s.readCarrier()
	return ok && n == name && r == string(role)
}

type contextKey struct{}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored in ctx, or nil.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextKey{}).(*Session)
	return sess
}
