package session

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/mmynk/familyfund/internal/models"
)

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestSigner(t *testing.T, secret string) *Signer {
	t.Helper()
	s, err := NewSigner(secret, 12*time.Hour)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner("", time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("expected ErrMissingSecret, got %v", err)
	}
}

func TestSign(t *testing.T) {
	s := newTestSigner(t, "secret")
	exp := fixedNow.Add(time.Hour)

	base := s.Sign("Alice", "user", exp)
	if base != s.Sign("Alice", "user", exp) {
		t.Fatal("Sign must be deterministic")
	}
	if len(base) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(base))
	}

	variants := map[string]string{
		"username": s.Sign("Bob", "user", exp),
		"role":     s.Sign("Alice", "admin", exp),
		"expiry":   s.Sign("Alice", "user", exp.Add(time.Second)),
		"secret":   newTestSigner(t, "other").Sign("Alice", "user", exp),
	}
	for field, sig := range variants {
		if sig == base {
			t.Errorf("changing %s did not change the signature", field)
		}
	}
}

func TestPersistThenRestore(t *testing.T) {
	s := newTestSigner(t, "secret")
	carrier := url.Values{}

	first := s.New(carrier)
	first.Persist(" alice ", models.RoleUser)

	if carrier.Get(KeyUser) != "Alice" || carrier.Get(KeyRole) != "user" {
		t.Fatalf("unexpected carrier %v", carrier)
	}
	wantExp := strconv.FormatInt(fixedNow.Add(12*time.Hour).Unix(), 10)
	if carrier.Get(KeyExpiry) != wantExp {
		t.Errorf("expiry = %s, want %s", carrier.Get(KeyExpiry), wantExp)
	}

	// A fresh page load only has the carrier.
	next := s.New(carrier)
	if !next.Restore() {
		t.Fatal("expected Restore to succeed")
	}
	if next.Username != "Alice" || next.Role != models.RoleUser || next.IsAdmin() {
		t.Errorf("unexpected restored session %+v", next)
	}
}

func TestPersistSkipsMatchingCarrier(t *testing.T) {
	s := newTestSigner(t, "secret")
	carrier := url.Values{}
	s.New(carrier).Persist("alice", models.RoleUser)
	sig := carrier.Get(KeySig)

	s.now = func() time.Time { return fixedNow.Add(time.Hour) }
	s.New(carrier).Persist("Alice", models.RoleUser)

	if carrier.Get(KeySig) != sig {
		t.Error("carrier was rewritten although it already matched")
	}

	s.New(carrier).Persist("Alice", models.RoleAdmin)
	if carrier.Get(KeySig) == sig || carrier.Get(KeyRole) != "admin" {
		t.Error("carrier should be rewritten for a different role")
	}
}

func TestRestoreRejects(t *testing.T) {
	s := newTestSigner(t, "secret")

	valid := func() url.Values {
		c := url.Values{}
		s.New(c).Persist("alice", models.RoleUser)
		return c
	}

	tests := []struct {
		name   string
		mutate func(url.Values)
	}{
		{"missing user", func(c url.Values) { c.Del(KeyUser) }},
		{"missing role", func(c url.Values) { c.Del(KeyRole) }},
		{"missing expiry", func(c url.Values) { c.Del(KeyExpiry) }},
		{"missing signature", func(c url.Values) { c.Del(KeySig) }},
		{"tampered role", func(c url.Values) { c.Set(KeyRole, "admin") }},
		{"tampered user", func(c url.Values) { c.Set(KeyUser, "Bob") }},
		{"extended expiry", func(c url.Values) {
			c.Set(KeyExpiry, strconv.FormatInt(fixedNow.Add(48*time.Hour).Unix(), 10))
		}},
		{"garbage expiry", func(c url.Values) { c.Set(KeyExpiry, "soon") }},
		{"garbage signature", func(c url.Values) { c.Set(KeySig, "deadbeef") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			sess := s.New(c)
			if sess.Restore() || sess.Authenticated {
				t.Errorf("expected Restore to fail for %v", c)
			}
		})
	}
}

func TestRestoreRejectsExpired(t *testing.T) {
	s := newTestSigner(t, "secret")
	c := url.Values{}
	s.New(c).Persist("alice", models.RoleUser)

	s.now = func() time.Time { return fixedNow.Add(13 * time.Hour) }
	if s.New(c).Restore() {
		t.Error("expired token should not restore")
	}
}

func TestClearBlocksRestore(t *testing.T) {
	s := newTestSigner(t, "secret")
	c := url.Values{}
	sess := s.New(c)
	sess.Persist("alice", models.RoleUser)

	// Re-add a valid token after logout, as a stale link would.
	stale := url.Values{}
	for k, v := range c {
		stale[k] = v
	}

	sess.Clear()
	if sess.Authenticated {
		t.Fatal("Clear should unauthenticate")
	}
	for _, k := range []string{KeyUser, KeyRole, KeyExpiry, KeySig} {
		if c.Get(k) != "" {
			t.Errorf("carrier field %s not stripped", k)
		}
	}

	for k, v := range stale {
		c[k] = v
	}
	if sess.Restore() {
		t.Error("Restore must be a no-op after Clear")
	}
	if len(sess.Token()) != 0 {
		t.Error("Token should be empty when logged out")
	}
}

func TestContext(t *testing.T) {
	s := newTestSigner(t, "secret")
	sess := s.New(url.Values{})
	ctx := WithSession(context.Background(), sess)
	if FromContext(ctx) != sess {
		t.Error("expected session from context")
	}
	if FromContext(context.Background()) != nil {
		t.Error("expected nil without a session")
	}
}
