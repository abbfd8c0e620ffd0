package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(env(map[string]string{
		"SESSION_SECRET": "s3cret",
		"SPREADSHEET_ID": "sheet-1",
	}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Port != 8080 || cfg.StoreBackend != BackendSheets {
		t.Errorf("port/backend = %d/%s", cfg.Port, cfg.StoreBackend)
	}
	if cfg.CacheTTL != 45*time.Second || cfg.StoreTimeout != 15*time.Second || cfg.StoreMaxAttempts != 4 {
		t.Errorf("store settings = %v %v %d", cfg.CacheTTL, cfg.StoreTimeout, cfg.StoreMaxAttempts)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want 12h", cfg.SessionTTL)
	}
	if diff := cmp.Diff([]string{"admin"}, cfg.AdminUsernames); diff != "" {
		t.Errorf("AdminUsernames mismatch (-want +got):\n%s", diff)
	}
	if cfg.Calendar.StartWeek != 6 || cfg.Calendar.EndWeek != 40 {
		t.Errorf("calendar = %+v", cfg.Calendar)
	}
	if cfg.MinAmount.String() != "1000" {
		t.Errorf("MinAmount = %s", cfg.MinAmount)
	}
	if cfg.JWTSecret == "" || cfg.JWTSecret == cfg.SessionSecret {
		t.Errorf("JWTSecret = %q, want a key derived from SESSION_SECRET", cfg.JWTSecret)
	}
	if len(cfg.CSRFKey) != 32 {
		t.Errorf("expected a generated 32-byte CSRF key outside production, got %d bytes", len(cfg.CSRFKey))
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(env(map[string]string{
		"SESSION_SECRET":  "s3cret",
		"STORE_BACKEND":   "SQLite",
		"SQLITE_PATH":     "/tmp/ff.db",
		"ADMIN_USERNAMES": " Mum, dad ,,",
		"START_WEEK":      "1",
		"END_WEEK":        "4",
		"SCHEDULE_ANCHOR": "2026-01-05",
		"MIN_AMOUNT":      "2500.50",
		"CSRF_KEY":        strings.Repeat("ab", 32),
		"ALLOWED_ORIGINS": "https://a.example, https://b.example",
		"JWT_SECRET":      "api-secret",
	}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.StoreBackend != BackendSQLite || cfg.SQLitePath != "/tmp/ff.db" {
		t.Errorf("backend = %s %s", cfg.StoreBackend, cfg.SQLitePath)
	}
	if diff := cmp.Diff([]string{"Mum", "dad"}, cfg.AdminUsernames); diff != "" {
		t.Errorf("AdminUsernames mismatch (-want +got):\n%s", diff)
	}
	if cfg.JWTSecret != "api-secret" {
		t.Errorf("JWTSecret = %q, want api-secret", cfg.JWTSecret)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins); diff != "" {
		t.Errorf("AllowedOrigins mismatch (-want +got):\n%s", diff)
	}
	if want := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC); !cfg.Calendar.Anchor.Equal(want) {
		t.Errorf("Anchor = %v, want %v", cfg.Calendar.Anchor, want)
	}
	if cfg.MinAmount.String() != "2500.5" {
		t.Errorf("MinAmount = %s", cfg.MinAmount)
	}
	if cfg.CSRFKey[0] != 0xab {
		t.Errorf("CSRFKey not decoded from hex")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"missing session secret", map[string]string{"SPREADSHEET_ID": "x"}, "SESSION_SECRET is required"},
		{"missing spreadsheet", map[string]string{"SESSION_SECRET": "s"}, "SPREADSHEET_ID is required"},
		{"unknown backend", map[string]string{"SESSION_SECRET": "s", "STORE_BACKEND": "mongo"}, `unknown STORE_BACKEND "mongo"`},
		{"bad port", map[string]string{"SESSION_SECRET": "s", "SPREADSHEET_ID": "x", "PORT": "http"}, "PORT"},
		{"bad ttl", map[string]string{"SESSION_SECRET": "s", "SPREADSHEET_ID": "x", "CACHE_TTL": "soon"}, "CACHE_TTL"},
		{"weeks reversed", map[string]string{"SESSION_SECRET": "s", "SPREADSHEET_ID": "x", "START_WEEK": "9", "END_WEEK": "3"}, "end week 3 is before start week 9"},
		{"production needs csrf key", map[string]string{"SESSION_SECRET": "s", "SPREADSHEET_ID": "x", "APP_ENV": "production"}, "CSRF_KEY is required"},
		{"short csrf key", map[string]string{"SESSION_SECRET": "s", "SPREADSHEET_ID": "x", "CSRF_KEY": "abcd"}, "64 hex characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(env(tt.vars))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestJWTSecretDerivation(t *testing.T) {
	a, err := load(env(map[string]string{"SESSION_SECRET": "one", "STORE_BACKEND": "sqlite"}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	again, err := load(env(map[string]string{"SESSION_SECRET": "one", "STORE_BACKEND": "sqlite"}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	b, err := load(env(map[string]string{"SESSION_SECRET": "two", "STORE_BACKEND": "sqlite"}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if a.JWTSecret != again.JWTSecret {
		t.Errorf("derived key not stable: %q vs %q", a.JWTSecret, again.JWTSecret)
	}
	if a.JWTSecret == b.JWTSecret {
		t.Error("different session secrets derived the same JWT key")
	}
	if a.JWTSecret == a.SessionSecret {
		t.Error("JWT key equals the session secret")
	}
}
