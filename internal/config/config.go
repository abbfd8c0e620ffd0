// Package config loads server settings from the environment.
package config

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/familyfund/internal/schedule"
)

// Store backends.
const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	Port int
	// Env is "production" or anything else; production turns on secure
	// cookies and requires CSRF_KEY.
	Env string

	StoreBackend     string
	SQLitePath       string
	SpreadsheetID    string
	TransactionTab   string
	AuthTab          string
	CacheTTL         time.Duration
	StoreTimeout     time.Duration
	StoreMaxAttempts int

	// Credential sources for the Sheets backend, tried in order.
	SecretsPath     string
	CredentialsFile string

	SessionSecret  string
	JWTSecret      string
	SessionTTL     time.Duration
	APITokenTTL    time.Duration
	CSRFKey        []byte
	AdminUsernames []string
	LegacySalt     string

	MinAmount decimal.Decimal
	Calendar  schedule.Calendar

	ReceiptBucket  string
	AllowedOrigins []string
}

// Production reports whether the server runs in production.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	getEnv := func(key, fallback string) string {
		if value, exists := lookup(key); exists && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return fallback
	}

	var errs []error
	intVar := func(key string, fallback int) int {
		v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return v
	}
	durationVar := func(key string, fallback time.Duration) time.Duration {
		v, err := time.ParseDuration(getEnv(key, fallback.String()))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return v
	}

	cfg := &Config{
		Port: intVar("PORT", 8080),
		Env:  strings.ToLower(getEnv("APP_ENV", "development")),

		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", BackendSheets)),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/familyfund.db"),
		SpreadsheetID:    getEnv("SPREADSHEET_ID", ""),
		TransactionTab:   getEnv("TRANSACTION_TAB", "TRANSACTION"),
		AuthTab:          getEnv("AUTH_TAB", "AUTHENTICATION"),
		CacheTTL:         durationVar("CACHE_TTL", 45*time.Second),
		StoreTimeout:     durationVar("STORE_TIMEOUT", 15*time.Second),
		StoreMaxAttempts: intVar("STORE_MAX_ATTEMPTS", 4),

		SecretsPath:     getEnv("SECRETS_PATH", ".secrets/secrets.json"),
		CredentialsFile: getEnv("CREDENTIALS_FILE", "credentials.json"),

		SessionSecret:  getEnv("SESSION_SECRET", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		SessionTTL:     durationVar("SESSION_TTL", 12*time.Hour),
		APITokenTTL:    durationVar("API_TOKEN_TTL", time.Hour),
		AdminUsernames: splitList(getEnv("ADMIN_USERNAMES", "admin")),
		LegacySalt:     getEnv("LEGACY_PASSWORD_SALT", ""),

		Calendar: schedule.Calendar{
			StartWeek: intVar("START_WEEK", schedule.DefaultStartWeek),
			EndWeek:   intVar("END_WEEK", schedule.DefaultEndWeek),
			Anchor:    schedule.DefaultAnchor,
		},

		ReceiptBucket: getEnv("RECEIPT_BUCKET", ""),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "")),
	}

	minAmount, err := decimal.NewFromString(getEnv("MIN_AMOUNT", "1000"))
	if err != nil {
		errs = append(errs, fmt.Errorf("MIN_AMOUNT: %w", err))
	}
	cfg.MinAmount = minAmount

	if anchor := getEnv("SCHEDULE_ANCHOR", ""); anchor != "" {
		t, err := time.Parse(time.DateOnly, anchor)
		if err != nil {
			errs = append(errs, fmt.Errorf("SCHEDULE_ANCHOR: %w", err))
		}
		cfg.Calendar.Anchor = t
	}

	if cfg.JWTSecret == "" && cfg.SessionSecret != "" {
		cfg.JWTSecret = deriveKey(cfg.SessionSecret, "api-jwt")
	}

	cfg.CSRFKey, err = csrfKey(getEnv("CSRF_KEY", ""), cfg.Production())
	if err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no safe default.
func (c *Config) Validate() error {
	var errs []error
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	switch c.StoreBackend {
	case BackendSheets:
		if c.SpreadsheetID == "" {
			errs = append(errs, errors.New("SPREADSHEET_ID is required for the sheets backend"))
		}
	case BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	if c.StoreMaxAttempts < 1 {
		errs = append(errs, errors.New("STORE_MAX_ATTEMPTS must be at least 1"))
	}
	if c.MinAmount.IsNegative() {
		errs = append(errs, errors.New("MIN_AMOUNT must not be negative"))
	}
	if err := c.Calendar.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// deriveKey returns a hex HMAC-SHA256 of purpose keyed by secret.
func deriveKey(secret, purpose string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(purpose))
	return hex.EncodeToString(mac.Sum(nil))
}

// csrfKey decodes a 32-byte hex key. Outside production a missing key is
// replaced by a random one, so forms break across restarts.
func csrfKey(hexKey string, production bool) ([]byte, error) {
	if hexKey == "" {
		if production {
			return nil, errors.New("CSRF_KEY is required in production")
		}
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
		}
		return key, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, errors.New("CSRF_KEY must be 64 hex characters")
	}
	return key, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
