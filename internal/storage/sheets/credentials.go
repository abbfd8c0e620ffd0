package sheets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNoCredentials = errors.New("no Google service account credentials found")

// secretsKeys are the keys checked in the secrets file, in order.
var secretsKeys = []string{
	"gcp_service_account",
	"google_service_account",
	"service_account",
	"GOOGLE_CREDENTIALS_JSON",
	"GOOGLE_SERVICE_ACCOUNT_JSON",
}

// inlineEnvVars hold the service account JSON itself.
var inlineEnvVars = []string{"GOOGLE_CREDENTIALS_JSON", "GOOGLE_SERVICE_ACCOUNT_JSON"}

// CredentialResolver finds service account JSON. Sources are tried in
// order: the secrets file, inline JSON in the environment, the file named
// by GOOGLE_APPLICATION_CREDENTIALS, then a local credentials file.
type CredentialResolver struct {
	SecretsPath string
	LocalPath   string

	LookupEnv func(string) (string, bool)
	ReadFile  func(string) ([]byte, error)
}

// NewCredentialResolver uses the process environment and filesystem.
func NewCredentialResolver(secretsPath, localPath string) *CredentialResolver {
	return &CredentialResolver{
		SecretsPath: secretsPath,
		LocalPath:   localPath,
		LookupEnv:   os.LookupEnv,
		ReadFile:    os.ReadFile,
	}
}

// Resolve returns normalized credentials JSON and the name of the source
// it came from. On failure the error lists every source attempted.
func (r *CredentialResolver) Resolve() ([]byte, string, error) {
	var tried []string
	note := func(source string, err error) {
		if err != nil {
			source = fmt.Sprintf("%s (%v)", source, err)
		}
		tried = append(tried, source)
	}

	// Secrets file
	if r.SecretsPath != "" {
		source := "secrets file " + r.SecretsPath
		b, err := r.fromSecrets()
		if b != nil {
			return b, source, nil
		}
		note(source, err)
	}

	// Inline JSON
	for _, key := range inlineEnvVars {
		source := "env " + key
		v, ok := r.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			note(source, nil)
			continue
		}
		b, err := normalize([]byte(v))
		if err == nil {
			return b, source, nil
		}
		note(source, err)
	}

	// Credentials file path
	if path, ok := r.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS"); ok && path != "" {
		source := "env GOOGLE_APPLICATION_CREDENTIALS=" + path
		b, err := r.fromFile(path)
		if err == nil {
			return b, source, nil
		}
		note(source, err)
	} else {
		note("env GOOGLE_APPLICATION_CREDENTIALS", nil)
	}

	// Local file
	if r.LocalPath != "" {
		source := "local file " + r.LocalPath
		b, err := r.fromFile(r.LocalPath)
		if err == nil {
			return b, source, nil
		}
		note(source, err)
	}

	return nil, "", fmt.Errorf("%w; tried: %s", ErrNoCredentials, strings.Join(tried, ", "))
}

func (r *CredentialResolver) fromFile(path string) ([]byte, error) {
	raw, err := r.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.New("not found")
		}
		return nil, err
	}
	return normalize(raw)
}

// fromSecrets reads a JSON secrets file. A key may hold the service account
// as an object or as a JSON string.
func (r *CredentialResolver) fromSecrets() ([]byte, error) {
	raw, err := r.ReadFile(r.SecretsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.New("not found")
		}
		return nil, err
	}

	var secrets map[string]json.RawMessage
	if err := json.Unmarshal(raw, &secrets); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	for _, key := range secretsKeys {
		v, ok := secrets[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(v, &s) == nil {
			v = json.RawMessage(s)
		}
		b, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", key, err)
		}
		return b, nil
	}
	return nil, errors.New("no service account key")
}

// normalize parses a service account document, turns literal "\n"
// sequences in private_key into newlines, and re-encodes it.
func normalize(raw []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, ok := doc["client_email"].(string); !ok {
		return nil, errors.New("missing client_email")
	}
	key, ok := doc["private_key"].(string)
	if !ok || key == "" {
		return nil, errors.New("missing private_key")
	}
	doc["private_key"] = strings.ReplaceAll(key, `\n`, "\n")

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}
	return out, nil
}
