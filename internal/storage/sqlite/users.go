package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/familyfund/internal/models"
	"github.com/mmynk/familyfund/internal/storage"
)

// FetchCredentials returns every credential row in insertion order.
func (s *SQLiteStore) FetchCredentials(ctx context.Context) (creds []models.Credential, err error) {
	defer func() { storage.Observe(backend, "fetch_credentials", err) }()

	query := `
		SELECT username, password
		FROM credentials
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(&c.Username, &c.PasswordHash); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credentials: %w", err)
	}

	return creds, nil
}

// AppendCredential inserts a credential row. Uniqueness is the
// authenticator's job, as with the spreadsheet backend.
func (s *SQLiteStore) AppendCredential(ctx context.Context, cred models.Credential) (err error) {
	defer func() { storage.Observe(backend, "append_credential", err) }()

	query := `
		INSERT INTO credentials (username, password, created_at)
		VALUES (?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query, cred.Username, cred.PasswordHash, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}

	return nil
}
