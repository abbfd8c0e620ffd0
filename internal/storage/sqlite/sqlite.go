// Package sqlite provides a SQLite-backed implementation of storage.Store
// for local development and tests. It mirrors the spreadsheet layout: one
// table per tab, rows kept in insertion order.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/familyfund/internal/models"
	"github.com/mmynk/familyfund/internal/storage"
)

const backend = "sqlite"

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time keeps appends ordered
	db.SetMaxOpenConns(1)

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath, now: time.Now}, nil
}

// Identity returns the database path.
func (s *SQLiteStore) Identity() string {
	return "sqlite:" + s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// FetchTransactions returns every contribution row in insertion order.
func (s *SQLiteStore) FetchTransactions(ctx context.Context) (table models.Table, err error) {
	defer func() { storage.Observe(backend, "fetch_transactions", err) }()

	query := `
		SELECT name, amount_paid, date, week, receipt_link
		FROM transactions
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	table = models.Table{Columns: append([]string(nil), models.TransactionColumns...)}
	for rows.Next() {
		var name, amount, date, week, receipt string
		if err := rows.Scan(&name, &amount, &date, &week, &receipt); err != nil {
			return models.Table{}, fmt.Errorf("failed to scan transaction: %w", err)
		}
		table.Rows = append(table.Rows, []string{name, amount, date, week, receipt})
	}
	if err := rows.Err(); err != nil {
		return models.Table{}, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return table, nil
}

// AppendTransaction inserts one contribution row.
func (s *SQLiteStore) AppendTransaction(ctx context.Context, txn models.Transaction) (err error) {
	defer func() { storage.Observe(backend, "append_transaction", err) }()

	row := storage.TransactionRow(models.TransactionColumns, txn, s.now())

	query := `
		INSERT INTO transactions (name, amount_paid, date, week, receipt_link, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query, row[0], row[1], row[2], row[3], row[4], s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}
