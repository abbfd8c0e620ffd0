// Package storage provides abstractions for the tabular data store.
//
// The store is a spreadsheet with two tabs: TRANSACTION (one row per
// contribution) and AUTHENTICATION (one row per credential). Adapters read
// a tab as a header-keyed models.Table and append rows in the tab's live
// header order.
package storage

import (
	"context"

	"github.com/mmynk/familyfund/internal/metrics"
	"github.com/mmynk/familyfund/internal/models"
)

// TransactionStore reads and appends contribution rows.
type TransactionStore interface {
	// FetchTransactions returns the full TRANSACTION tab. Headers are
	// trimmed and upper-cased. An empty tab yields an empty Table.
	FetchTransactions(ctx context.Context) (models.Table, error)

	// AppendTransaction adds one row, mapping fields onto the live header.
	AppendTransaction(ctx context.Context, txn models.Transaction) error
}

// CredentialStore reads and appends credential rows.
type CredentialStore interface {
	FetchCredentials(ctx context.Context) ([]models.Credential, error)
	AppendCredential(ctx context.Context, cred models.Credential) error
}

// Store is a complete backend. Identity names the data source so caches
// can key on it (for example the spreadsheet id).
type Store interface {
	TransactionStore
	CredentialStore

	Identity() string

	// Close releases any resources held by the store.
	Close() error
}

// Observe records the outcome of one store call.
func Observe(backend, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.StoreCalls.WithLabelValues(backend, op, outcome).Inc()
}
