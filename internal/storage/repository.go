package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/familyfund/internal/cache"
	"github.com/mmynk/familyfund/internal/models"
)

// Default cache lifetimes.
const (
	DefaultTransactionTTL = 45 * time.Second
	DefaultCredentialTTL  = 60 * time.Second
)

// Repository puts a read cache in front of a Store. Reads are served from
// the cache while fresh; every write invalidates the affected tab.
type Repository struct {
	store        Store
	transactions *cache.Cache[models.Table]
	credentials  *cache.Cache[[]models.Credential]
}

// NewRepository wraps store. Zero TTLs use the defaults.
func NewRepository(store Store, txnTTL, credTTL time.Duration) *Repository {
	if txnTTL <= 0 {
		txnTTL = DefaultTransactionTTL
	}
	if credTTL <= 0 {
		credTTL = DefaultCredentialTTL
	}
	return &Repository{
		store:        store,
		transactions: cache.New[models.Table]("transactions", txnTTL),
		credentials:  cache.New[[]models.Credential]("credentials", credTTL),
	}
}

func (r *Repository) txnKey() string  { return r.store.Identity() + "/TRANSACTION" }
func (r *Repository) credKey() string { return r.store.Identity() + "/AUTHENTICATION" }

// Transactions returns the TRANSACTION tab. force drops the cached copy
// first so the read goes to the store.
func (r *Repository) Transactions(ctx context.Context, force bool) (models.Table, error) {
	if force {
		r.transactions.Invalidate(r.txnKey())
	}
	t, err := r.transactions.Get(ctx, r.txnKey(), r.store.FetchTransactions)
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	return t.Clone(), nil
}

// AppendTransaction writes txn and invalidates the cached tab.
func (r *Repository) AppendTransaction(ctx context.Context, txn models.Transaction) error {
	defer r.transactions.Invalidate(r.txnKey())
	if err := r.store.AppendTransaction(ctx, txn); err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// ListCredentials returns every stored credential.
func (r *Repository) ListCredentials(ctx context.Context) ([]models.Credential, error) {
	creds, err := r.credentials.Get(ctx, r.credKey(), r.store.FetchCredentials)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch credentials: %w", err)
	}
	return append([]models.Credential(nil), creds...), nil
}

// AppendCredential writes cred and invalidates the cached tab.
func (r *Repository) AppendCredential(ctx context.Context, cred models.Credential) error {
	defer r.credentials.Invalidate(r.credKey())
	if err := r.store.AppendCredential(ctx, cred); err != nil {
		return fmt.Errorf("failed to append credential: %w", err)
	}
	return nil
}

