package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/mmynk/familyfund/internal/models"
)

type fakeStore struct {
	table      models.Table
	creds      []models.Credential
	txnFetches int
	credReads  int
	appendErr  error
}

func (f *fakeStore) Identity() string { return "fake" }
func (f *fakeStore) Close() error     { return nil }

func (f *fakeStore) FetchTransactions(ctx context.Context) (models.Table, error) {
	f.txnFetches++
	return f.table.Clone(), nil
}

func (f *fakeStore) AppendTransaction(ctx context.Context, txn models.Transaction) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.table.Rows = append(f.table.Rows, TransactionRow(f.table.Columns, txn, time.Now()))
	return nil
}

func (f *fakeStore) FetchCredentials(ctx context.Context) ([]models.Credential, error) {
	f.credReads++
	return append([]models.Credential(nil), f.creds...), nil
}

func (f *fakeStore) AppendCredential(ctx context.Context, cred models.Credential) error {
	f.creds = append(f.creds, cred)
	return nil
}

func TestTransactionRow(t *testing.T) {
	today := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	txn := models.Transaction{
		Name:   " alice ",
		Amount: decimal.NewNullDecimal(decimal.NewFromInt(1500)),
		Week:   "Week 9",
	}

	tests := []struct {
		name   string
		header []string
		want   []string
	}{
		{
			"canonical order",
			[]string{"NAME", "AMOUNT PAID", "DATE", "WEEK", "RECEIPT LINK"},
			[]string{"Alice", "1500.00", "02/03/2026", "week 9", ""},
		},
		{
			"shuffled messy headers with an unknown column",
			[]string{" week", "Notes", "name ", "Amount Paid"},
			[]string{"week 9", "", "Alice", "1500.00"},
		},
		{
			"no header",
			nil,
			[]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransactionRow(tt.header, txn, today)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("row mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCredentialsSkipsBlankRows(t *testing.T) {
	table := models.NewTable([][]string{
		{"username", "password"},
		{"Alice", "hash-a"},
		{"", "orphan"},
		{" Bob ", " hash-b "},
	})

	want := []models.Credential{
		{Username: "Alice", PasswordHash: "hash-a"},
		{Username: "Bob", PasswordHash: "hash-b"},
	}
	if diff := cmp.Diff(want, Credentials(table)); diff != "" {
		t.Errorf("credentials mismatch (-want +got):\n%s", diff)
	}

	row := CredentialRow([]string{"PASSWORD", "USERNAME", "EXTRA"}, want[0])
	if diff := cmp.Diff([]string{"hash-a", "Alice", ""}, row); diff != "" {
		t.Errorf("credential row mismatch (-want +got):\n%s", diff)
	}
}

func TestRepositoryCachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{table: models.Table{Columns: models.TransactionColumns}}
	repo := NewRepository(store, time.Minute, time.Minute)

	repo.Transactions(ctx, false)
	repo.Transactions(ctx, false)
	if store.txnFetches != 1 {
		t.Errorf("fetches = %d, want 1 while cached", store.txnFetches)
	}

	repo.Transactions(ctx, true)
	if store.txnFetches != 2 {
		t.Errorf("fetches = %d, want 2 after forced read", store.txnFetches)
	}

	err := repo.AppendTransaction(ctx, models.Transaction{Name: "alice", Week: "week 6"})
	if err != nil {
		t.Fatalf("AppendTransaction failed: %v", err)
	}
	table, _ := repo.Transactions(ctx, false)
	if store.txnFetches != 3 || table.Len() != 1 {
		t.Errorf("append should invalidate: fetches=%d rows=%d", store.txnFetches, table.Len())
	}

	// Returned tables are copies.
	table.Rows[0][0] = "Mallory"
	again, _ := repo.Transactions(ctx, false)
	if again.Rows[0][0] != "Alice" {
		t.Errorf("cached table was mutated through a returned copy: %q", again.Rows[0][0])
	}
}

func TestRepositoryInvalidatesOnFailedAppend(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	store := &fakeStore{table: models.Table{Columns: models.TransactionColumns}, appendErr: boom}
	repo := NewRepository(store, time.Minute, time.Minute)

	repo.Transactions(ctx, false)
	if err := repo.AppendTransaction(ctx, models.Transaction{Name: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	repo.Transactions(ctx, false)
	if store.txnFetches != 2 {
		t.Errorf("a failed append may have partially written; expected refetch, fetches=%d", store.txnFetches)
	}
}

func TestRepositoryCredentials(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	repo := NewRepository(store, 0, 0)

	repo.ListCredentials(ctx)
	repo.ListCredentials(ctx)
	if store.credReads != 1 {
		t.Errorf("credential reads = %d, want 1", store.credReads)
	}

	repo.AppendCredential(ctx, models.Credential{Username: "Alice", PasswordHash: "h"})
	creds, _ := repo.ListCredentials(ctx)
	if store.credReads != 2 || len(creds) != 1 {
		t.Errorf("register should invalidate: reads=%d creds=%d", store.credReads, len(creds))
	}
}
