// Package sheets implements storage.Store on a Google Sheets spreadsheet.
//
// The spreadsheet has a TRANSACTION tab and an AUTHENTICATION tab, each with
// a header row. Reads take the whole tab; appends map fields onto the live
// header so columns can be reordered in the sheet without a deploy.
package sheets

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/mmynk/familyfund/internal/models"
	"github.com/mmynk/familyfund/internal/storage"
)

const backend = "sheets"

// Default tab names.
const (
	DefaultTransactionTab = "TRANSACTION"
	DefaultAuthTab        = "AUTHENTICATION"
)

var _ storage.Store = (*Store)(nil)

// Config configures a Store.
type Config struct {
	SpreadsheetID  string
	TransactionTab string
	AuthTab        string
	Retry          Retrier
}

// values is the slice of the Sheets values API the store uses.
type values interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error
}

// Store implements storage.Store against one spreadsheet.
type Store struct {
	values values
	cfg    Config
	now    func() time.Time
}

// New connects to the Sheets API. opts carry credentials, typically
// option.WithCredentialsJSON from a CredentialResolver.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	opts = append([]option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}, opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return newStore(serviceValues{svc: svc}, cfg), nil
}

func newStore(v values, cfg Config) *Store {
	if cfg.TransactionTab == "" {
		cfg.TransactionTab = DefaultTransactionTab
	}
	if cfg.AuthTab == "" {
		cfg.AuthTab = DefaultAuthTab
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetrier(cfg.Retry.Timeout, 0)
	}
	return &Store{values: v, cfg: cfg, now: time.Now}
}

// Identity returns the spreadsheet id.
func (s *Store) Identity() string {
	return "sheets:" + s.cfg.SpreadsheetID
}

// Close is a no-op; the HTTP client needs no teardown.
func (s *Store) Close() error {
	return nil
}

// FetchTransactions reads the whole TRANSACTION tab.
func (s *Store) FetchTransactions(ctx context.Context) (table models.Table, err error) {
	defer func() { storage.Observe(backend, "fetch_transactions", err) }()
	return s.readTab(ctx, "fetch_transactions", s.cfg.TransactionTab)
}

// AppendTransaction appends one row to the TRANSACTION tab in live header
// order. A tab with no header gets the canonical header first.
func (s *Store) AppendTransaction(ctx context.Context, txn models.Transaction) (err error) {
	defer func() { storage.Observe(backend, "append_transaction", err) }()

	header, err := s.header(ctx, s.cfg.TransactionTab)
	if err != nil {
		return err
	}

	var rows [][]string
	if len(header) == 0 {
		header = models.TransactionColumns
		rows = append(rows, header)
	}
	rows = append(rows, storage.TransactionRow(header, txn, s.now()))
	return s.append(ctx, "append_transaction", s.cfg.TransactionTab, rows)
}

// FetchCredentials reads the AUTHENTICATION tab.
func (s *Store) FetchCredentials(ctx context.Context) (creds []models.Credential, err error) {
	defer func() { storage.Observe(backend, "fetch_credentials", err) }()

	table, err := s.readTab(ctx, "fetch_credentials", s.cfg.AuthTab)
	if err != nil {
		return nil, err
	}
	return storage.Credentials(table), nil
}

// AppendCredential appends one row to the AUTHENTICATION tab.
func (s *Store) AppendCredential(ctx context.Context, cred models.Credential) (err error) {
	defer func() { storage.Observe(backend, "append_credential", err) }()

	header, err := s.header(ctx, s.cfg.AuthTab)
	if err != nil {
		return err
	}

	var rows [][]string
	if len(header) == 0 {
		header = []string{models.ColUsername, models.ColPassword}
		rows = append(rows, header)
	}
	rows = append(rows, storage.CredentialRow(header, cred))
	return s.append(ctx, "append_credential", s.cfg.AuthTab, rows)
}

func (s *Store) readTab(ctx context.Context, op, tab string) (models.Table, error) {
	var grid [][]interface{}
	err := s.cfg.Retry.Do(ctx, op, func(ctx context.Context) error {
		var err error
		grid, err = s.values.Get(ctx, s.cfg.SpreadsheetID, tab)
		return err
	})
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to read tab %s: %w", tab, err)
	}
	return models.NewTable(toStrings(grid)), nil
}

func (s *Store) header(ctx context.Context, tab string) ([]string, error) {
	var grid [][]interface{}
	err := s.cfg.Retry.Do(ctx, "read_header", func(ctx context.Context) error {
		var err error
		grid, err = s.values.Get(ctx, s.cfg.SpreadsheetID, tab+"!1:1")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", tab, err)
	}
	if len(grid) == 0 {
		return nil, nil
	}
	return toStrings(grid)[0], nil
}

// Appends are not idempotent: a retry after a lost response can write the
// row twice.
func (s *Store) append(ctx context.Context, op, tab string, rows [][]string) error {
	data := make([][]interface{}, len(rows))
	for i, r := range rows {
		data[i] = make([]interface{}, len(r))
		for j, c := range r {
			data[i][j] = c
		}
	}

	err := s.cfg.Retry.Do(ctx, op, func(ctx context.Context) error {
		return s.values.Append(ctx, s.cfg.SpreadsheetID, tab, data)
	})
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", tab, err)
	}
	return nil
}

func toStrings(grid [][]interface{}) [][]string {
	out := make([][]string, len(grid))
	for i, row := range grid {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				out[i][j] = fmt.Sprint(cell)
			}
		}
	}
	return out
}

// serviceValues adapts the generated Sheets client.
type serviceValues struct {
	svc *gsheets.Service
}

func (v serviceValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := v.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (v serviceValues) Append(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error {
	_, err := v.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
