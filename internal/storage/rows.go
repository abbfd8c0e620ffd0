package storage

import (
	"strings"
	"time"

	"github.com/mmynk/familyfund/internal/models"
)

// TransactionRow lays txn out in header order. Header names are matched
// after normalization. Unknown header columns are left blank and canonical
// fields without a column are dropped. A missing date defaults to today.
func TransactionRow(header []string, txn models.Transaction, today time.Time) []string {
	values := map[string]string{
		models.ColName:    models.NormalizeName(txn.Name),
		models.ColAmount:  "",
		models.ColDate:    txn.DateString(),
		models.ColWeek:    models.NormalizeWeek(txn.Week),
		models.ColReceipt: strings.TrimSpace(txn.ReceiptLink),
	}
	if txn.Amount.Valid {
		values[models.ColAmount] = txn.Amount.Decimal.StringFixed(2)
	}
	if txn.Date == nil {
		values[models.ColDate] = today.Format(models.DateLayout)
	}

	row := make([]string, len(header))
	for i, h := range header {
		row[i] = values[models.NormalizeHeader(h)]
	}
	return row
}

// CredentialRow lays cred out in header order.
func CredentialRow(header []string, cred models.Credential) []string {
	row := make([]string, len(header))
	for i, h := range header {
		switch models.NormalizeHeader(h) {
		case models.ColUsername:
			row[i] = cred.Username
		case models.ColPassword:
			row[i] = cred.PasswordHash
		}
	}
	return row
}

// Credentials reads credential records from a tab. Rows without a username
// are skipped.
func Credentials(t models.Table) []models.Credential {
	out := make([]models.Credential, 0, t.Len())
	for i := range t.Rows {
		name := strings.TrimSpace(t.Cell(i, models.ColUsername))
		if name == "" {
			continue
		}
		out = append(out, models.Credential{
			Username:     name,
			PasswordHash: strings.TrimSpace(t.Cell(i, models.ColPassword)),
		})
	}
	return out
}
