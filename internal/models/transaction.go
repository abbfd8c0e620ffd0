package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical TRANSACTION tab columns.
const (
	ColName    = "NAME"
	ColAmount  = "AMOUNT PAID"
	ColDate    = "DATE"
	ColWeek    = "WEEK"
	ColReceipt = "RECEIPT LINK"
)

// TransactionColumns lists the canonical columns in their display order.
var TransactionColumns = []string{ColName, ColAmount, ColDate, ColWeek, ColReceipt}

// DateLayout is the DD/MM/YYYY layout used in the DATE column.
const DateLayout = "02/01/2006"

// Transaction is one cleaned contribution.
type Transaction struct {
	Name string

	// Amount is invalid when the cell could not be parsed as a number.
	Amount decimal.NullDecimal

	// Date is nil when the cell is not a valid DD/MM/YYYY date.
	Date *time.Time

	// Week is the lower-cased label, e.g. "week 9".
	Week string

	// WeekNumber is the first integer in Week, or 0 when there is none.
	WeekNumber int

	ReceiptLink string
}

// HasAmount reports whether the amount parsed.
func (t Transaction) HasAmount() bool {
	return t.Amount.Valid
}

// Value returns the amount, or zero when it did not parse.
func (t Transaction) Value() decimal.Decimal {
	if !t.Amount.Valid {
		return decimal.Zero
	}
	return t.Amount.Decimal
}

// DateString formats Date as DD/MM/YYYY, or "" when unset.
func (t Transaction) DateString() string {
	if t.Date == nil {
		return ""
	}
	return t.Date.Format(DateLayout)
}

// WeekLabel returns the canonical label for week n ("week 9").
func WeekLabel(n int) string {
	return fmt.Sprintf("week %d", n)
}

// NormalizeWeek trims and lower-cases a week label.
func NormalizeWeek(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeHeader trims and upper-cases a column header.
func NormalizeHeader(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
