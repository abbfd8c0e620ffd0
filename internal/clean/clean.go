// Package clean turns raw TRANSACTION tab tables into canonical transactions.
//
// Cleaning never fails: unparseable amounts become null, unparseable dates
// become nil, and missing columns are added empty.
package clean

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/mmynk/familyfund/internal/models"
)

// amountNoise holds characters stripped from AMOUNT PAID cells before parsing.
// Currency symbols of any kind are dropped separately.
var amountNoise = strings.NewReplacer(",", "", "?", "", "N", "", " ", "")

// dateLayout accepts day and month with or without a leading zero.
const dateLayout = "2/1/2006"

// Transactions cleans every row of raw. Empty input yields an empty slice.
func Transactions(raw models.Table) []models.Transaction {
	out := make([]models.Transaction, 0, raw.Len())
	for i := range raw.Rows {
		week := models.NormalizeWeek(raw.Cell(i, models.ColWeek))
		out = append(out, models.Transaction{
			Name:        models.NormalizeName(raw.Cell(i, models.ColName)),
			Amount:      ParseAmount(raw.Cell(i, models.ColAmount)),
			Date:        ParseDate(raw.Cell(i, models.ColDate)),
			Week:        week,
			WeekNumber:  WeekNumber(week),
			ReceiptLink: strings.TrimSpace(raw.Cell(i, models.ColReceipt)),
		})
	}
	return out
}

// Table returns raw with the canonical columns guaranteed present and their
// cells normalized: NAME title-cased, AMOUNT PAID as a plain decimal or "",
// DATE as DD/MM/YYYY or "", WEEK lower-cased. Extra columns are kept after
// the canonical ones, unchanged.
func Table(raw models.Table) models.Table {
	txns := Transactions(raw)

	var extras []string
	for _, c := range raw.Columns {
		if !isCanonical(c) {
			extras = append(extras, c)
		}
	}

	out := models.Table{
		Columns: append(append([]string(nil), models.TransactionColumns...), extras...),
		Rows:    make([][]string, len(txns)),
	}
	for i, txn := range txns {
		row := make([]string, 0, len(out.Columns))
		amount := ""
		if txn.Amount.Valid {
			amount = txn.Amount.Decimal.String()
		}
		row = append(row, txn.Name, amount, txn.DateString(), txn.Week, txn.ReceiptLink)
		for _, c := range extras {
			row = append(row, raw.Cell(i, c))
		}
		out.Rows[i] = row
	}
	return out
}

// ParseAmount strips currency noise and parses the rest as a decimal.
// Blank or non-numeric input is null.
func ParseAmount(s string) decimal.NullDecimal {
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, amountNoise.Replace(strings.TrimSpace(s)))
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// ParseDate parses a DD/MM/YYYY cell, also taking 9/2/2026. Anything else is nil.
func ParseDate(s string) *time.Time {
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &d
}

// WeekNumber extracts the first run of digits from a week label, or 0.
func WeekNumber(label string) int {
	start := strings.IndexFunc(label, unicode.IsDigit)
	if start < 0 {
		return 0
	}
	end := start
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(label[start:end])
	if err != nil {
		return 0
	}
	return n
}

func isCanonical(col string) bool {
	for _, c := range models.TransactionColumns {
		if c == col {
			return true
		}
	}
	return false
}
