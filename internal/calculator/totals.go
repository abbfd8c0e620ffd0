// Package calculator computes the dashboard and review aggregates from
// cleaned transactions. Every function here is pure.
package calculator

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/familyfund/internal/models"
)

// MemberTotal is the sum of one member's contributions.
type MemberTotal struct {
	Name   string
	Amount decimal.Decimal
}

// MonthTotal is the sum of contributions dated in one calendar month.
type MonthTotal struct {
	Month  time.Time // first day of the month, UTC
	Amount decimal.Decimal
}

// Label formats the month as YYYY-MM.
func (m MonthTotal) Label() string {
	return m.Month.Format("2006-01")
}

// Sum adds up every valid amount. Null amounts are skipped.
func Sum(txns []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		if t.Amount.Valid {
			total = total.Add(t.Amount.Decimal)
		}
	}
	return total
}

// Percent returns part/whole*100 rounded to two places, or 0 when whole is zero.
func Percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

// ByMember sums amounts per member, largest first, ties by name. limit <= 0
// returns all members.
func ByMember(txns []models.Transaction, limit int) []MemberTotal {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if !t.Amount.Valid {
			continue
		}
		sums[t.Name] = sums[t.Name].Add(t.Amount.Decimal)
	}

	out := make([]MemberTotal, 0, len(sums))
	for name, amount := range sums {
		out = append(out, MemberTotal{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ByMonth sums dated transactions per calendar month, oldest first.
// Rows without a date are left out.
func ByMonth(txns []models.Transaction) []MonthTotal {
	sums := make(map[time.Time]decimal.Decimal)
	for _, t := range txns {
		if t.Date == nil || !t.Amount.Valid {
			continue
		}
		key := monthStart(*t.Date)
		sums[key] = sums[key].Add(t.Amount.Decimal)
	}

	out := make([]MonthTotal, 0, len(sums))
	for month, amount := range sums {
		out = append(out, MonthTotal{Month: month, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// ForMember returns the transactions whose name matches username,
// case-insensitively.
func ForMember(txns []models.Transaction, username string) []models.Transaction {
	var out []models.Transaction
	for _, t := range txns {
		if strings.EqualFold(t.Name, strings.TrimSpace(username)) {
			out = append(out, t)
		}
	}
	return out
}

// PaidWeeks returns the set of week numbers in txns.
func PaidWeeks(txns []models.Transaction) map[int]bool {
	paid := make(map[int]bool)
	for _, t := range txns {
		if t.WeekNumber > 0 {
			paid[t.WeekNumber] = true
		}
	}
	return paid
}

// NewestFirst returns a copy of txns sorted by date descending. Undated rows
// go last, keeping their relative order.
func NewestFirst(txns []models.Transaction) []models.Transaction {
	out := append([]models.Transaction(nil), txns...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return out
}

// Members returns the sorted distinct non-empty names in txns.
func Members(txns []models.Transaction) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range txns {
		if t.Name == "" || seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		out = append(out, t.Name)
	}
	sort.Strings(out)
	return out
}

// ValidOnly drops rows without a name or a parseable amount.
func ValidOnly(txns []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Name != "" && t.Amount.Valid {
			out = append(out, t)
		}
	}
	return out
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
