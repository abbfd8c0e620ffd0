package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/familyfund/internal/models"
)

const (
	userTopContributors  = 8
	adminTopContributors = 10
	adminRecentRows      = 20
	recentWindowDays     = 30
)

// WeekRange is the inclusive span of contribution weeks.
type WeekRange struct {
	Start int
	End   int
}

// Weeks returns the number of weeks in the range.
func (r WeekRange) Weeks() int {
	return r.End - r.Start + 1
}

// Contains reports whether week is inside the range.
func (r WeekRange) Contains(week int) bool {
	return week >= r.Start && week <= r.End
}

// UserSummary is what a member sees on their dashboard.
type UserSummary struct {
	Username    string
	UserTotal   decimal.Decimal
	FundTotal   decimal.Decimal
	OthersTotal decimal.Decimal
	// EquityPct is the member's share of the fund, 0 when the fund is empty.
	EquityPct       float64
	UserMonthly     []MonthTotal
	FundMonthly     []MonthTotal
	TopContributors []MemberTotal
	// Transactions are the member's own rows, newest first.
	Transactions []models.Transaction
}

// UserDashboard builds the member dashboard for username.
func UserDashboard(txns []models.Transaction, username string) UserSummary {
	mine := ForMember(txns, username)

	userTotal := Sum(mine)
	fundTotal := Sum(txns)

	return UserSummary{
		Username:        models.NormalizeName(username),
		UserTotal:       userTotal,
		FundTotal:       fundTotal,
		OthersTotal:     fundTotal.Sub(userTotal),
		EquityPct:       Percent(userTotal, fundTotal),
		UserMonthly:     ByMonth(mine),
		FundMonthly:     ByMonth(txns),
		TopContributors: ByMember(txns, userTopContributors),
		Transactions:    NewestFirst(mine),
	}
}

// AdminFilter narrows the admin dashboard tables. Zero values mean "all".
type AdminFilter struct {
	Member string
	Month  string // YYYY-MM
	Week   int
}

// AdminSummary is the admin dashboard.
type AdminSummary struct {
	TotalFund        decimal.Decimal
	TransactionCount int
	ActiveMembers    int
	// Last30Days is the inflow in the 30 days up to the latest dated row.
	Last30Days decimal.Decimal
	// Coverage is the share of expected member-weeks that have a submission.
	Coverage float64

	MemberOptions []string
	MonthOptions  []string
	WeekOptions   []int

	Filter          AdminFilter
	FilteredTotal   decimal.Decimal
	FilteredCount   int
	TopContributors []MemberTotal
	MonthlyInflow   []MonthTotal
	Recent          []models.Transaction
}

// AdminDashboard builds the admin dashboard. Rows without a name or a valid
// amount are ignored throughout.
func AdminDashboard(all []models.Transaction, weeks WeekRange, filter AdminFilter) AdminSummary {
	txns := ValidOnly(all)
	members := Members(txns)

	s := AdminSummary{
		TotalFund:        Sum(txns),
		TransactionCount: len(txns),
		ActiveMembers:    len(members),
		Last30Days:       lastDays(txns, recentWindowDays),
		Coverage:         coverage(txns, len(members), weeks),
		MemberOptions:    members,
		MonthOptions:     monthOptions(txns),
		WeekOptions:      weekOptions(txns, weeks),
		Filter:           filter,
	}

	filtered := applyFilter(txns, filter)
	s.FilteredTotal = Sum(filtered)
	s.FilteredCount = len(filtered)
	s.TopContributors = ByMember(filtered, adminTopContributors)
	s.MonthlyInflow = ByMonth(filtered)

	recent := NewestFirst(filtered)
	if len(recent) > adminRecentRows {
		recent = recent[:adminRecentRows]
	}
	s.Recent = recent
	return s
}

// lastDays sums rows dated within n days of the latest dated row.
func lastDays(txns []models.Transaction, n int) decimal.Decimal {
	var latest *models.Transaction
	for i := range txns {
		if d := txns[i].Date; d != nil && (latest == nil || d.After(*latest.Date)) {
			latest = &txns[i]
		}
	}
	if latest == nil {
		return decimal.Zero
	}

	cutoff := latest.Date.AddDate(0, 0, -n)
	total := decimal.Zero
	for _, t := range txns {
		if t.Date != nil && !t.Date.Before(cutoff) {
			total = total.Add(t.Value())
		}
	}
	return total
}

// coverage is distinct (member, week) pairs in range over members × weeks.
func coverage(txns []models.Transaction, members int, weeks WeekRange) float64 {
	expected := members * weeks.Weeks()
	if expected <= 0 {
		return 0
	}
	submitted := len(memberWeeks(txns, weeks))
	return Percent(decimal.NewFromInt(int64(submitted)), decimal.NewFromInt(int64(expected)))
}

type memberWeek struct {
	name string
	week int
}

func memberWeeks(txns []models.Transaction, weeks WeekRange) map[memberWeek]bool {
	pairs := make(map[memberWeek]bool)
	for _, t := range txns {
		if weeks.Contains(t.WeekNumber) {
			pairs[memberWeek{t.Name, t.WeekNumber}] = true
		}
	}
	return pairs
}

func monthOptions(txns []models.Transaction) []string {
	months := ByMonth(txns)
	out := make([]string, len(months))
	for i, m := range months {
		out[i] = m.Label()
	}
	return out
}

// weekOptions is every week in range plus any out-of-range week seen in data.
func weekOptions(txns []models.Transaction, weeks WeekRange) []int {
	seen := make(map[int]bool)
	for w := weeks.Start; w <= weeks.End; w++ {
		seen[w] = true
	}
	for _, t := range txns {
		if t.WeekNumber > 0 {
			seen[t.WeekNumber] = true
		}
	}
	out := make([]int, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Ints(out)
	return out
}

func applyFilter(txns []models.Transaction, f AdminFilter) []models.Transaction {
	out := make([]models.Transaction, 0, len(txns))
	for _, t := range txns {
		if f.Member != "" && t.Name != f.Member {
			continue
		}
		if f.Month != "" && (t.Date == nil || t.Date.Format("2006-01") != f.Month) {
			continue
		}
		if f.Week != 0 && t.WeekNumber != f.Week {
			continue
		}
		out = append(out, t)
	}
	return out
}
