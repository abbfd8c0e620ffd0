package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/familyfund/internal/models"
)

const fundShareTop = 8

// MemberProgress is one member's submission count over the week range.
type MemberProgress struct {
	Name         string
	Submitted    int
	Missing      int
	MissingWeeks []int
}

// MemberDetail is the drill-down for one member on the review page.
type MemberDetail struct {
	Name         string
	TotalPaid    decimal.Decimal
	PaidWeeks    []int
	MissingWeeks []int
	Transactions []models.Transaction
}

// Review is the admin review page.
type Review struct {
	Weeks           WeekRange
	MembersTracked  int
	ExpectedTotal   int
	SubmittedUnique int
	MissingTotal    int
	Completion      float64
	// Progress is sorted by Missing descending, then by name.
	Progress  []MemberProgress
	FundShare []MemberTotal
	Members   []string
	Detail    *MemberDetail
	// Log is every valid row, newest first.
	Log []models.Transaction
}

// AdminReview builds the review page. Members are those with a submission
// in range, falling back to every known name. member picks the drill-down;
// empty or unknown selects the first member.
func AdminReview(all []models.Transaction, weeks WeekRange, member string) Review {
	txns := ValidOnly(all)

	var inRange []models.Transaction
	for _, t := range txns {
		if weeks.Contains(t.WeekNumber) {
			inRange = append(inRange, t)
		}
	}

	members := Members(inRange)
	if len(members) == 0 {
		members = Members(txns)
	}

	expected := len(members) * weeks.Weeks()
	submitted := len(memberWeeks(inRange, weeks))

	r := Review{
		Weeks:           weeks,
		MembersTracked:  len(members),
		ExpectedTotal:   expected,
		SubmittedUnique: submitted,
		MissingTotal:    max(expected-submitted, 0),
		FundShare:       ByMember(txns, fundShareTop),
		Members:         members,
		Log:             NewestFirst(txns),
	}
	if expected > 0 {
		r.Completion = Percent(decimal.NewFromInt(int64(submitted)), decimal.NewFromInt(int64(expected)))
	}

	for _, name := range members {
		paid := PaidWeeks(ForMember(inRange, name))
		missing := missingWeeks(paid, weeks)
		r.Progress = append(r.Progress, MemberProgress{
			Name:         name,
			Submitted:    weeks.Weeks() - len(missing),
			Missing:      len(missing),
			MissingWeeks: missing,
		})
	}
	sort.SliceStable(r.Progress, func(i, j int) bool {
		if r.Progress[i].Missing != r.Progress[j].Missing {
			return r.Progress[i].Missing > r.Progress[j].Missing
		}
		return r.Progress[i].Name < r.Progress[j].Name
	})

	if len(members) > 0 {
		selected := members[0]
		for _, m := range members {
			if m == member {
				selected = m
				break
			}
		}
		r.Detail = memberDetail(txns, weeks, selected)
	}
	return r
}

func memberDetail(txns []models.Transaction, weeks WeekRange, name string) *MemberDetail {
	mine := ForMember(txns, name)
	paid := PaidWeeks(mine)

	var paidWeeks []int
	for w := range paid {
		if weeks.Contains(w) {
			paidWeeks = append(paidWeeks, w)
		}
	}
	sort.Ints(paidWeeks)

	return &MemberDetail{
		Name:         name,
		TotalPaid:    Sum(mine),
		PaidWeeks:    paidWeeks,
		MissingWeeks: missingWeeks(paid, weeks),
		Transactions: NewestFirst(mine),
	}
}

func missingWeeks(paid map[int]bool, weeks WeekRange) []int {
	var out []int
	for w := weeks.Start; w <= weeks.End; w++ {
		if !paid[w] {
			out = append(out, w)
		}
	}
	return out
}
