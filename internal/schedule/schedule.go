// Package schedule decides which contribution week is open and which one a
// member owes next.
//
// Weeks are numbered from StartWeek to EndWeek inclusive. StartWeek opens on
// the Anchor Monday, and one more week opens every Monday after that.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Defaults for the current contribution cycle.
const (
	DefaultStartWeek = 6
	DefaultEndWeek   = 40 // 10 months × 4 weeks
)

// DefaultAnchor is the Monday week DefaultStartWeek opened.
var DefaultAnchor = time.Date(2026, time.February, 9, 0, 0, 0, 0, time.UTC)

// mondays fires at midnight every Monday.
var mondays = mustParse("0 0 * * MON")

func mustParse(spec string) cron.Schedule {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		panic(fmt.Sprintf("schedule: bad cron spec %q: %v", spec, err))
	}
	return s
}

// Calendar holds the week range and the anchor date.
type Calendar struct {
	StartWeek int
	EndWeek   int
	Anchor    time.Time
}

// Default returns the calendar for the current cycle.
func Default() Calendar {
	return Calendar{StartWeek: DefaultStartWeek, EndWeek: DefaultEndWeek, Anchor: DefaultAnchor}
}

// Validate checks the range is sane.
func (c Calendar) Validate() error {
	if c.StartWeek < 1 {
		return fmt.Errorf("start week must be positive, got %d", c.StartWeek)
	}
	if c.EndWeek < c.StartWeek {
		return fmt.Errorf("end week %d is before start week %d", c.EndWeek, c.StartWeek)
	}
	if c.Anchor.IsZero() {
		return fmt.Errorf("anchor date is required")
	}
	return nil
}

// Weeks returns the number of weeks in the range.
func (c Calendar) Weeks() int {
	return c.EndWeek - c.StartWeek + 1
}

// InRange reports whether week falls inside the calendar.
func (c Calendar) InRange(week int) bool {
	return week >= c.StartWeek && week <= c.EndWeek
}

// OpenWeek returns the highest week number open on today. On or before the
// anchor that is StartWeek; afterwards it grows by one every seven days and
// stops at EndWeek.
func (c Calendar) OpenWeek(today time.Time) int {
	day, anchor := civil(today), civil(c.Anchor)
	if !day.After(anchor) {
		return c.StartWeek
	}
	days := int(day.Sub(anchor).Hours() / 24)
	return min(c.StartWeek+days/7, c.EndWeek)
}

// DueWeek returns the smallest week at or after StartWeek missing from paid.
// When every week through EndWeek is paid it returns EndWeek+1.
func (c Calendar) DueWeek(paid map[int]bool) int {
	week := c.StartWeek
	for paid[week] && week <= c.EndWeek {
		week++
	}
	return week
}

// Complete reports whether due is past the end of the calendar.
func (c Calendar) Complete(due int) bool {
	return due > c.EndWeek
}

// CanSubmit reports whether the due week may be paid given the open week.
func (c Calendar) CanSubmit(due, open int) bool {
	return due <= open && due <= c.EndWeek
}

// NextMonday returns the first Monday strictly after today's date.
// A Monday yields the following Monday.
func NextMonday(today time.Time) time.Time {
	return mondays.Next(civilIn(today))
}

// Plan is the scheduling state of one member on one day.
type Plan struct {
	OpenWeek  int
	DueWeek   int
	Complete  bool
	CanSubmit bool
	// NextOpen is the date the next week opens; set when the due week is
	// not yet open.
	NextOpen time.Time
}

// Plan combines OpenWeek, DueWeek and CanSubmit for a member.
func (c Calendar) Plan(today time.Time, paid map[int]bool) Plan {
	open := c.OpenWeek(today)
	due := c.DueWeek(paid)
	p := Plan{
		OpenWeek:  open,
		DueWeek:   due,
		Complete:  c.Complete(due),
		CanSubmit: c.CanSubmit(due, open),
	}
	if !p.Complete && !p.CanSubmit {
		p.NextOpen = NextMonday(today)
	}
	return p
}

// civil drops the clock and zone, keeping the calendar date as UTC midnight.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// civilIn is midnight of t's date in t's own location.
func civilIn(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
