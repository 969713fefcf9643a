package report

import (
	"fmt"
	"sort"

	"github.com/robinvdvleuten/saldo/ledger"
)

// unit is a calendar unit; larger values are coarser.
type unit int

const (
	unitNone unit = iota
	unitDay
	unitWeek
	unitMonth
	unitQuarter
	unitHalfYear
	unitYear
)

// align returns the first day of the calendar unit containing d. Weeks start
// on Monday.
func (u unit) align(d ledger.Date) ledger.Date {
	switch u {
	case unitWeek:
		return d.AddDays(-((int(d.Weekday()) + 6) % 7))
	case unitMonth:
		return ledger.NewDate(d.Year(), d.Month(), 1)
	case unitQuarter:
		return ledger.NewDate(d.Year(), (d.Month()-1)/3*3+1, 1)
	case unitHalfYear:
		return ledger.NewDate(d.Year(), (d.Month()-1)/6*6+1, 1)
	case unitYear:
		return ledger.NewDate(d.Year(), 1, 1)
	default:
		return d
	}
}

// next returns the first day of the unit after the one starting at start.
func (u unit) next(start ledger.Date) ledger.Date {
	switch u {
	case unitWeek:
		return start.AddDays(7)
	case unitMonth:
		return start.AddMonths(1)
	case unitQuarter:
		return start.AddMonths(3)
	case unitHalfYear:
		return start.AddMonths(6)
	case unitYear:
		return start.AddMonths(12)
	default:
		return start.AddDays(1)
	}
}

// PeriodType selects the date range of a report.
type PeriodType int

const (
	// PeriodSelected uses the definition's explicit start and end.
	PeriodSelected PeriodType = iota
	PeriodDay
	PeriodWeek
	PeriodMonth
	PeriodQuarter
	PeriodHalfYear
	PeriodYear
)

var periodTypeNames = []string{"SELECTED", "DAY", "WEEK", "MONTH", "QUARTER", "HALF_YEAR", "YEAR"}

func (p PeriodType) String() string { return enumName("PeriodType", periodTypeNames, int(p)) }

// ParsePeriodType parses a period type name (case-insensitive).
func ParsePeriodType(s string) (PeriodType, error) {
	i, err := parseEnum("period type", periodTypeNames, s)
	return PeriodType(i), err
}

func (p PeriodType) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PeriodType) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriodType(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p PeriodType) unit() unit {
	if p == PeriodSelected {
		return unitNone
	}
	return unit(p)
}

// Range resolves the report range. Non-selected types give the calendar
// period containing today.
func (p PeriodType) Range(today, start, end ledger.Date) (ledger.Date, ledger.Date, error) {
	if p == PeriodSelected {
		if start.IsZero() || end.IsZero() {
			return start, end, &ledger.InvalidDateRangeError{Start: start, End: end, Reason: "selected period needs a start and an end"}
		}
		if end.Before(start) {
			return start, end, &ledger.InvalidDateRangeError{Start: start, End: end, Reason: "end is before start"}
		}
		return start, end, nil
	}
	if p < PeriodSelected || p > PeriodYear {
		return start, end, fmt.Errorf("unknown period type %d", int(p))
	}
	if today.IsZero() {
		return start, end, &ledger.InvalidDateRangeError{Reason: fmt.Sprintf("period %s needs a reference date", p)}
	}

	u := p.unit()
	from := u.align(today)
	return from, u.next(from).AddDays(-1), nil
}

// PeriodDivision is the bucket granularity of flow and value reports.
type PeriodDivision int

const (
	DivisionNone PeriodDivision = iota
	DivisionDay
	DivisionWeek
	DivisionMonth
	DivisionQuarter
	DivisionHalfYear
	DivisionYear
)

var periodDivisionNames = []string{"NONE", "DAY", "WEEK", "MONTH", "QUARTER", "HALF_YEAR", "YEAR"}

func (d PeriodDivision) String() string {
	return enumName("PeriodDivision", periodDivisionNames, int(d))
}

// ParsePeriodDivision parses a period division name (case-insensitive).
func ParsePeriodDivision(s string) (PeriodDivision, error) {
	i, err := parseEnum("period division", periodDivisionNames, s)
	return PeriodDivision(i), err
}

func (d PeriodDivision) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *PeriodDivision) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriodDivision(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// CheckDivision fails with InvalidDateRange when division is coarser than
// the period type, for example monthly buckets over a weekly report.
func CheckDivision(p PeriodType, d PeriodDivision) error {
	if d < DivisionNone || d > DivisionYear {
		return fmt.Errorf("unknown period division %d", int(d))
	}
	if p == PeriodSelected || d == DivisionNone {
		return nil
	}
	if unit(d) > p.unit() {
		return &ledger.InvalidDateRangeError{Reason: fmt.Sprintf("period division %s is coarser than period type %s", d, p)}
	}
	return nil
}

// Period is an inclusive range of days.
type Period struct {
	Start ledger.Date `json:"start"`
	End   ledger.Date `json:"end"`
}

// Contains reports whether day lies within the period.
func (p Period) Contains(day ledger.Date) bool {
	return !day.Before(p.Start) && !day.After(p.End)
}

func (p Period) String() string {
	if p.Start.Equal(p.End) {
		return p.Start.String()
	}
	return p.Start.String() + ".." + p.End.String()
}

// Periods is an ordered, gapless list of periods. It implements
// ledger.Bucketer: a day maps to the index of its period, or -1 outside.
type Periods []Period

// Divide splits [start, end] into calendar-aligned periods clipped to the
// range. DivisionNone yields a single period.
func Divide(start, end ledger.Date, division PeriodDivision) Periods {
	if end.Before(start) {
		return nil
	}
	u := unit(division)
	if u == unitNone {
		return Periods{{Start: start, End: end}}
	}

	var out Periods
	for cur := u.align(start); !cur.After(end); cur = u.next(cur) {
		p := Period{Start: cur, End: u.next(cur).AddDays(-1)}
		if p.Start.Before(start) {
			p.Start = start
		}
		if p.End.After(end) {
			p.End = end
		}
		out = append(out, p)
	}
	return out
}

// Bucket returns the index of the period containing day, or -1.
func (ps Periods) Bucket(day ledger.Date) int {
	i := sort.Search(len(ps), func(i int) bool { return !ps[i].End.Before(day) })
	if i < len(ps) && ps[i].Contains(day) {
		return i
	}
	return -1
}

// withOpening maps days before the first period to an extra trailing bucket,
// len(periods), so a single calculation also yields the opening balance.
type withOpening struct {
	periods Periods
}

func (w withOpening) Bucket(day ledger.Date) int {
	if len(w.periods) > 0 && day.Before(w.periods[0].Start) {
		return len(w.periods)
	}
	return w.periods.Bucket(day)
}
