package report

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/saldo/ledger"
)

// Constraint bounds the recent-transactions working set. A zero Start or End
// leaves that side open; a zero Limit means no row cap.
type Constraint struct {
	Start ledger.Date `json:"start,omitempty"`
	End   ledger.Date `json:"end,omitempty"`
	Limit int         `json:"limit,omitempty"`
}

// Limit maps a limit type and its value to a constraint relative to today.
// Weeks run Monday to Sunday; months are calendar months.
func Limit(limitType ledger.LimitType, value int, today ledger.Date) (Constraint, error) {
	switch limitType {
	case ledger.LimitTransactionCount:
		if value <= 0 {
			return Constraint{}, &ledger.InvalidDateRangeError{Reason: fmt.Sprintf("transaction count must be positive, got %d", value)}
		}
		return Constraint{Limit: value}, nil

	case ledger.LimitWeekCount:
		if value <= 0 {
			return Constraint{}, &ledger.InvalidDateRangeError{Reason: fmt.Sprintf("week count must be positive, got %d", value)}
		}
		monday := unitWeek.align(today)
		return Constraint{Start: monday.AddDays(-7 * (value - 1)), End: monday.AddDays(6)}, nil

	case ledger.LimitThisMonth:
		first := unitMonth.align(today)
		return Constraint{Start: first, End: first.AddMonths(1).AddDays(-1)}, nil

	case ledger.LimitThisAndLastMonth:
		first := unitMonth.align(today)
		return Constraint{Start: first.AddMonths(-1), End: first.AddMonths(1).AddDays(-1)}, nil

	default:
		return Constraint{}, fmt.Errorf("unknown transaction amount limit type %d", int(limitType))
	}
}

// LimitFromPreferences is Limit with the type and value taken from prefs.
func LimitFromPreferences(prefs ledger.Preferences, today ledger.Date) (Constraint, error) {
	return Limit(prefs.TransactionAmountLimitType, prefs.TransactionAmountLimitValue, today)
}

// Contains reports whether day satisfies the date bounds.
func (c Constraint) Contains(day ledger.Date) bool {
	if !c.Start.IsZero() && day.Before(c.Start) {
		return false
	}
	if !c.End.IsZero() && day.After(c.End) {
		return false
	}
	return true
}

// Apply returns the transfers within the date bounds, newest first (day
// descending, then id descending), capped at Limit. The input is not modified.
func (c Constraint) Apply(transfers []ledger.Transfer) []ledger.Transfer {
	out := make([]ledger.Transfer, 0, len(transfers))
	for _, t := range transfers {
		if c.Contains(t.Day) {
			out = append(out, t)
		}
	}

	slices.SortFunc(out, func(a, b ledger.Transfer) int {
		if cmp := b.Day.Compare(a.Day); cmp != 0 {
			return cmp
		}
		return int(b.ID - a.ID)
	})

	if c.Limit > 0 && len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out
}
