package report

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/saldo/ledger"
)

func TestLimit(t *testing.T) {
	tests := []struct {
		name       string
		limitType  ledger.LimitType
		value      int
		today      string
		start, end string
		limit      int
	}{
		{"TransactionCount", ledger.LimitTransactionCount, 3, "2024-05-15", "", "", 3},
		{"OneWeek", ledger.LimitWeekCount, 1, "2024-05-15", "2024-05-13", "2024-05-19", 0},
		{"TwoWeeks", ledger.LimitWeekCount, 2, "2024-05-15", "2024-05-06", "2024-05-19", 0},
		{"WeekOnSunday", ledger.LimitWeekCount, 1, "2024-05-19", "2024-05-13", "2024-05-19", 0},
		{"ThisMonth", ledger.LimitThisMonth, 0, "2024-02-10", "2024-02-01", "2024-02-29", 0},
		{"ThisAndLastMonth", ledger.LimitThisAndLastMonth, 0, "2024-05-15", "2024-04-01", "2024-05-31", 0},
		{"ThisAndLastMonthAcrossYear", ledger.LimitThisAndLastMonth, 0, "2024-01-10", "2023-12-01", "2024-01-31", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Limit(tt.limitType, tt.value, d(tt.today))
			assert.NoError(t, err)
			assert.Equal(t, tt.start, c.Start.String())
			assert.Equal(t, tt.end, c.End.String())
			assert.Equal(t, tt.limit, c.Limit)
		})
	}
}

func TestLimitRejectsNonPositiveCounts(t *testing.T) {
	_, err := Limit(ledger.LimitTransactionCount, 0, d("2024-05-15"))
	assert.True(t, errors.Is(err, ledger.ErrInvalidDateRange))

	_, err = Limit(ledger.LimitWeekCount, -1, d("2024-05-15"))
	assert.True(t, errors.Is(err, ledger.ErrInvalidDateRange))

	_, err = Limit(ledger.LimitType(9), 1, d("2024-05-15"))
	assert.Error(t, err)
}

func TestConstraintApply(t *testing.T) {
	transfers := []ledger.Transfer{
		{ID: 1, Day: d("2024-04-30")},
		{ID: 2, Day: d("2024-05-02")},
		{ID: 3, Day: d("2024-05-10")},
		{ID: 4, Day: d("2024-05-02")},
		{ID: 5, Day: d("2024-06-01")},
	}

	month, err := Limit(ledger.LimitThisMonth, 0, d("2024-05-15"))
	assert.NoError(t, err)

	var ids []ledger.TransferID
	for _, tr := range month.Apply(transfers) {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []ledger.TransferID{3, 4, 2}, ids)

	capped := Constraint{Limit: 2}.Apply(transfers)
	assert.Equal(t, 2, len(capped))
	assert.Equal(t, ledger.TransferID(5), capped[0].ID)
	assert.Equal(t, ledger.TransferID(3), capped[1].ID)

	// The input order is untouched.
	assert.Equal(t, ledger.TransferID(1), transfers[0].ID)
}

func TestLimitFromPreferences(t *testing.T) {
	prefs := ledger.DefaultPreferences()
	c, err := LimitFromPreferences(prefs, d("2024-05-15"))
	assert.NoError(t, err)
	assert.Equal(t, "2024-05-01", c.Start.String())
}
