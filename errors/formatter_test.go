package errors

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/saldo/ledger"
	"github.com/robinvdvleuten/saldo/loader"
)

func TestTextFormatter_Format_Plain(t *testing.T) {
	tf := NewTextFormatter()

	err := &ledger.InvalidCategoryMoveError{Category: 4, NewParent: 7}
	assert.Equal(t, err.Error(), tf.Format(err))
}

func TestTextFormatter_Format_WithSourceContext(t *testing.T) {
	source := []byte("[[currencies]]\nid = 1\nsymbol = \"USD\nname = \"US Dollar\"\n")
	err := &loader.DecodeError{Filename: "saldo.toml", Line: 3, Err: fmt.Errorf("unterminated string")}

	tf := NewTextFormatter(WithSource(source))
	expected := "saldo.toml:3: unterminated string\n\n" +
		"   [[currencies]]\n" +
		"   id = 1\n" +
		" > symbol = \"USD\n" +
		"   name = \"US Dollar\"\n"
	assert.Equal(t, expected, tf.Format(err))

	// Without source only the message is shown.
	assert.Equal(t, "saldo.toml:3: unterminated string", NewTextFormatter().Format(err))
}

func TestTextFormatter_Format_MissingRate(t *testing.T) {
	err := fmt.Errorf("report %q: %w", "Spending", &ledger.ExchangeRateNotFoundError{
		From: 1, To: 3, FromSymbol: "USD",
		Date:      ledger.MustParseDate("2024-02-01"),
		Algorithm: ledger.CalculateWithNewestExchanges,
	})

	expected := `report "Spending": missing exchange rate for USD→#3 on 2024-02-01 (CALCULATE_WITH_NEWEST_EXCHANGES)` +
		"\n\n   add an exchange between USD and #3 dated on or near 2024-02-01"
	assert.Equal(t, expected, NewTextFormatter().Format(err))
}

func TestTextFormatter_Format_ValidationErrors(t *testing.T) {
	err := &ledger.ValidationErrors{Errors: []error{
		fmt.Errorf("transfer 1: unknown category 9"),
		fmt.Errorf("transfer 2: needs at least 2 items"),
	}}

	expected := "2 validation errors occurred\n\n" +
		"transfer 1: unknown category 9\n\n" +
		"transfer 2: needs at least 2 items"
	assert.Equal(t, expected, NewTextFormatter().Format(err))
}

func TestTextFormatter_FormatAll_Empty(t *testing.T) {
	assert.Equal(t, "", NewTextFormatter().FormatAll(nil))
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, 0, len(Flatten(nil)))

	single := fmt.Errorf("boom")
	assert.Equal(t, []error{single}, Flatten(single))

	inner := []error{fmt.Errorf("a"), fmt.Errorf("b")}
	wrapped := fmt.Errorf("load: %w", &ledger.ValidationErrors{Errors: inner})
	assert.Equal(t, inner, Flatten(wrapped))
}

func TestJSONFormatter_Kinds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    string
		details map[string]any
	}{
		{
			name:    "Corrupt",
			err:     &ledger.CategoryTreeCorruptError{Category: 3, Reason: "bounds overlap"},
			kind:    KindCategoryTreeCorrupt,
			details: map[string]any{"category": float64(3), "reason": "bounds overlap"},
		},
		{
			name:    "Move",
			err:     &ledger.InvalidCategoryMoveError{Category: 2, NewParent: 5},
			kind:    KindInvalidCategoryMove,
			details: map[string]any{"category": float64(2), "new_parent": float64(5)},
		},
		{
			name: "MissingRate",
			err: &ledger.ExchangeRateNotFoundError{
				From: 2, To: 1, FromSymbol: "EUR", ToSymbol: "USD",
				Date:      ledger.MustParseDate("2024-02-01"),
				Algorithm: ledger.CalculateWithNewestExchangesBut,
			},
			kind: KindExchangeRateNotFound,
			details: map[string]any{
				"from": "EUR", "to": "USD", "date": "2024-02-01",
				"algorithm": "CALCULATE_WITH_NEWEST_EXCHANGES_BUT",
			},
		},
		{
			name:    "DateRange",
			err:     &ledger.InvalidDateRangeError{Start: ledger.MustParseDate("2024-02-01"), End: ledger.MustParseDate("2024-01-01"), Reason: "end is before start"},
			kind:    KindInvalidDateRange,
			details: map[string]any{"start": "2024-02-01", "end": "2024-01-01", "reason": "end is before start"},
		},
		{
			name: "Other",
			err:  fmt.Errorf("something else"),
			kind: KindError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			assert.NoError(t, json.Unmarshal([]byte(NewJSONFormatter().Format(tt.err)), &got))
			assert.Equal[any](t, tt.kind, got["kind"])
			assert.Equal[any](t, tt.err.Error(), got["message"])
			if tt.details == nil {
				_, ok := got["details"]
				assert.False(t, ok)
				return
			}
			assert.Equal(t, tt.details, got["details"].(map[string]any))
		})
	}
}

func TestJSONFormatter_DecodePosition(t *testing.T) {
	err := fmt.Errorf("in file main.toml: %w", &loader.DecodeError{Filename: "data/x.toml", Line: 7, Err: fmt.Errorf("bad")})

	out := NewJSONFormatter().FormatAllToSlice([]error{err})
	assert.Equal(t, 1, len(out))
	assert.Equal(t, KindDecode, out[0].Kind)
	assert.Equal(t, &PositionJSON{Filename: "data/x.toml", Line: 7}, out[0].Position)
}
