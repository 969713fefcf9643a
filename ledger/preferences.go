package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// LimitType bounds the "recent transactions" working set shown on dashboards.
type LimitType int

const (
	LimitTransactionCount LimitType = iota
	LimitWeekCount
	LimitThisMonth
	LimitThisAndLastMonth
)

var limitTypeNames = []string{
	LimitTransactionCount: "TRANSACTION_COUNT",
	LimitWeekCount:        "WEEK_COUNT",
	LimitThisMonth:        "THIS_MONTH",
	LimitThisAndLastMonth: "THIS_AND_LAST_MONTH",
}

func (t LimitType) String() string {
	if t >= 0 && int(t) < len(limitTypeNames) {
		return limitTypeNames[t]
	}
	return fmt.Sprintf("LimitType(%d)", int(t))
}

// ParseLimitType parses a limit type name (case-insensitive).
func ParseLimitType(s string) (LimitType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range limitTypeNames {
		if name == s {
			return LimitType(i), nil
		}
	}
	return 0, fmt.Errorf("invalid transaction amount limit type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t LimitType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *LimitType) UnmarshalText(text []byte) error {
	parsed, err := ParseLimitType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Preferences is the per-user configuration of the engine. It is passed by
// value into every calculation; nothing reads it from shared state.
type Preferences struct {
	DefaultCurrencyID                    CurrencyID `toml:"default_currency" json:"default_currency"`
	Algorithm                            Algorithm  `toml:"multi_currency_balance_calculating_algorithm" json:"multi_currency_balance_calculating_algorithm"`
	IncludeTransactionsFromSubcategories bool       `toml:"include_transactions_from_subcategories" json:"include_transactions_from_subcategories"`
	InvertSaldoForIncome                 bool       `toml:"invert_saldo_for_income" json:"invert_saldo_for_income"`
	TransactionAmountLimitType           LimitType  `toml:"transaction_amount_limit_type" json:"transaction_amount_limit_type"`
	TransactionAmountLimitValue          int        `toml:"transaction_amount_limit_value" json:"transaction_amount_limit_value"`
}

// DefaultPreferences returns the preferences a new user starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		Algorithm:                   ShowAllCurrencies,
		InvertSaldoForIncome:        true,
		TransactionAmountLimitType:  LimitThisMonth,
		TransactionAmountLimitValue: 0,
	}
}

// PreferencesFromOptions parses "key=value" style options on top of base.
// Supports:
//   - default_currency = <currency id>
//   - multi_currency_balance_calculating_algorithm = SHOW_ALL_CURRENCIES|CALCULATE_WITH_...
//   - include_transactions_from_subcategories = true|false
//   - invert_saldo_for_income = true|false
//   - transaction_amount_limit_type = TRANSACTION_COUNT|WEEK_COUNT|THIS_MONTH|THIS_AND_LAST_MONTH
//   - transaction_amount_limit_value = <int>
func PreferencesFromOptions(base Preferences, options map[string]string) (Preferences, error) {
	p := base

	for key, val := range options {
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "default_currency":
			id, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return base, fmt.Errorf("invalid default_currency %q: %w", val, err)
			}
			p.DefaultCurrencyID = CurrencyID(id)
		case "multi_currency_balance_calculating_algorithm", "algorithm":
			a, err := ParseAlgorithm(val)
			if err != nil {
				return base, err
			}
			p.Algorithm = a
		case "include_transactions_from_subcategories":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return base, fmt.Errorf("invalid include_transactions_from_subcategories %q: %w", val, err)
			}
			p.IncludeTransactionsFromSubcategories = b
		case "invert_saldo_for_income":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return base, fmt.Errorf("invalid invert_saldo_for_income %q: %w", val, err)
			}
			p.InvertSaldoForIncome = b
		case "transaction_amount_limit_type":
			t, err := ParseLimitType(val)
			if err != nil {
				return base, err
			}
			p.TransactionAmountLimitType = t
		case "transaction_amount_limit_value":
			n, err := strconv.Atoi(val)
			if err != nil {
				return base, fmt.Errorf("invalid transaction_amount_limit_value %q: %w", val, err)
			}
			p.TransactionAmountLimitValue = n
		default:
			return base, fmt.Errorf("unknown preference %q", key)
		}
	}

	return p, nil
}
