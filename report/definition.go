package report

import (
	"fmt"

	"github.com/robinvdvleuten/saldo/ledger"
)

// Kind is the shape of a report.
type Kind int

const (
	// KindFlow reports income and expense per period.
	KindFlow Kind = iota
	// KindValue reports the running balance at the end of each period.
	KindValue
	// KindShare reports each category's part of the total over the range.
	KindShare
)

var kindNames = []string{"FLOW", "VALUE", "SHARE"}

func (k Kind) String() string { return enumName("Kind", kindNames, int(k)) }

// ParseKind parses a report kind (case-insensitive).
func ParseKind(s string) (Kind, error) {
	i, err := parseEnum("report kind", kindNames, s)
	return Kind(i), err
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// InclusionType controls how a category's subcategories appear in a report.
type InclusionType int

const (
	// InclusionNone skips the category.
	InclusionNone InclusionType = iota
	// InclusionCategoryOnly reports the category's own items.
	InclusionCategoryOnly
	// InclusionCategoryAndSubcategories folds the subtree into one row.
	InclusionCategoryAndSubcategories
	// InclusionBoth reports the category and each subcategory as separate rows.
	InclusionBoth
)

var inclusionTypeNames = []string{"NONE", "CATEGORY_ONLY", "CATEGORY_AND_SUBCATEGORIES", "BOTH"}

func (t InclusionType) String() string {
	return enumName("InclusionType", inclusionTypeNames, int(t))
}

// ParseInclusionType parses an inclusion type (case-insensitive).
func ParseInclusionType(s string) (InclusionType, error) {
	i, err := parseEnum("inclusion type", inclusionTypeNames, s)
	return InclusionType(i), err
}

func (t InclusionType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *InclusionType) UnmarshalText(text []byte) error {
	parsed, err := ParseInclusionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ShareType selects percentages or raw totals in share reports.
type ShareType int

const (
	SharePercentage ShareType = iota
	ShareValue
)

var shareTypeNames = []string{"PERCENTAGE", "VALUE"}

func (t ShareType) String() string { return enumName("ShareType", shareTypeNames, int(t)) }

// ParseShareType parses a share type (case-insensitive).
func ParseShareType(s string) (ShareType, error) {
	i, err := parseEnum("share type", shareTypeNames, s)
	return ShareType(i), err
}

func (t ShareType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ShareType) UnmarshalText(text []byte) error {
	parsed, err := ParseShareType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ViewType is a presentation hint. Every view uses the same numbers.
type ViewType int

const (
	ViewText ViewType = iota
	ViewBar
	ViewPie
	ViewLinear
)

var viewTypeNames = []string{"TEXT", "BAR", "PIE", "LINEAR"}

func (t ViewType) String() string { return enumName("ViewType", viewTypeNames, int(t)) }

// ParseViewType parses a view type (case-insensitive).
func ParseViewType(s string) (ViewType, error) {
	i, err := parseEnum("view type", viewTypeNames, s)
	return ViewType(i), err
}

func (t ViewType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ViewType) UnmarshalText(text []byte) error {
	parsed, err := ParseViewType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CategoryOption selects a category for a report and how its subcategories
// are treated.
type CategoryOption struct {
	Category  ledger.CategoryID `toml:"category" json:"category"`
	Inclusion InclusionType     `toml:"inclusion" json:"inclusion"`
}

// Definition describes a report to generate.
type Definition struct {
	Name     string   `toml:"name" json:"name"`
	Kind     Kind     `toml:"kind" json:"kind"`
	ViewType ViewType `toml:"view,omitempty" json:"view"`

	PeriodType     PeriodType     `toml:"period_type" json:"period_type"`
	PeriodStart    ledger.Date    `toml:"period_start,omitempty" json:"period_start,omitempty"`
	PeriodEnd      ledger.Date    `toml:"period_end,omitempty" json:"period_end,omitempty"`
	PeriodDivision PeriodDivision `toml:"period_division,omitempty" json:"period_division"`

	Categories []CategoryOption `toml:"categories" json:"categories"`

	ShareType                ShareType `toml:"share_type,omitempty" json:"share_type"`
	MaxCategoriesValuesCount int       `toml:"max_categories_values_count,omitempty" json:"max_categories_values_count,omitempty"`

	// Currency overrides the preferred target currency. Zero keeps it.
	Currency ledger.CurrencyID `toml:"currency,omitempty" json:"currency,omitempty"`
}

// Validate checks the definition's own fields. Category references are
// checked when rows are resolved against a tree.
func (d Definition) Validate() error {
	if d.Kind < KindFlow || d.Kind > KindShare {
		return fmt.Errorf("report %q: unknown kind %d", d.Name, int(d.Kind))
	}
	if d.MaxCategoriesValuesCount < 0 {
		return fmt.Errorf("report %q: max_categories_values_count must not be negative", d.Name)
	}
	if err := CheckDivision(d.PeriodType, d.PeriodDivision); err != nil {
		return fmt.Errorf("report %q: %w", d.Name, err)
	}
	return nil
}
