package ledger

import (
	"fmt"
	"strings"
)

// CategoryID identifies a category. The zero value means "no category" and
// is used as the parent of root categories.
type CategoryID int64

// NoCategory is the parent id of root categories.
const NoCategory CategoryID = 0

// CategoryType represents the type of a category. The numeric order is the
// canonical report order: income first, balance last.
type CategoryType int

const (
	CategoryTypeUnknown CategoryType = iota
	CategoryTypeIncome
	CategoryTypeExpense
	CategoryTypeAsset
	CategoryTypeLiability
	CategoryTypeLoan
	CategoryTypeBalance
)

var categoryTypeNames = map[CategoryType]string{
	CategoryTypeIncome:    "INCOME",
	CategoryTypeExpense:   "EXPENSE",
	CategoryTypeAsset:     "ASSET",
	CategoryTypeLiability: "LIABILITY",
	CategoryTypeLoan:      "LOAN",
	CategoryTypeBalance:   "BALANCE",
}

// String returns the string representation of the category type
func (t CategoryType) String() string {
	if name, ok := categoryTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseCategoryType parses a category type name (case-insensitive).
func ParseCategoryType(s string) (CategoryType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for t, name := range categoryTypeNames {
		if name == s {
			return t, nil
		}
	}
	return CategoryTypeUnknown, fmt.Errorf("invalid category type %q, expected one of INCOME, EXPENSE, ASSET, LIABILITY, LOAN, BALANCE", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t CategoryType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *CategoryType) UnmarshalText(text []byte) error {
	parsed, err := ParseCategoryType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Category is a node in the category hierarchy. Left and Right are the
// nested-set bounds; Level is the depth below the root (root = 0) and is
// derived by the tree, never trusted from input.
type Category struct {
	ID       CategoryID   `toml:"id" json:"id"`
	Name     string       `toml:"name" json:"name"`
	Type     CategoryType `toml:"type" json:"type"`
	ParentID CategoryID   `toml:"parent,omitempty" json:"parent,omitempty"`
	Left     int          `toml:"lft,omitempty" json:"lft"`
	Right    int          `toml:"rgt,omitempty" json:"rgt"`
	Level    int          `toml:"-" json:"level"`
}

// IsRoot returns true if the category has no parent.
func (c Category) IsRoot() bool {
	return c.ParentID == NoCategory
}

// IsLeaf returns true if the category has no descendants.
func (c Category) IsLeaf() bool {
	return c.Right == c.Left+1
}

// Contains reports whether o lies within c's bounds (inclusive, so a
// category contains itself).
func (c Category) Contains(o Category) bool {
	return c.Left <= o.Left && o.Right <= c.Right
}

// SortKey is the canonical report ordering: category type first, then tree
// position.
type SortKey struct {
	Type CategoryType
	Left int
}

// Compare returns -1, 0 or +1.
func (k SortKey) Compare(o SortKey) int {
	switch {
	case k.Type < o.Type:
		return -1
	case k.Type > o.Type:
		return 1
	case k.Left < o.Left:
		return -1
	case k.Left > o.Left:
		return 1
	default:
		return 0
	}
}

// Scope is a set of category ids.
type Scope map[CategoryID]struct{}

// NewScope creates a scope containing ids.
func NewScope(ids ...CategoryID) Scope {
	s := make(Scope, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the scope.
func (s Scope) Contains(id CategoryID) bool {
	_, ok := s[id]
	return ok
}

// ContainsAll reports whether every id of o is in s.
func (s Scope) ContainsAll(o Scope) bool {
	for id := range o {
		if !s.Contains(id) {
			return false
		}
	}
	return true
}
