package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// PartyID identifies one of the two household members.
type PartyID string

// SplitBoth marks an expense shared evenly between both parties.
// Any other non-empty SplitWith value names the party that owes the whole
// amount; an empty value means a personal expense with no cross-party effect.
const SplitBoth = "both"

type (
	// TransactionKind distinguishes the three entry types of the ledger.
	TransactionKind string

	// Category is the allocation target of a receipt line item.
	Category string

	Date struct {
		time.Time
	}

	// LineItem is one parsed receipt line. Category stays empty until the
	// item is allocated during categorization.
	LineItem struct {
		ID          string
		Description string
		Price       Money
		Category    Category
	}

	// Transaction is one append-only ledger entry. Entries are never mutated
	// or deleted by the core; balances are always recomputed from the full log.
	Transaction struct {
		ID          string
		Kind        TransactionKind
		Amount      Money
		Description string
		Date        Date
		PaidBy      PartyID
		SplitWith   string // "", SplitBoth, or a PartyID
		HouseholdID string
		CreatedAt   time.Time
	}
)

const (
	KindExpense    TransactionKind = "expense"
	KindIncome     TransactionKind = "income"
	KindSettlement TransactionKind = "settlement"
)

const (
	CategorySelf   Category = "self"
	CategoryOther  Category = "other"
	CategoryShared Category = "shared"
)

var (
	ErrInvalidDay        = errors.New("invalid day")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrMissingPayer      = errors.New("missing paying party")
	ErrMissingHousehold  = errors.New("missing household id")
	ErrUncategorizedItem = errors.New("item has no category")
	ErrInvalidCategory   = errors.New("invalid category")
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindExpense, KindIncome, KindSettlement:
		return true
	default:
		return false
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategorySelf, CategoryOther, CategoryShared:
		return true
	default:
		return false
	}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	// Check basic ranges
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (li LineItem) Validate() error {
	if len(strings.TrimSpace(li.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := li.Price.Validate(); err != nil {
		return err
	}
	if li.Category != "" && !li.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(string(t.PaidBy)) == "" {
		return ErrMissingPayer
	}
	if strings.TrimSpace(t.HouseholdID) == "" {
		return ErrMissingHousehold
	}
	return nil
}

// SortForDisplay orders transactions newest-first by date, ties broken by
// creation time and then id so the order is stable across recomputations.
// The ledger engine itself does not depend on ordering.
func SortForDisplay(txns []Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		a, b := txns[i], txns[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
