package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultCategory absorbs expenses whose category was deleted.
const DefaultCategory = "Другое"

type (
	// UserID is the stable sender identifier supplied by the transport.
	UserID int64

	Expense struct {
		Description string
		Amount      float64
		Category    string // loose reference by name
		Date        time.Time
	}

	// PendingExpense is an expense the user typed but has not confirmed yet.
	// It lives only inside conversation state and is never persisted.
	PendingExpense struct {
		Description string
		Amount      float64
	}

	UserLedger struct {
		Expenses   []Expense
		Categories []string
	}
)

var (
	ErrEmptyDescription    = errors.New("empty description")
	ErrEmptyCategory       = errors.New("empty category")
	ErrInvalidUserID       = errors.New("invalid user id")
	ErrDefaultCategoryLock = errors.New("default category cannot be deleted")
)

func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseUserID parses the decimal form used as a key in persisted snapshots.
func ParseUserID(s string) (UserID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, ErrInvalidUserID
	}
	return UserID(v), nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if e.Category == "" {
		return ErrEmptyCategory
	}
	return nil
}

// NewUserLedger returns a ledger seeded with the default category.
func NewUserLedger() *UserLedger {
	return &UserLedger{Categories: []string{DefaultCategory}}
}

// EnsureDefault appends the default category when it is missing, e.g. in
// ledgers loaded from older snapshots. Reports whether the ledger changed.
func (l *UserLedger) EnsureDefault() bool {
	if l.HasCategory(DefaultCategory) {
		return false
	}
	l.Categories = append(l.Categories, DefaultCategory)
	return true
}

func (l *UserLedger) HasCategory(name string) bool {
	return l.CategoryIndex(name) >= 0
}

// CategoryIndex returns the position of name, or -1. Comparison is byte-for-byte.
func (l *UserLedger) CategoryIndex(name string) int {
	for i, c := range l.Categories {
		if c == name {
			return i
		}
	}
	return -1
}

// AddCategory appends name unless it is already present.
func (l *UserLedger) AddCategory(name string) bool {
	if name == "" || l.HasCategory(name) {
		return false
	}
	l.Categories = append(l.Categories, name)
	return true
}

// AppendExpense records e, creating its category when it is new.
func (l *UserLedger) AppendExpense(e Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	l.AddCategory(e.Category)
	l.Expenses = append(l.Expenses, e)
	return nil
}

// DeleteCategory removes name from the category list and moves every expense
// that referenced it to the default category. Returns how many expenses were
// moved. The default category itself is refused.
func (l *UserLedger) DeleteCategory(name string) (int, error) {
	if name == DefaultCategory {
		return 0, ErrDefaultCategoryLock
	}
	if i := l.CategoryIndex(name); i >= 0 {
		l.Categories = append(l.Categories[:i], l.Categories[i+1:]...)
	}
	moved := 0
	for i := range l.Expenses {
		if l.Expenses[i].Category == name {
			l.Expenses[i].Category = DefaultCategory
			moved++
		}
	}
	l.EnsureDefault()
	return moved, nil
}

// ClearExpenses drops every expense and leaves categories untouched.
func (l *UserLedger) ClearExpenses() int {
	n := len(l.Expenses)
	l.Expenses = nil
	return n
}

// Usage counts expenses per category name.
func (l *UserLedger) Usage() map[string]int {
	out := make(map[string]int, len(l.Categories))
	for _, e := range l.Expenses {
		out[e.Category]++
	}
	return out
}

func (l *UserLedger) Clone() UserLedger {
	return UserLedger{
		Expenses:   append([]Expense(nil), l.Expenses...),
		Categories: append([]string(nil), l.Categories...),
	}
}
