package session

import (
	"time"

	"ledgerbot/internal/core"
)

// Effect is a ledger mutation requested by a transition. The driver applies
// effects under the store lock, in order.
type Effect interface {
	Kind() string
	Apply(l *core.UserLedger, now time.Time) Outcome
}

// Outcome describes what an applied effect actually changed. Changed is false
// when the ledger already matched, e.g. a category added twice.
type Outcome struct {
	Kind     string
	Changed  bool
	Expense  *core.Expense
	Category string
	Moved    int // expenses reassigned to the default category
	Cleared  int
}

type AppendExpense struct {
	Pending  core.PendingExpense
	Category string
}

type AddCategory struct {
	Name string
}

type DeleteCategory struct {
	Name string
}

type ClearExpenses struct{}

func (AppendExpense) Kind() string  { return "append_expense" }
func (AddCategory) Kind() string    { return "add_category" }
func (DeleteCategory) Kind() string { return "delete_category" }
func (ClearExpenses) Kind() string  { return "clear_expenses" }

func (e AppendExpense) Apply(l *core.UserLedger, now time.Time) Outcome {
	exp := core.Expense{
		Description: e.Pending.Description,
		Amount:      e.Pending.Amount,
		Category:    e.Category,
		Date:        now.UTC(),
	}
	if err := l.AppendExpense(exp); err != nil {
		return Outcome{Kind: e.Kind(), Category: e.Category}
	}
	return Outcome{Kind: e.Kind(), Changed: true, Expense: &exp, Category: e.Category}
}

func (e AddCategory) Apply(l *core.UserLedger, _ time.Time) Outcome {
	return Outcome{Kind: e.Kind(), Changed: l.AddCategory(e.Name), Category: e.Name}
}

func (e DeleteCategory) Apply(l *core.UserLedger, _ time.Time) Outcome {
	existed := l.HasCategory(e.Name)
	moved, err := l.DeleteCategory(e.Name)
	if err != nil {
		return Outcome{Kind: e.Kind(), Category: e.Name}
	}
	return Outcome{Kind: e.Kind(), Changed: existed || moved > 0, Category: e.Name, Moved: moved}
}

func (e ClearExpenses) Apply(l *core.UserLedger, _ time.Time) Outcome {
	n := l.ClearExpenses()
	return Outcome{Kind: e.Kind(), Changed: n > 0, Cleared: n}
}
