// Package session is the per-user conversation state machine. Transition is
// pure: it reads a ledger view and returns the next state, the ledger effects
// to apply and the prompts to send.
package session

import "ledgerbot/internal/core"

// State is one of the conversation states below. The set is closed.
type State interface {
	Name() string
	isState()
}

type (
	Idle struct{}

	AwaitingExpenseText struct{}

	AwaitingCategorySelection struct {
		Pending core.PendingExpense
	}

	AwaitingExpenseConfirmation struct {
		Pending  core.PendingExpense
		Category string
	}

	AwaitingNewCategoryText struct{}

	AwaitingCategoryConfirmation struct {
		Category string
	}

	AwaitingCategoryToDelete struct{}

	AwaitingDeleteConfirmation struct {
		Category string
	}

	AwaitingCleanupConfirmation struct{}
)

func (Idle) Name() string                         { return "idle" }
func (AwaitingExpenseText) Name() string          { return "awaiting_expense_text" }
func (AwaitingCategorySelection) Name() string    { return "awaiting_category_selection" }
func (AwaitingExpenseConfirmation) Name() string  { return "awaiting_expense_confirmation" }
func (AwaitingNewCategoryText) Name() string      { return "awaiting_new_category_text" }
func (AwaitingCategoryConfirmation) Name() string { return "awaiting_category_confirmation" }
func (AwaitingCategoryToDelete) Name() string     { return "awaiting_category_to_delete" }
func (AwaitingDeleteConfirmation) Name() string   { return "awaiting_delete_confirmation" }
func (AwaitingCleanupConfirmation) Name() string  { return "awaiting_cleanup_confirmation" }

func (Idle) isState()                         {}
func (AwaitingExpenseText) isState()          {}
func (AwaitingCategorySelection) isState()    {}
func (AwaitingExpenseConfirmation) isState()  {}
func (AwaitingNewCategoryText) isState()      {}
func (AwaitingCategoryConfirmation) isState() {}
func (AwaitingCategoryToDelete) isState()     {}
func (AwaitingDeleteConfirmation) isState()   {}
func (AwaitingCleanupConfirmation) isState()  {}
