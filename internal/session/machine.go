package session

import (
	"fmt"
	"strings"

	"ledgerbot/internal/core"
	"ledgerbot/internal/input"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/locale"
	"ledgerbot/internal/report"
)

// Result is everything one event produces.
type Result struct {
	Next    State
	Effects []Effect
	Prompts []Prompt
}

type machine struct {
	p    *locale.Phrases
	view ledger.View
}

// Transition computes the reaction to action in state s. It performs no I/O
// and takes no locks; v is a copy of the user's ledger taken before the call.
func Transition(s State, a input.Action, v ledger.View, p *locale.Phrases) Result {
	if s == nil {
		s = Idle{}
	}
	m := machine{p: p, view: v}

	switch a.Kind {
	case input.Command:
		return m.command(s, a.Command)
	case input.Unrecognized:
		return m.toIdle()
	}

	switch st := s.(type) {
	case Idle:
		return m.expenseText(st, a)
	case AwaitingExpenseText:
		return m.expenseText(st, a)
	case AwaitingCategorySelection:
		return m.categorySelection(st, a)
	case AwaitingExpenseConfirmation:
		return m.expenseConfirmation(st, a)
	case AwaitingNewCategoryText:
		return m.newCategoryText(st, a)
	case AwaitingCategoryConfirmation:
		return m.categoryConfirmation(st, a)
	case AwaitingCategoryToDelete:
		return m.categoryToDelete(st, a)
	case AwaitingDeleteConfirmation:
		return m.deleteConfirmation(st, a)
	case AwaitingCleanupConfirmation:
		return m.cleanupConfirmation(st, a)
	default:
		return m.toIdle()
	}
}

func (m machine) command(s State, cmd input.CommandName) Result {
	switch cmd {
	case input.CmdStart:
		return m.toIdle()
	case input.CmdHelp:
		return Result{Next: s, Prompts: []Prompt{textPrompt(m.helpText())}}
	case input.CmdAddExpense:
		return Result{Next: AwaitingExpenseText{}, Prompts: []Prompt{textPrompt(m.p.AskExpense)}}
	case input.CmdAddNewCategory:
		return m.askNewCategory()
	case input.CmdDeleteCategory:
		return m.askCategoryToDelete()
	case input.CmdClearAllExpenses:
		return m.confirmCleanup()
	case input.CmdAllExpenses:
		return Result{Next: s, Prompts: textPrompts(report.AllExpenses(m.view.Expenses, m.p))}
	case input.CmdTotalExpenses:
		return Result{Next: s, Prompts: []Prompt{textPrompt(report.Total(m.view.Expenses, m.p))}}
	case input.CmdExpensesByCategory:
		return Result{Next: s, Prompts: textPrompts(report.TotalsByCategory(m.view.Categories, m.view.Expenses, m.p))}
	default:
		return Result{Next: s, Prompts: []Prompt{textPrompt(m.p.UnknownCommand)}}
	}
}

// expenseText handles Idle and AwaitingExpenseText, which differ only in
// their prompts.
func (m machine) expenseText(s State, a input.Action) Result {
	switch a.Kind {
	case input.Back, input.Cancel:
		return m.toIdle()
	case input.ButtonAnswer:
		// A stale button from an earlier flow.
		return m.toIdle()
	}
	pending, err := core.ParseExpense(a.Text)
	if err != nil {
		return Result{Next: s, Prompts: []Prompt{textPrompt(m.p.ExpenseFormat)}}
	}
	return m.selectCategory(pending)
}

func (m machine) categorySelection(s AwaitingCategorySelection, a input.Action) Result {
	switch a.Kind {
	case input.Back, input.Cancel:
		return m.abortExpense()
	case input.Numeric:
		if a.Number >= uint64(len(m.view.Categories)) {
			r := m.selectCategory(s.Pending)
			r.Prompts = append([]Prompt{textPrompt(m.p.NoCategoryWithID)}, r.Prompts...)
			return r
		}
		return m.confirmExpense(s.Pending, m.view.Categories[a.Number])
	default:
		// Free text, a category button, or a trigger word typed as a name.
		// Control buttons carry no text and only reprompt.
		if a.Text == "" {
			return m.selectCategory(s.Pending)
		}
		return m.confirmExpense(s.Pending, a.Text)
	}
}

func (m machine) expenseConfirmation(s AwaitingExpenseConfirmation, a input.Action) Result {
	switch a.Kind {
	case input.Confirm:
		return Result{
			Next:    Idle{},
			Effects: []Effect{AppendExpense{Pending: s.Pending, Category: s.Category}},
			Prompts: []Prompt{
				textPrompt(fmt.Sprintf(m.p.ExpenseAdded, s.Category)),
				m.welcome(),
			},
		}
	case input.Deny, input.Back:
		return m.selectCategory(s.Pending)
	case input.Cancel:
		return m.abortExpense()
	default:
		r := m.confirmExpense(s.Pending, s.Category)
		r.Prompts = append([]Prompt{textPrompt(m.p.ConfirmHint)}, r.Prompts...)
		return r
	}
}

func (m machine) newCategoryText(_ AwaitingNewCategoryText, a input.Action) Result {
	switch a.Kind {
	case input.Back, input.Cancel:
		return m.toIdle()
	}
	name := a.Text
	if name == "" {
		return m.askNewCategory()
	}
	if m.hasCategory(name) {
		r := m.askNewCategory()
		r.Prompts = append([]Prompt{textPrompt(m.p.CategoryExists)}, r.Prompts...)
		return r
	}
	return m.confirmCategory(name)
}

func (m machine) categoryConfirmation(s AwaitingCategoryConfirmation, a input.Action) Result {
	switch a.Kind {
	case input.Confirm:
		// The category may have appeared since it was typed, e.g. through
		// an expense confirmed with a new category name.
		if m.hasCategory(s.Category) {
			r := m.askNewCategory()
			r.Prompts = append([]Prompt{textPrompt(m.p.CategoryExists)}, r.Prompts...)
			return r
		}
		return Result{
			Next:    Idle{},
			Effects: []Effect{AddCategory{Name: s.Category}},
			Prompts: []Prompt{textPrompt(m.p.CategoryAdded), m.welcome()},
		}
	case input.Change:
		return m.askNewCategory()
	case input.Deny, input.Cancel:
		return m.toIdle()
	default:
		r := m.confirmCategory(s.Category)
		r.Prompts = append([]Prompt{textPrompt(m.p.NotUnderstood)}, r.Prompts...)
		return r
	}
}

func (m machine) categoryToDelete(_ AwaitingCategoryToDelete, a input.Action) Result {
	var name string
	switch a.Kind {
	case input.Back, input.Cancel:
		return m.toIdle()
	case input.Numeric:
		if a.Number >= uint64(len(m.view.Categories)) {
			return m.retryDelete(m.p.NoCategoryWithID)
		}
		name = m.view.Categories[a.Number]
	default:
		name = a.Text
		if !m.hasCategory(name) {
			return m.retryDelete(m.p.CategoryNotFound)
		}
	}
	if name == core.DefaultCategory {
		return m.retryDelete(fmt.Sprintf(m.p.DefaultNotDeletable, name))
	}
	return Result{
		Next:    AwaitingDeleteConfirmation{Category: name},
		Prompts: []Prompt{m.confirmDeletePrompt(name)},
	}
}

func (m machine) deleteConfirmation(s AwaitingDeleteConfirmation, a input.Action) Result {
	switch a.Kind {
	case input.Confirm:
		msg := m.p.CategoryDeletedEmpty
		if m.view.Usage[s.Category] > 0 {
			msg = fmt.Sprintf(m.p.CategoryDeletedMoved, core.DefaultCategory)
		}
		return Result{
			Next:    Idle{},
			Effects: []Effect{DeleteCategory{Name: s.Category}},
			Prompts: []Prompt{textPrompt(msg), m.welcome()},
		}
	case input.Deny, input.Cancel:
		return m.toIdle()
	default:
		return Result{
			Next:    s,
			Prompts: []Prompt{textPrompt(m.p.DeleteHint), m.confirmDeletePrompt(s.Category)},
		}
	}
}

func (m machine) cleanupConfirmation(s AwaitingCleanupConfirmation, a input.Action) Result {
	switch a.Kind {
	case input.Confirm:
		return Result{
			Next:    Idle{},
			Effects: []Effect{ClearExpenses{}},
			Prompts: []Prompt{textPrompt(m.p.CleanupDone), m.welcome()},
		}
	case input.Deny, input.Cancel:
		return m.toIdle()
	default:
		r := m.confirmCleanup()
		r.Prompts = append([]Prompt{textPrompt(m.p.NotUnderstood)}, r.Prompts...)
		return r
	}
}

// Flow entry points. Each returns the state that waits for the answer to
// the prompts it sends.

func (m machine) toIdle() Result {
	return Result{Next: Idle{}, Prompts: []Prompt{m.welcome()}}
}

func (m machine) abortExpense() Result {
	return Result{Next: Idle{}, Prompts: []Prompt{textPrompt(m.p.ExpenseCancelled), m.welcome()}}
}

func (m machine) selectCategory(pending core.PendingExpense) Result {
	next := AwaitingCategorySelection{Pending: pending}
	w := m.p.Words
	if len(m.view.Categories) == 0 {
		return Result{
			Next: next,
			Prompts: []Prompt{replyPrompt(
				fmt.Sprintf(m.p.NoCategoriesYet, pending.Description, pending.Amount),
				[]string{w.Back},
			)},
		}
	}
	return Result{
		Next: next,
		Prompts: []Prompt{
			textPrompt(report.CategoryList(m.view.Categories, m.p)),
			inlinePrompt(
				fmt.Sprintf(m.p.SelectCategory, pending.Description, pending.Amount),
				m.categoryButtons(),
			),
		},
	}
}

// categoryButtons lays the categories out two per row, followed by a row with
// Cancel and Back.
func (m machine) categoryButtons() [][]Button {
	var rows [][]Button
	var row []Button
	for i, c := range m.view.Categories {
		if i == report.MaxItems {
			break
		}
		row = append(row, Button{Label: c, Token: input.CategoryToken(c)})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return append(rows, []Button{
		{Label: m.p.Words.Cancel, Token: input.TokenCancel},
		{Label: m.p.Words.Back, Token: input.TokenBack},
	})
}

func (m machine) confirmExpense(pending core.PendingExpense, category string) Result {
	w := m.p.Words
	return Result{
		Next: AwaitingExpenseConfirmation{Pending: pending, Category: category},
		Prompts: []Prompt{inlinePrompt(
			fmt.Sprintf(m.p.ConfirmExpense, pending.Description, pending.Amount, category),
			[][]Button{{
				{Label: w.Cancel, Token: input.TokenCancel},
				{Label: w.Back, Token: input.TokenBack},
				{Label: w.Confirm, Token: input.TokenConfirm},
			}},
		)},
	}
}

func (m machine) askNewCategory() Result {
	return Result{
		Next:    AwaitingNewCategoryText{},
		Prompts: []Prompt{replyPrompt(m.p.AskNewCategory, []string{m.p.Words.Back})},
	}
}

func (m machine) confirmCategory(name string) Result {
	w := m.p.Words
	return Result{
		Next: AwaitingCategoryConfirmation{Category: name},
		Prompts: []Prompt{replyPrompt(
			fmt.Sprintf(m.p.ConfirmCategory, name),
			[]string{w.Change, w.No, w.Yes},
		)},
	}
}

func (m machine) askCategoryToDelete() Result {
	if !m.hasDeletable() {
		return Result{Next: Idle{}, Prompts: []Prompt{textPrompt(m.p.NoCategoriesToDelete), m.welcome()}}
	}
	return Result{
		Next: AwaitingCategoryToDelete{},
		Prompts: []Prompt{
			textPrompt(report.CategoryList(m.view.Categories, m.p)),
			replyPrompt(m.p.AskCategoryToDelete, []string{m.p.Words.Back}),
		},
	}
}

func (m machine) retryDelete(reason string) Result {
	r := m.askCategoryToDelete()
	r.Prompts = append([]Prompt{textPrompt(reason)}, r.Prompts...)
	return r
}

func (m machine) confirmDeletePrompt(name string) Prompt {
	w := m.p.Words
	return replyPrompt(
		fmt.Sprintf(m.p.ConfirmDelete, name, core.DefaultCategory),
		[]string{w.No, w.Yes},
	)
}

func (m machine) confirmCleanup() Result {
	w := m.p.Words
	return Result{
		Next:    AwaitingCleanupConfirmation{},
		Prompts: []Prompt{replyPrompt(m.p.ConfirmCleanup, []string{w.No, w.Yes})},
	}
}

func (m machine) welcome() Prompt {
	return textPrompt(m.p.Welcome)
}

func (m machine) helpText() string {
	var b strings.Builder
	b.WriteString(m.p.HelpHeader)
	b.WriteString("\n\n")
	for _, c := range input.Commands {
		fmt.Fprintf(&b, "/%s - %s\n", c, m.p.CommandDescriptions[string(c)])
	}
	return b.String()
}

func (m machine) hasCategory(name string) bool {
	for _, c := range m.view.Categories {
		if c == name {
			return true
		}
	}
	return false
}

func (m machine) hasDeletable() bool {
	for _, c := range m.view.Categories {
		if c != core.DefaultCategory {
			return true
		}
	}
	return false
}

func textPrompts(texts []string) []Prompt {
	out := make([]Prompt, 0, len(texts))
	for _, t := range texts {
		out = append(out, textPrompt(t))
	}
	return out
}
