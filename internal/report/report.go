// Package report renders read-only summaries of a ledger as message text.
// Sums are accumulated with decimal arithmetic so long lists of amounts like
// 0.1 do not drift.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
	"ledgerbot/internal/locale"
)

// MaxItems caps how many lines one listing message carries.
const MaxItems = 100

// CategoryTotal is the sum of one category's expenses.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Sum adds up all amounts.
func Sum(expenses []core.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(decimal.NewFromFloat(e.Amount))
	}
	return total
}

// ByCategory groups totals by category. Categories follow the order of the
// category list; expenses whose category is not listed come last, by name.
// Categories without expenses are omitted.
func ByCategory(categories []string, expenses []core.Expense) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		sums[e.Category] = sums[e.Category].Add(decimal.NewFromFloat(e.Amount))
	}

	out := make([]CategoryTotal, 0, len(sums))
	listed := make(map[string]bool, len(categories))
	for _, c := range categories {
		listed[c] = true
		if s, ok := sums[c]; ok {
			out = append(out, CategoryTotal{Category: c, Total: s})
		}
	}
	var rest []string
	for c := range sums {
		if !listed[c] {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	for _, c := range rest {
		out = append(out, CategoryTotal{Category: c, Total: sums[c]})
	}
	return out
}

// CategoryList renders the numbered category list used by selection and
// deletion prompts. Ids are positions in the list.
func CategoryList(categories []string, p *locale.Phrases) string {
	var b strings.Builder
	if len(categories) > MaxItems {
		fmt.Fprintf(&b, p.ShowingCategories+"\n\n", MaxItems, len(categories))
	}
	b.WriteString(p.CategoriesHeader)
	for i, c := range categories {
		if i == MaxItems {
			break
		}
		fmt.Fprintf(&b, p.CategoryLine, i, c)
	}
	return b.String()
}

// AllExpenses renders the expense listing. When there are more than MaxItems
// expenses a "showing N of M" message precedes the list.
func AllExpenses(expenses []core.Expense, p *locale.Phrases) []string {
	if len(expenses) == 0 {
		return []string{p.NoExpenses}
	}
	var msgs []string
	if len(expenses) > MaxItems {
		msgs = append(msgs, fmt.Sprintf(p.ShowingExpenses, MaxItems, len(expenses)))
	}
	var b strings.Builder
	b.WriteString(p.ExpensesHeader)
	for i, e := range expenses {
		if i == MaxItems {
			break
		}
		fmt.Fprintf(&b, p.ExpenseLine, i, e.Date.UTC().Format(p.DateLayout), e.Category, e.Description, e.Amount)
	}
	return append(msgs, b.String())
}

func Total(expenses []core.Expense, p *locale.Phrases) string {
	if len(expenses) == 0 {
		return p.NoExpenses
	}
	return fmt.Sprintf(p.TotalLine, Sum(expenses).InexactFloat64())
}

func TotalsByCategory(categories []string, expenses []core.Expense, p *locale.Phrases) []string {
	if len(expenses) == 0 {
		return []string{p.NoExpenses}
	}
	totals := ByCategory(categories, expenses)
	var msgs []string
	if len(totals) > MaxItems {
		msgs = append(msgs, fmt.Sprintf(p.ShowingCategories, MaxItems, len(totals)))
	}
	var b strings.Builder
	b.WriteString(p.ByCategoryHeader)
	for i, t := range totals {
		if i == MaxItems {
			break
		}
		fmt.Fprintf(&b, p.ByCategoryLine, t.Category, t.Total.InexactFloat64())
	}
	return append(msgs, b.String())
}
