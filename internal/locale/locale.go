// Package locale holds the fixed trigger words and prompt texts of one
// language. The built-in pack is Russian; a TOML file can override any key.
package locale

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Words are matched exactly against inbound text. No case folding.
type Words struct {
	Yes     string `toml:"yes"`
	No      string `toml:"no"`
	Back    string `toml:"back"`
	Cancel  string `toml:"cancel"`
	Change  string `toml:"change"`
	Confirm string `toml:"confirm"` // inline button label only
}

type Phrases struct {
	Words Words `toml:"words"`

	Welcome          string `toml:"welcome"`
	HelpHeader       string `toml:"help_header"`
	UnknownCommand   string `toml:"unknown_command"`
	NotUnderstood    string `toml:"not_understood"`
	AskExpense       string `toml:"ask_expense"`
	ExpenseFormat    string `toml:"expense_format"`
	NoCategoriesYet  string `toml:"no_categories_yet"` // description, amount
	CategoriesHeader string `toml:"categories_header"`
	CategoryLine     string `toml:"category_line"`   // index, name
	SelectCategory   string `toml:"select_category"` // description, amount
	NoCategoryWithID string `toml:"no_category_with_id"`
	ConfirmExpense   string `toml:"confirm_expense"` // description, amount, category
	ConfirmHint      string `toml:"confirm_hint"`
	ExpenseAdded     string `toml:"expense_added"` // category
	ExpenseCancelled string `toml:"expense_cancelled"`

	AskNewCategory  string `toml:"ask_new_category"`
	CategoryExists  string `toml:"category_exists"`
	ConfirmCategory string `toml:"confirm_category"` // category
	CategoryAdded   string `toml:"category_added"`

	NoCategoriesToDelete string `toml:"no_categories_to_delete"`
	AskCategoryToDelete  string `toml:"ask_category_to_delete"`
	CategoryNotFound     string `toml:"category_not_found"`
	DefaultNotDeletable  string `toml:"default_not_deletable"` // category
	ConfirmDelete        string `toml:"confirm_delete"`        // category, default category
	DeleteHint           string `toml:"delete_hint"`
	CategoryDeletedMoved string `toml:"category_deleted_moved"` // default category
	CategoryDeletedEmpty string `toml:"category_deleted_empty"`

	ConfirmCleanup string `toml:"confirm_cleanup"`
	CleanupDone    string `toml:"cleanup_done"`

	NoExpenses        string `toml:"no_expenses"`
	ShowingExpenses   string `toml:"showing_expenses"`   // shown, total
	ShowingCategories string `toml:"showing_categories"` // shown, total
	ExpensesHeader    string `toml:"expenses_header"`
	ExpenseLine       string `toml:"expense_line"` // index, date, category, description, amount
	TotalLine         string `toml:"total_line"`   // total
	ByCategoryHeader  string `toml:"by_category_header"`
	ByCategoryLine    string `toml:"by_category_line"` // category, total
	DateLayout        string `toml:"date_layout"`

	CommandDescriptions map[string]string `toml:"commands"`
}

// Russian returns the built-in phrase pack.
func Russian() *Phrases {
	return &Phrases{
		Words: Words{
			Yes:     "Да",
			No:      "Нет",
			Back:    "Назад",
			Cancel:  "Отменить",
			Change:  "Изменить",
			Confirm: "Подтвердить",
		},
		Welcome:          "Привет! Я бот для учёта расходов. Начните с команды /addexpense, или напишите трату в формате: продукт цена (например, молоко 100)",
		HelpHeader:       "Доступные команды",
		UnknownCommand:   "Не поддерживаем пока такую команду",
		NotUnderstood:    "Не понимаю вас",
		AskExpense:       "Введите трату в формате: описание цена, например: продукты 15.5",
		ExpenseFormat:    "Пожалуйста, укажите трату в формате 'описание сумма', например: 'продукты 15.5'",
		NoCategoriesYet:  "Вы ввели трату '%s' на сумму %.2f. Вы ещё не добавили ни одной категории, введите новую:",
		CategoriesHeader: "Ваши категории:\n\n",
		CategoryLine:     "Id: %d, название: %s\n",
		SelectCategory:   "Вы ввели трату '%s' на сумму %.2f. Введите Id или название категории из списка, или введите название новой категории",
		NoCategoryWithID: "Нет категории с таким id",
		ConfirmExpense:   "Подтвердите добавление траты '%s' на сумму %.2f в категорию %s",
		ConfirmHint:      "Пожалуйста, подтвердите или отмените добавление траты, используя предложенные варианты",
		ExpenseAdded:     "Трата добавлена в категорию '%s'",
		ExpenseCancelled: "Добавление траты отменено",

		AskNewCategory:  "Введите название для новой категории трат:",
		CategoryExists:  "Такая категория уже добавлена",
		ConfirmCategory: "Подтвердите добавление новой категории: %s",
		CategoryAdded:   "Категория успешно добавлена",

		NoCategoriesToDelete: "У вас нет категорий для удаления",
		AskCategoryToDelete:  "Введите Id или название категории, которую хотите удалить:",
		CategoryNotFound:     "Такой категории не существует",
		DefaultNotDeletable:  "Категорию '%s' удалить нельзя",
		ConfirmDelete:        "Вы уверены, что хотите удалить категорию '%s'? Все траты из этой категории перейдут в категорию '%s'",
		DeleteHint:           "Пожалуйста, подтвердите удаление категории, выбрав одну из предоставленных опций",
		CategoryDeletedMoved: "Категория успешно удалена, все траты перемещены в категорию '%s'",
		CategoryDeletedEmpty: "Категория успешно удалена, трат в этой категории не было",

		ConfirmCleanup: "Вы уверены, что хотите удалить ВСЕ траты? Это действие нельзя отменить.",
		CleanupDone:    "Все траты успешно удалены",

		NoExpenses:        "Вы пока не записали ни одну трату",
		ShowingExpenses:   "Показываем %d из %d ваших трат",
		ShowingCategories: "Показываем %d из %d ваших категорий",
		ExpensesHeader:    "Ваши траты:\n\n",
		ExpenseLine:       "%d. [%s] - **%s**: %s, на сумму: %.2f\n",
		TotalLine:         "Общая сумма трат: %.2f",
		ByCategoryHeader:  "Траты по категориям: \n\n",
		ByCategoryLine:    "%s: %.2f\n",
		DateLayout:        "02.01.06 15:04",
		CommandDescriptions: map[string]string{
			"help":               "Показать это сообщение",
			"start":              "Показать приветственное сообщение",
			"addexpense":         "Добавить трату",
			"addnewcategory":     "Добавить категорию",
			"deletecategory":     "Удалить категорию",
			"clearallexpenses":   "Удалить все траты",
			"allexpenses":        "Вывести список всех трат",
			"totalexpenses":      "Вывести сумму трат",
			"expensesbycategory": "Вывести сумму трат по категориям",
		},
	}
}

// Load returns the built-in pack with the keys found in the TOML file at path
// laid over it. An empty path returns the built-in pack.
func Load(path string) (*Phrases, error) {
	p := Russian()
	if strings.TrimSpace(path) == "" {
		return p, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("locale file: %w", err)
	}
	if _, err := toml.DecodeFile(path, p); err != nil {
		return nil, fmt.Errorf("decode locale %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("locale %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that the trigger words are set and pairwise distinct.
func (p *Phrases) Validate() error {
	words := map[string]string{
		"yes":    p.Words.Yes,
		"no":     p.Words.No,
		"back":   p.Words.Back,
		"cancel": p.Words.Cancel,
		"change": p.Words.Change,
	}
	seen := map[string]string{}
	for key, w := range words {
		if strings.TrimSpace(w) == "" {
			return fmt.Errorf("word %q is empty", key)
		}
		if other, ok := seen[w]; ok {
			return fmt.Errorf("words %q and %q are both %q", key, other, w)
		}
		seen[w] = key
	}
	return nil
}
