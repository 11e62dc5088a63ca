package input

import "strings"

type CommandName string

const (
	CmdUnknown            CommandName = ""
	CmdStart              CommandName = "start"
	CmdHelp               CommandName = "help"
	CmdAddExpense         CommandName = "addexpense"
	CmdAddNewCategory     CommandName = "addnewcategory"
	CmdDeleteCategory     CommandName = "deletecategory"
	CmdClearAllExpenses   CommandName = "clearallexpenses"
	CmdAllExpenses        CommandName = "allexpenses"
	CmdTotalExpenses      CommandName = "totalexpenses"
	CmdExpensesByCategory CommandName = "expensesbycategory"
)

// Commands lists the supported commands in help order.
var Commands = []CommandName{
	CmdHelp,
	CmdStart,
	CmdAddExpense,
	CmdAddNewCategory,
	CmdDeleteCategory,
	CmdClearAllExpenses,
	CmdAllExpenses,
	CmdTotalExpenses,
	CmdExpensesByCategory,
}

// parseCommand recognises "/name" and "/name@bot", ignoring any arguments.
// Names match exactly as typed.
func parseCommand(text string) (CommandName, bool) {
	if !strings.HasPrefix(text, "/") {
		return CmdUnknown, false
	}
	head := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	if head == "" {
		return CmdUnknown, false
	}
	name := CommandName(head)
	for _, c := range Commands {
		if c == name {
			return c, true
		}
	}
	return CmdUnknown, true
}
