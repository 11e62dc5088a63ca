// Package input turns raw inbound events into typed actions.
package input

import (
	"strconv"
	"strings"

	"ledgerbot/internal/core"
	"ledgerbot/internal/locale"
)

// Event is what a transport hands to the conversation driver.
type Event struct {
	ID     string       // transport-level id, used to drop redeliveries
	From   *core.UserID // nil when the transport could not identify the sender
	ChatID int64        // where replies go
	Text   string
	Button string // structured button payload, if any
}

type Kind int

const (
	Unrecognized Kind = iota
	FreeText
	Numeric
	ButtonAnswer
	Confirm
	Deny
	Back
	Cancel
	Change
	Command
)

var kindNames = [...]string{
	Unrecognized: "unrecognized",
	FreeText:     "free_text",
	Numeric:      "numeric",
	ButtonAnswer: "button",
	Confirm:      "confirm",
	Deny:         "deny",
	Back:         "back",
	Cancel:       "cancel",
	Change:       "change",
	Command:      "command",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Button tokens understood by Resolve. Category buttons carry
// CategoryTokenPrefix followed by the category name.
const (
	TokenConfirm        = "Confirm"
	TokenDeny           = "Deny"
	TokenBack           = "Back"
	TokenCancel         = "Cancel"
	TokenChange         = "Change"
	CategoryTokenPrefix = "category:"
)

// CategoryToken builds the inline button payload for a category.
func CategoryToken(name string) string {
	return CategoryTokenPrefix + name
}

type Action struct {
	Kind    Kind
	Text    string // trimmed text, or the category name for ButtonAnswer
	Number  uint64 // set for Numeric
	Command CommandName
}

type Resolver struct {
	words locale.Words
}

func NewResolver(p *locale.Phrases) *Resolver {
	return &Resolver{words: p.Words}
}

// Resolve maps one event to exactly one action. Button payloads win over text.
func (r *Resolver) Resolve(ev Event) Action {
	if ev.Button != "" {
		return resolveButton(ev.Button)
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return Action{Kind: Unrecognized}
	}
	if name, ok := parseCommand(text); ok {
		return Action{Kind: Command, Text: text, Command: name}
	}

	switch text {
	case r.words.Yes:
		return Action{Kind: Confirm, Text: text}
	case r.words.No:
		return Action{Kind: Deny, Text: text}
	case r.words.Back:
		return Action{Kind: Back, Text: text}
	case r.words.Cancel:
		return Action{Kind: Cancel, Text: text}
	case r.words.Change:
		return Action{Kind: Change, Text: text}
	}

	if isDigits(text) {
		if n, err := strconv.ParseUint(text, 10, 64); err == nil {
			return Action{Kind: Numeric, Text: text, Number: n}
		}
	}
	return Action{Kind: FreeText, Text: text}
}

// resolveButton leaves Text empty for control tokens so that a stale button
// can never be taken for a name.
func resolveButton(token string) Action {
	switch token {
	case TokenConfirm:
		return Action{Kind: Confirm}
	case TokenDeny:
		return Action{Kind: Deny}
	case TokenBack:
		return Action{Kind: Back}
	case TokenCancel:
		return Action{Kind: Cancel}
	case TokenChange:
		return Action{Kind: Change}
	}
	if name, ok := strings.CutPrefix(token, CategoryTokenPrefix); ok && name != "" {
		return Action{Kind: ButtonAnswer, Text: name}
	}
	return Action{Kind: ButtonAnswer, Text: token}
}

// isDigits rejects signs so "+1" stays free text.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
