package session

import "fmt"

type KeyboardKind int

const (
	NoKeyboard     KeyboardKind = iota
	ReplyKeyboard               // one-shot; a pressed label comes back as plain text
	InlineKeyboard              // a pressed button comes back as its token
)

func (k KeyboardKind) String() string {
	switch k {
	case ReplyKeyboard:
		return "reply"
	case InlineKeyboard:
		return "inline"
	default:
		return "none"
	}
}

func (k KeyboardKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *KeyboardKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none", "":
		*k = NoKeyboard
	case "reply":
		*k = ReplyKeyboard
	case "inline":
		*k = InlineKeyboard
	default:
		return fmt.Errorf("unknown keyboard kind %q", b)
	}
	return nil
}

type Button struct {
	Label string `json:"label"`
	Token string `json:"token,omitempty"` // inline keyboards only
}

type Keyboard struct {
	Kind KeyboardKind `json:"kind"`
	Rows [][]Button   `json:"rows,omitempty"`
}

// Prompt is one outbound message.
type Prompt struct {
	Text     string   `json:"text"`
	Keyboard Keyboard `json:"keyboard"`
}

func textPrompt(text string) Prompt {
	return Prompt{Text: text}
}

func replyPrompt(text string, rows ...[]string) Prompt {
	kb := Keyboard{Kind: ReplyKeyboard}
	for _, labels := range rows {
		row := make([]Button, 0, len(labels))
		for _, l := range labels {
			row = append(row, Button{Label: l})
		}
		kb.Rows = append(kb.Rows, row)
	}
	return Prompt{Text: text, Keyboard: kb}
}

func inlinePrompt(text string, rows [][]Button) Prompt {
	return Prompt{Text: text, Keyboard: Keyboard{Kind: InlineKeyboard, Rows: rows}}
}
