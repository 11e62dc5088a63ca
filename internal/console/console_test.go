package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"ledgerbot/internal/conversation"
	"ledgerbot/internal/input"
	"ledgerbot/internal/session"
)

type scripted struct {
	events []input.Event
	reply  session.Prompt
	fail   error
}

func (s *scripted) Handle(ctx context.Context, ev input.Event, out conversation.Sender) error {
	s.events = append(s.events, ev)
	if s.fail != nil {
		return s.fail
	}
	return out.Send(ctx, ev.ChatID, s.reply)
}

func TestRunTurnsLinesIntoEvents(t *testing.T) {
	h := &scripted{reply: session.Prompt{Text: "ok"}}
	var out bytes.Buffer
	c := New(h, 5, &out, nil)

	if err := c.Run(context.Background(), strings.NewReader("кофе 150\n\n#Confirm\n#\n##1 кофе 100\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.events) != 4 {
		t.Fatalf("events = %d, want 4", len(h.events))
	}

	tests := []struct {
		text, button string
	}{
		{"кофе 150", ""},
		{"", input.TokenConfirm},
		{"#", ""},
		{"#1 кофе 100", ""},
	}
	for i, tt := range tests {
		ev := h.events[i]
		if ev.Text != tt.text || ev.Button != tt.button {
			t.Errorf("event %d = %+v, want text %q button %q", i, ev, tt.text, tt.button)
		}
		if ev.From == nil || *ev.From != 5 || ev.ChatID != 5 || ev.ID == "" {
			t.Errorf("event %d sender = %+v", i, ev)
		}
	}
	if got := strings.Count(out.String(), "ok\n"); got != 4 {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunReportsErrors(t *testing.T) {
	h := &scripted{fail: errors.New("boom")}
	var out bytes.Buffer

	if err := New(h, 1, &out, nil).Run(context.Background(), strings.NewReader("hi\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "! boom") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		p    session.Prompt
		want string
	}{
		{"plain", session.Prompt{Text: "Привет"}, "Привет\n"},
		{
			"reply",
			session.Prompt{Text: "Точно?", Keyboard: session.Keyboard{
				Kind: session.ReplyKeyboard,
				Rows: [][]session.Button{{{Label: "Да"}, {Label: "Нет"}}},
			}},
			"Точно?\n  [Да]  [Нет]\n",
		},
		{
			"inline",
			session.Prompt{Text: "Категория", Keyboard: session.Keyboard{
				Kind: session.InlineKeyboard,
				Rows: [][]session.Button{{{Label: "Еда", Token: "category:Еда"}}},
			}},
			"Категория\n  [Еда] #category:Еда\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.p); got != tt.want {
				t.Fatalf("Render = %q, want %q", got, tt.want)
			}
		})
	}
}
