// Package console runs a conversation over a line-oriented terminal.
//
// Each input line is one event from a single local user. A line starting
// with '#' presses the button whose token follows, e.g. "#Confirm" or
// "#category:Еда". Text that itself starts with '#' is typed with the prefix
// doubled: "##1 кофе 100" sends "#1 кофе 100". An empty line is ignored.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"ledgerbot/internal/conversation"
	"ledgerbot/internal/core"
	"ledgerbot/internal/input"
	"ledgerbot/internal/log"
	"ledgerbot/internal/session"
)

const buttonPrefix = "#"

// Handler is the part of the conversation driver the console needs.
type Handler interface {
	Handle(ctx context.Context, ev input.Event, out conversation.Sender) error
}

type Console struct {
	handler Handler
	user    core.UserID
	out     io.Writer
	logger  *log.Logger
}

func New(handler Handler, user core.UserID, out io.Writer, logger *log.Logger) *Console {
	if logger == nil {
		logger = log.Discard()
	}
	return &Console{
		handler: handler,
		user:    user,
		out:     out,
		logger:  logger.WithComponent(log.ComponentConsole),
	}
}

// Run reads lines until EOF or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := c.handler.Handle(ctx, c.event(line), conversation.SenderFunc(c.print)); err != nil {
			c.logger.ErrorContext(ctx, "Event failed", log.FieldError, err)
			fmt.Fprintf(c.out, "! %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func (c *Console) event(line string) input.Event {
	user := c.user
	ev := input.Event{ID: uuid.NewString(), From: &user, ChatID: int64(user)}
	switch token, ok := strings.CutPrefix(line, buttonPrefix); {
	case strings.HasPrefix(token, buttonPrefix):
		ev.Text = token
	case ok && token != "":
		ev.Button = token
	default:
		ev.Text = line
	}
	return ev
}

func (c *Console) print(_ context.Context, _ int64, p session.Prompt) error {
	_, err := io.WriteString(c.out, Render(p))
	return err
}

// Render formats a prompt for a terminal. Reply keyboards list labels to
// type; inline keyboards list "#token" lines to press.
func Render(p session.Prompt) string {
	var b strings.Builder
	b.WriteString(p.Text)
	b.WriteByte('\n')
	for _, row := range p.Keyboard.Rows {
		labels := make([]string, 0, len(row))
		for _, btn := range row {
			switch p.Keyboard.Kind {
			case session.InlineKeyboard:
				labels = append(labels, fmt.Sprintf("[%s] %s%s", btn.Label, buttonPrefix, btn.Token))
			default:
				labels = append(labels, "["+btn.Label+"]")
			}
		}
		b.WriteString("  ")
		b.WriteString(strings.Join(labels, "  "))
		b.WriteByte('\n')
	}
	return b.String()
}
