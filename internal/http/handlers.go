package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/conversation"
	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
	"ledgerbot/internal/report"
	"ledgerbot/internal/session"
)

const maxEventBody = 64 << 10

type eventResponse struct {
	EventID string           `json:"event_id"`
	State   string           `json:"state"`
	Prompts []session.Prompt `json:"prompts"`
}

type expenseJSON struct {
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
}

type ledgerResponse struct {
	UserID     int64         `json:"user_id"`
	Categories []string      `json:"categories"`
	Expenses   []expenseJSON `json:"expenses"`
	Total      string        `json:"total"`
	State      string        `json:"state"`
}

// collector keeps prompts for the response and forwards them when asked to.
type collector struct {
	mu      sync.Mutex
	prompts []session.Prompt
	forward conversation.Sender
}

func (c *collector) Send(ctx context.Context, chatID int64, p session.Prompt) error {
	c.mu.Lock()
	c.prompts = append(c.prompts, p)
	c.mu.Unlock()
	if c.forward != nil {
		return c.forward.Send(ctx, chatID, p)
	}
	return nil
}

// handleEvent accepts the same document as the AMQP inbound queue.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	var msg amqp.InboundMessage
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event: "+err.Error())
		return
	}
	if msg.EventID == "" {
		msg.EventID = uuid.NewString()
	}
	msg.Text = sanitizeInput(msg.Text)
	msg.Button = sanitizeInput(msg.Button)

	out := &collector{forward: s.deps.Forward}
	err := s.deps.Driver.Handle(ctx, msg.Event(), out)
	switch {
	case errors.Is(err, conversation.ErrMissingSender):
		writeError(w, http.StatusUnprocessableEntity, "event has no user_id")
		return
	case err != nil:
		logger.ErrorContext(ctx, "Event handling failed",
			log.FieldEventID, msg.EventID,
			log.FieldError, err)
		writeError(w, http.StatusBadGateway, "prompt delivery failed")
		return
	}

	resp := eventResponse{
		EventID: msg.EventID,
		State:   s.deps.Driver.State(core.UserID(*msg.UserID)).Name(),
		Prompts: out.prompts,
	}
	if resp.Prompts == nil {
		resp.Prompts = []session.Prompt{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	l, ok := s.deps.Store.Ledger(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown user")
		return
	}

	resp := ledgerResponse{
		UserID:     int64(id),
		Categories: l.Categories,
		Expenses:   make([]expenseJSON, 0, len(l.Expenses)),
		Total:      report.Sum(l.Expenses).StringFixed(2),
		State:      s.deps.Driver.State(id).Name(),
	}
	for _, e := range l.Expenses {
		resp.Expenses = append(resp.Expenses, expenseJSON{
			Description: e.Description,
			Amount:      e.Amount,
			Category:    e.Category,
			Date:        e.Date,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sanitizeInput drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
