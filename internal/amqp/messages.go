package amqp

import (
	"encoding/json"
	"time"

	"ledgerbot/internal/core"
	"ledgerbot/internal/input"
	"ledgerbot/internal/session"
)

// InboundMessage is one user event delivered by a chat gateway.
type InboundMessage struct {
	EventID   string    `json:"event_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	ChatID    int64     `json:"chat_id"`
	Text      string    `json:"text,omitempty"`
	Button    string    `json:"button,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event converts the message for the conversation driver. A missing user id
// stays missing.
func (m *InboundMessage) Event() input.Event {
	ev := input.Event{ID: m.EventID, ChatID: m.ChatID, Text: m.Text, Button: m.Button}
	if m.UserID != nil {
		id := core.UserID(*m.UserID)
		ev.From = &id
	}
	return ev
}

// FromJSON creates a message from JSON bytes
func InboundMessageFromJSON(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ToJSON converts the message to JSON bytes
func (m *InboundMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// OutboundMessage carries one prompt back to the chat gateway.
type OutboundMessage struct {
	MessageID string         `json:"message_id"`
	ChatID    int64          `json:"chat_id"`
	Prompt    session.Prompt `json:"prompt"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewOutboundMessage(id string, chatID int64, p session.Prompt) *OutboundMessage {
	return &OutboundMessage{
		MessageID: id,
		ChatID:    chatID,
		Prompt:    p,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *OutboundMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func OutboundMessageFromJSON(data []byte) (*OutboundMessage, error) {
	var msg OutboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// LedgerEventMessage announces an applied ledger change.
type LedgerEventMessage struct {
	EventID     string    `json:"event_id"`
	UserID      int64     `json:"user_id"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount,omitempty"`
	Moved       int       `json:"moved,omitempty"`
	Cleared     int       `json:"cleared,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
