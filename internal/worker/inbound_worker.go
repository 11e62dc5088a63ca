// Package worker bridges the AMQP inbound queue to the conversation driver.
package worker

import (
	"context"
	"fmt"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/conversation"
	"ledgerbot/internal/input"
	"ledgerbot/internal/log"
	"ledgerbot/internal/session"
)

// EventHandler is the conversation driver as seen by the worker.
type EventHandler interface {
	Handle(ctx context.Context, ev input.Event, out conversation.Sender) error
}

// PromptPublisher delivers prompts back to the chat gateway.
type PromptPublisher interface {
	PublishPrompt(ctx context.Context, chatID int64, p session.Prompt) error
}

type InboundWorker struct {
	handler EventHandler
	out     conversation.Sender
	logger  *log.Logger
}

func NewInboundWorker(handler EventHandler, pub PromptPublisher, logger *log.Logger) *InboundWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &InboundWorker{
		handler: handler,
		out:     conversation.SenderFunc(pub.PublishPrompt),
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage processes a single inbound message from AMQP. Any error
// rejects the delivery; the conversation state has already moved on, so a
// redelivery would be applied twice.
func (w *InboundWorker) HandleMessage(ctx context.Context, msg *amqp.InboundMessage) error {
	ev := msg.Event()
	w.logger.DebugContext(ctx, "Processing inbound message",
		log.FieldEventID, msg.EventID,
		log.FieldChatID, msg.ChatID)

	if err := w.handler.Handle(ctx, ev, w.out); err != nil {
		return fmt.Errorf("handle event %s: %w", msg.EventID, err)
	}
	return nil
}

// Run consumes the inbound queue until ctx is done.
func (w *InboundWorker) Run(ctx context.Context, client *amqp.Client, concurrency int) error {
	w.logger.InfoContext(ctx, "Inbound worker started", "concurrency", concurrency)
	defer w.logger.InfoContext(ctx, "Inbound worker stopped")
	return client.Run(ctx, concurrency, w.HandleMessage)
}
