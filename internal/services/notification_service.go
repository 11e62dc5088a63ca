package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
	"ledgerbot/internal/session"
	"ledgerbot/internal/sheets"
)

// LedgerEvent reports one applied ledger change to the outside world.
type LedgerEvent struct {
	ID       string
	UserID   core.UserID
	At       time.Time
	Kind     string
	Category string
	Expense  *core.Expense
	Moved    int
	Cleared  int
}

func NewLedgerEvent(user core.UserID, o session.Outcome, at time.Time) LedgerEvent {
	return LedgerEvent{
		ID:       uuid.NewString(),
		UserID:   user,
		At:       at,
		Kind:     o.Kind,
		Category: o.Category,
		Expense:  o.Expense,
		Moved:    o.Moved,
		Cleared:  o.Cleared,
	}
}

// Sink receives ledger events. Sinks are best-effort.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev LedgerEvent) error
}

// NotificationService fans ledger events out to every sink. The ledger is
// already saved when it runs, so sink failures are logged and dropped.
type NotificationService struct {
	sinks  []Sink
	logger *log.Logger
}

func NewNotificationService(logger *log.Logger, sinks ...Sink) *NotificationService {
	if logger == nil {
		logger = log.Discard()
	}
	return &NotificationService{sinks: sinks, logger: logger}
}

func (s *NotificationService) Publish(ctx context.Context, events []LedgerEvent) {
	for _, ev := range events {
		for _, sink := range s.sinks {
			if err := sink.Publish(ctx, ev); err != nil {
				s.logger.ErrorContext(ctx, "Failed to publish ledger event",
					"sink", sink.Name(),
					"event_id", ev.ID,
					log.FieldUserID, int64(ev.UserID),
					log.FieldError, err)
			}
		}
	}
}

// Close closes every sink that holds a connection.
func (s *NotificationService) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// AMQPSink publishes ledger events on the events routing key.
type AMQPSink struct {
	client *amqp.Client
}

func NewAMQPSink(client *amqp.Client) *AMQPSink {
	return &AMQPSink{client: client}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Publish(ctx context.Context, ev LedgerEvent) error {
	if s.client == nil {
		return errors.New("AMQP client not available")
	}
	msg := &amqp.LedgerEventMessage{
		EventID:   ev.ID,
		UserID:    int64(ev.UserID),
		Kind:      ev.Kind,
		Category:  ev.Category,
		Moved:     ev.Moved,
		Cleared:   ev.Cleared,
		Timestamp: ev.At,
	}
	if ev.Expense != nil {
		msg.Description = ev.Expense.Description
		msg.Amount = ev.Expense.Amount
	}
	return s.client.PublishLedgerEvent(ctx, msg)
}

// SheetsSink mirrors ledger events as spreadsheet rows.
type SheetsSink struct {
	writer sheets.EventWriter
}

func NewSheetsSink(w sheets.EventWriter) *SheetsSink {
	return &SheetsSink{writer: w}
}

func (s *SheetsSink) Name() string { return "sheets" }

func (s *SheetsSink) Publish(ctx context.Context, ev LedgerEvent) error {
	row := sheets.EventRow{
		EventID:  ev.ID,
		At:       ev.At,
		UserID:   int64(ev.UserID),
		Kind:     ev.Kind,
		Category: ev.Category,
		Moved:    ev.Moved,
		Cleared:  ev.Cleared,
	}
	if ev.Expense != nil {
		row.Description = ev.Expense.Description
		row.Amount = ev.Expense.Amount
	}
	_, err := s.writer.AppendEvent(ctx, row)
	return err
}
