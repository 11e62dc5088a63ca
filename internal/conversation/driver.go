// Package conversation runs one inbound event through the session machine:
// it resolves the action, applies ledger effects, stores the next state and
// sends the prompts.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ledgerbot/internal/cache"
	"ledgerbot/internal/core"
	"ledgerbot/internal/input"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/locale"
	"ledgerbot/internal/log"
	"ledgerbot/internal/metrics"
	"ledgerbot/internal/services"
	"ledgerbot/internal/session"
)

var ErrMissingSender = errors.New("event has no sender")

// Sender delivers one prompt to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, p session.Prompt) error
}

type SenderFunc func(ctx context.Context, chatID int64, p session.Prompt) error

func (f SenderFunc) Send(ctx context.Context, chatID int64, p session.Prompt) error {
	return f(ctx, chatID, p)
}

// Notifier receives the ledger events produced by one handled event.
type Notifier interface {
	Publish(ctx context.Context, events []services.LedgerEvent)
}

type Driver struct {
	store    *ledger.Store
	phrases  *locale.Phrases
	resolver *input.Resolver

	mu     sync.Mutex
	states map[core.UserID]session.State
	locks  map[core.UserID]*sync.Mutex

	seen     *cache.Recent
	notifier Notifier
	logger   *log.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Driver)

func WithLogger(l *log.Logger) Option {
	return func(d *Driver) { d.logger = l.WithComponent(log.ComponentConversation) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithDedupe drops events whose id was handled recently.
func WithDedupe(r *cache.Recent) Option {
	return func(d *Driver) { d.seen = r }
}

func WithNotifier(n Notifier) Option {
	return func(d *Driver) { d.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

func New(store *ledger.Store, phrases *locale.Phrases, opts ...Option) *Driver {
	if phrases == nil {
		phrases = locale.Russian()
	}
	d := &Driver{
		store:    store,
		phrases:  phrases,
		resolver: input.NewResolver(phrases),
		states:   make(map[core.UserID]session.State),
		locks:    make(map[core.UserID]*sync.Mutex),
		logger:   log.Discard(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// State returns the user's current conversation state.
func (d *Driver) State(id core.UserID) session.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.states[id]; ok {
		return s
	}
	return session.Idle{}
}

func (d *Driver) setState(id core.UserID, s session.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states[id] = s
}

// userLock returns the user's mutex. Locks are never evicted: one small
// mutex per user lives as long as that user's conversation state does.
func (d *Driver) userLock(id core.UserID) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[id]
	if !ok {
		l = &sync.Mutex{}
		d.locks[id] = l
	}
	return l
}

// Handle processes one event to completion. Events of the same user are
// handled one at a time in arrival order; other users proceed in parallel.
// The first send failure is returned after the state has been stored.
func (d *Driver) Handle(ctx context.Context, ev input.Event, out Sender) error {
	if ev.From == nil {
		d.logger.WarnContext(ctx, "Dropping event without sender",
			log.FieldEventID, ev.ID,
			log.FieldChatID, ev.ChatID)
		return fmt.Errorf("event %q: %w", ev.ID, ErrMissingSender)
	}
	user := *ev.From

	if ev.ID != "" && d.seen != nil && d.seen.Seen(ev.ID) {
		d.metrics.Duplicate()
		d.logger.InfoContext(ctx, "Duplicate event dropped",
			log.FieldEventID, ev.ID,
			log.FieldUserID, int64(user))
		return nil
	}

	lock := d.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	action := d.resolver.Resolve(ev)
	d.metrics.Event(action.Kind.String())

	state := d.State(user)
	res := session.Transition(state, action, d.store.View(user), d.phrases)
	if res.Next == nil {
		res.Next = session.Idle{}
	}

	events := d.apply(ctx, user, res.Effects)
	if len(events) > 0 && d.notifier != nil {
		d.notifier.Publish(ctx, events)
	}

	d.setState(user, res.Next)
	d.metrics.Transition(state.Name(), res.Next.Name())
	d.logger.DebugContext(ctx, "Event handled", log.NewFields().
		WithConversation(ev.ID, int64(user), ev.ChatID).
		WithTransition(action.Kind.String(), state.Name(), res.Next.Name()).
		ToSlice()...)

	return d.send(ctx, ev.ChatID, res.Prompts, out)
}

// apply runs all effects in one store critical section and returns a ledger
// event for every effect that changed something.
func (d *Driver) apply(ctx context.Context, user core.UserID, effects []session.Effect) []services.LedgerEvent {
	if len(effects) == 0 {
		return nil
	}
	now := d.now()
	var events []services.LedgerEvent
	d.store.Update(ctx, user, func(l *core.UserLedger) bool {
		changed := false
		for _, e := range effects {
			o := e.Apply(l, now)
			d.metrics.Effect(o.Kind, o.Changed)
			if !o.Changed {
				continue
			}
			changed = true
			events = append(events, services.NewLedgerEvent(user, o, now))

			fields := log.NewFields().WithOperation(o.Kind)
			if o.Expense != nil {
				fields = fields.WithExpense(o.Expense.Description, o.Expense.Amount, o.Expense.Category)
			}
			d.logger.InfoContext(ctx, "Ledger changed", append(fields.ToSlice(), log.FieldUserID, int64(user))...)
		}
		return changed
	})
	return events
}

func (d *Driver) send(ctx context.Context, chatID int64, prompts []session.Prompt, out Sender) error {
	if out == nil {
		return nil
	}
	for _, p := range prompts {
		if err := out.Send(ctx, chatID, p); err != nil {
			d.metrics.SendFailure()
			d.logger.ErrorContext(ctx, "Failed to send prompt",
				log.FieldChatID, chatID,
				log.FieldOperation, log.OpSend,
				log.FieldError, err)
			return fmt.Errorf("send to chat %d: %w", chatID, err)
		}
	}
	return nil
}
