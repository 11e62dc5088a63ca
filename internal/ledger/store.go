// Package ledger owns every user's expenses and categories in memory and
// snapshots them through a Persister after each change.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
	"ledgerbot/internal/metrics"
)

// Persister loads and saves the full user mapping.
type Persister interface {
	Load(ctx context.Context) (map[core.UserID]*core.UserLedger, error)
	Save(ctx context.Context, users map[core.UserID]*core.UserLedger) error
}

// View is a copy of one user's ledger, safe to read without the store lock.
type View struct {
	Categories []string
	Usage      map[string]int // expense count per category
	Expenses   []core.Expense
}

// Store serializes all reads and writes behind one mutex. Snapshots are taken
// while the mutex is held, so a snapshot always reflects a consistent mapping.
type Store struct {
	mu        sync.Mutex
	users     map[core.UserID]*core.UserLedger
	persister Persister

	logger  *log.Logger
	metrics *metrics.Metrics
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentLedger) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Open loads the persisted mapping. A load failure is fatal to startup.
func Open(ctx context.Context, p Persister, opts ...Option) (*Store, error) {
	s := &Store{persister: p, logger: log.Discard()}
	for _, o := range opts {
		o(s)
	}

	users, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if users == nil {
		users = make(map[core.UserID]*core.UserLedger)
	}
	s.users = users

	s.logger.Info("Ledger loaded", log.FieldOperation, log.OpLoad, "users", len(users))
	return s, nil
}

func (s *Store) lock() {
	start := time.Now()
	s.mu.Lock()
	s.metrics.LockWait(time.Since(start))
}

// getOrCreate must be called with mu held.
func (s *Store) getOrCreate(id core.UserID) (*core.UserLedger, bool) {
	l, ok := s.users[id]
	if !ok {
		l = core.NewUserLedger()
		s.users[id] = l
		return l, true
	}
	return l, l.EnsureDefault()
}

// View returns a copy of the user's ledger, creating it on first contact.
// Creation alone is not snapshotted; the next Update persists it.
func (s *Store) View(id core.UserID) View {
	s.lock()
	defer s.mu.Unlock()

	l, _ := s.getOrCreate(id)
	c := l.Clone()
	return View{
		Categories: c.Categories,
		Usage:      l.Usage(),
		Expenses:   c.Expenses,
	}
}

// Update runs fn on the user's ledger inside the critical section. When fn
// reports a change the whole mapping is saved before the lock is released.
// Save errors are logged and counted, never returned: memory stays ahead of
// disk until the next successful snapshot.
func (s *Store) Update(ctx context.Context, id core.UserID, fn func(*core.UserLedger) bool) {
	s.lock()
	defer s.mu.Unlock()

	l, _ := s.getOrCreate(id)
	if !fn(l) {
		return
	}
	s.snapshot(ctx)
}

// snapshot must be called with mu held.
func (s *Store) snapshot(ctx context.Context) {
	start := time.Now()
	err := s.persister.Save(ctx, s.users)
	s.metrics.Snapshot(time.Since(start), err)
	if err != nil {
		s.logger.ErrorContext(ctx, "Snapshot failed",
			log.NewFields().WithOperation(log.OpSnapshot).WithError(err).ToSlice()...)
	}
}

// Ledger returns a copy of one user's ledger and whether it exists.
func (s *Store) Ledger(id core.UserID) (core.UserLedger, bool) {
	s.lock()
	defer s.mu.Unlock()

	l, ok := s.users[id]
	if !ok {
		return core.UserLedger{}, false
	}
	return l.Clone(), true
}

// Len returns the number of known users.
func (s *Store) Len() int {
	s.lock()
	defer s.mu.Unlock()
	return len(s.users)
}
