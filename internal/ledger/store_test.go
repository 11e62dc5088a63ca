package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerbot/internal/core"
)

// fakePersister records saves and detects overlapping calls.
type fakePersister struct {
	initial  map[core.UserID]*core.UserLedger
	loadErr  error
	saveErr  error
	saves    atomic.Int64
	inFlight atomic.Int32
	overlap  atomic.Bool

	mu   sync.Mutex
	last map[core.UserID]core.UserLedger
}

func (f *fakePersister) Load(context.Context) (map[core.UserID]*core.UserLedger, error) {
	return f.initial, f.loadErr
}

func (f *fakePersister) Save(_ context.Context, users map[core.UserID]*core.UserLedger) error {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inFlight.Add(-1)
	time.Sleep(100 * time.Microsecond)

	f.saves.Add(1)
	snap := make(map[core.UserID]core.UserLedger, len(users))
	for id, l := range users {
		snap[id] = l.Clone()
	}
	f.mu.Lock()
	f.last = snap
	f.mu.Unlock()
	return f.saveErr
}

func openStore(t *testing.T, p *fakePersister) *Store {
	t.Helper()
	s, err := Open(context.Background(), p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpenPropagatesLoadError(t *testing.T) {
	_, err := Open(context.Background(), &fakePersister{loadErr: errors.New("corrupt")})
	if err == nil {
		t.Fatal("expected load error")
	}
}

func TestViewCreatesUserWithDefaultCategory(t *testing.T) {
	s := openStore(t, &fakePersister{})

	v := s.View(42)
	if len(v.Categories) != 1 || v.Categories[0] != core.DefaultCategory {
		t.Fatalf("categories = %v", v.Categories)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d", s.Len())
	}
}

func TestViewIsACopy(t *testing.T) {
	s := openStore(t, &fakePersister{})
	v := s.View(1)
	v.Categories[0] = "mutated"

	if got := s.View(1).Categories[0]; got != core.DefaultCategory {
		t.Fatalf("store mutated through view: %q", got)
	}
}

func TestViewRepairsLedgerWithoutCategories(t *testing.T) {
	p := &fakePersister{initial: map[core.UserID]*core.UserLedger{7: {}}}
	s := openStore(t, p)

	if got := s.View(7).Categories; len(got) != 1 || got[0] != core.DefaultCategory {
		t.Fatalf("categories = %v", got)
	}
}

func TestViewAddsMissingDefaultToLoadedLedger(t *testing.T) {
	p := &fakePersister{initial: map[core.UserID]*core.UserLedger{
		1: {Categories: []string{"Еда"}},
	}}
	s := openStore(t, p)

	v := s.View(1)
	if len(v.Categories) != 2 || v.Categories[0] != "Еда" || v.Categories[1] != core.DefaultCategory {
		t.Fatalf("categories = %v", v.Categories)
	}

	s.Update(context.Background(), 1, func(l *core.UserLedger) bool {
		_, err := l.DeleteCategory("Еда")
		return err == nil
	})

	p.mu.Lock()
	saved := p.last[1]
	p.mu.Unlock()
	if len(saved.Categories) != 1 || saved.Categories[0] != core.DefaultCategory {
		t.Fatalf("saved categories = %v", saved.Categories)
	}
}

func TestUpdateSavesOnlyOnChange(t *testing.T) {
	p := &fakePersister{}
	s := openStore(t, p)
	ctx := context.Background()

	s.Update(ctx, 1, func(*core.UserLedger) bool { return false })
	if p.saves.Load() != 0 {
		t.Fatalf("saved without change")
	}

	s.Update(ctx, 1, func(l *core.UserLedger) bool { return l.AddCategory("Еда") })
	if p.saves.Load() != 1 {
		t.Fatalf("saves = %d, want 1", p.saves.Load())
	}
	if got := p.last[1].Categories; len(got) != 2 || got[1] != "Еда" {
		t.Fatalf("snapshot categories = %v", got)
	}
}

func TestUpdateSwallowsSaveFailure(t *testing.T) {
	p := &fakePersister{saveErr: errors.New("disk full")}
	s := openStore(t, p)

	s.Update(context.Background(), 1, func(l *core.UserLedger) bool { return l.AddCategory("Еда") })

	l, ok := s.Ledger(1)
	if !ok || !l.HasCategory("Еда") {
		t.Fatalf("in-memory change lost after failed save: %+v", l)
	}
}

func TestConcurrentUpdatesNeverOverlapSaves(t *testing.T) {
	p := &fakePersister{}
	s := openStore(t, p)
	ctx := context.Background()

	const users, perUser = 8, 25
	var g errgroup.Group
	for u := 0; u < users; u++ {
		id := core.UserID(u)
		g.Go(func() error {
			for i := 0; i < perUser; i++ {
				s.Update(ctx, id, func(l *core.UserLedger) bool {
					return l.AppendExpense(core.Expense{
						Description: "кофе",
						Amount:      1,
						Category:    core.DefaultCategory,
						Date:        time.Now(),
					}) == nil
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if p.overlap.Load() {
		t.Fatal("two snapshots ran at the same time")
	}
	if got := p.saves.Load(); got != users*perUser {
		t.Fatalf("saves = %d, want %d", got, users*perUser)
	}
	for u := 0; u < users; u++ {
		if n := len(p.last[core.UserID(u)].Expenses); n != perUser {
			t.Fatalf("user %d has %d expenses in final snapshot, want %d", u, n, perUser)
		}
	}
}

func TestUsageCountsExpensesPerCategory(t *testing.T) {
	s := openStore(t, &fakePersister{})
	s.Update(context.Background(), 1, func(l *core.UserLedger) bool {
		_ = l.AppendExpense(core.Expense{Description: "a", Amount: 1, Category: "Еда"})
		_ = l.AppendExpense(core.Expense{Description: "b", Amount: 2, Category: "Еда"})
		return true
	})

	v := s.View(1)
	if v.Usage["Еда"] != 2 || v.Usage[core.DefaultCategory] != 0 {
		t.Fatalf("usage = %v", v.Usage)
	}
}
