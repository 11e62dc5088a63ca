package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerbot/internal/cache"
	"ledgerbot/internal/core"
	"ledgerbot/internal/input"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/locale"
	"ledgerbot/internal/services"
	"ledgerbot/internal/session"
)

type memPersister struct {
	mu    sync.Mutex
	users map[core.UserID]*core.UserLedger
	saves int
}

func (p *memPersister) Load(context.Context) (map[core.UserID]*core.UserLedger, error) {
	return p.users, nil
}

func (p *memPersister) Save(context.Context, map[core.UserID]*core.UserLedger) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	return nil
}

type recorder struct {
	mu      sync.Mutex
	prompts []session.Prompt
	fail    error
}

func (r *recorder) Send(_ context.Context, _ int64, p session.Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.prompts = append(r.prompts, p)
	return nil
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.prompts))
	for i, p := range r.prompts {
		out[i] = p.Text
	}
	return out
}

type captureNotifier struct {
	mu     sync.Mutex
	events []services.LedgerEvent
}

func (n *captureNotifier) Publish(_ context.Context, events []services.LedgerEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, events...)
}

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newDriver(t *testing.T, users map[core.UserID]*core.UserLedger, opts ...Option) (*Driver, *ledger.Store) {
	t.Helper()
	if users == nil {
		users = map[core.UserID]*core.UserLedger{}
	}
	store, err := ledger.Open(context.Background(), &memPersister{users: users})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(store, locale.Russian(), opts...), store
}

func user(id int64) *core.UserID {
	u := core.UserID(id)
	return &u
}

var seq int

func say(t *testing.T, d *Driver, from int64, text string, out Sender) {
	t.Helper()
	seq++
	ev := input.Event{ID: fmt.Sprintf("ev-%d", seq), From: user(from), ChatID: from, Text: text}
	if err := d.Handle(context.Background(), ev, out); err != nil {
		t.Fatalf("Handle(%q): %v", text, err)
	}
}

func press(t *testing.T, d *Driver, from int64, token string, out Sender) {
	t.Helper()
	seq++
	ev := input.Event{ID: fmt.Sprintf("ev-%d", seq), From: user(from), ChatID: from, Button: token}
	if err := d.Handle(context.Background(), ev, out); err != nil {
		t.Fatalf("Handle(button %q): %v", token, err)
	}
}

func TestScenarioNewCategoryThroughExpense(t *testing.T) {
	notes := &captureNotifier{}
	d, store := newDriver(t, nil, WithNotifier(notes))
	out := &recorder{}

	say(t, d, 1, "кофе 150", out)
	if _, ok := d.State(1).(session.AwaitingCategorySelection); !ok {
		t.Fatalf("state = %T, want AwaitingCategorySelection", d.State(1))
	}

	say(t, d, 1, "Напитки", out)
	want := session.AwaitingExpenseConfirmation{
		Pending:  core.PendingExpense{Description: "кофе", Amount: 150},
		Category: "Напитки",
	}
	if got := d.State(1); got != want {
		t.Fatalf("state = %#v, want %#v", got, want)
	}

	press(t, d, 1, input.TokenConfirm, out)
	if _, ok := d.State(1).(session.Idle); !ok {
		t.Fatalf("state = %T, want Idle", d.State(1))
	}

	l, ok := store.Ledger(1)
	if !ok {
		t.Fatal("ledger not created")
	}
	if len(l.Expenses) != 1 {
		t.Fatalf("expenses = %+v", l.Expenses)
	}
	e := l.Expenses[0]
	if e.Description != "кофе" || e.Amount != 150 || e.Category != "Напитки" || !e.Date.Equal(fixedNow) {
		t.Fatalf("expense = %+v", e)
	}
	if !l.HasCategory("Напитки") {
		t.Fatalf("categories = %v", l.Categories)
	}

	if len(notes.events) != 1 || notes.events[0].Kind != "append_expense" || notes.events[0].UserID != 1 {
		t.Fatalf("ledger events = %+v", notes.events)
	}
}

func TestScenarioCategoryIDOutOfRange(t *testing.T) {
	d, _ := newDriver(t, map[core.UserID]*core.UserLedger{
		2: {Categories: []string{"Еда", core.DefaultCategory}},
	})
	out := &recorder{}

	say(t, d, 2, "такси 300", out)
	say(t, d, 2, "5", out)

	st, ok := d.State(2).(session.AwaitingCategorySelection)
	if !ok || st.Pending.Description != "такси" || st.Pending.Amount != 300 {
		t.Fatalf("state = %#v", d.State(2))
	}
	texts := out.texts()
	found := false
	for _, s := range texts {
		if s == locale.Russian().NoCategoryWithID {
			found = true
		}
	}
	if !found {
		t.Fatalf("no out-of-range reprompt in %q", texts)
	}
}

func TestScenarioDeleteReassigns(t *testing.T) {
	d, store := newDriver(t, map[core.UserID]*core.UserLedger{
		3: {
			Categories: []string{"Еда", core.DefaultCategory},
			Expenses: []core.Expense{
				{Description: "хлеб", Amount: 40, Category: "Еда", Date: fixedNow},
				{Description: "сыр", Amount: 300, Category: "Еда", Date: fixedNow},
			},
		},
	})
	out := &recorder{}

	say(t, d, 3, "/deletecategory", out)
	say(t, d, 3, "Еда", out)
	say(t, d, 3, "Да", out)

	l, _ := store.Ledger(3)
	if strings.Join(l.Categories, ",") != core.DefaultCategory {
		t.Fatalf("categories = %v", l.Categories)
	}
	for _, e := range l.Expenses {
		if e.Category != core.DefaultCategory {
			t.Fatalf("expense not reassigned: %+v", e)
		}
	}
	moved := fmt.Sprintf(locale.Russian().CategoryDeletedMoved, core.DefaultCategory)
	texts := out.texts()
	if !containsText(texts, moved) {
		t.Fatalf("deletion message missing from %q", texts)
	}
}

func TestScenarioCleanup(t *testing.T) {
	l := &core.UserLedger{Categories: []string{"Еда", "Такси", core.DefaultCategory}}
	for i := 0; i < 5; i++ {
		l.Expenses = append(l.Expenses, core.Expense{Description: "x", Amount: float64(i + 1), Category: "Еда", Date: fixedNow})
	}
	d, store := newDriver(t, map[core.UserID]*core.UserLedger{4: l})
	out := &recorder{}

	say(t, d, 4, "/clearallexpenses", out)
	if _, ok := d.State(4).(session.AwaitingCleanupConfirmation); !ok {
		t.Fatalf("state = %T", d.State(4))
	}
	say(t, d, 4, "Да", out)

	got, _ := store.Ledger(4)
	if len(got.Expenses) != 0 || len(got.Categories) != 3 {
		t.Fatalf("ledger = %+v", got)
	}
}

func TestMissingSender(t *testing.T) {
	d, store := newDriver(t, nil)
	out := &recorder{}

	err := d.Handle(context.Background(), input.Event{ID: "x", ChatID: 9, Text: "кофе 150"}, out)
	if !errors.Is(err, ErrMissingSender) {
		t.Fatalf("err = %v, want ErrMissingSender", err)
	}
	if len(out.texts()) != 0 || store.Len() != 0 {
		t.Fatal("event without sender must have no effect")
	}

	say(t, d, 9, "/start", out)
	if len(out.texts()) != 1 {
		t.Fatalf("next event not handled: %q", out.texts())
	}
}

func TestDuplicateEventDropped(t *testing.T) {
	d, store := newDriver(t, nil, WithDedupe(cache.NewRecent(100, time.Minute)))
	out := &recorder{}
	ctx := context.Background()

	for _, ev := range []input.Event{
		{ID: "a", From: user(5), ChatID: 5, Text: "кофе 150"},
		{ID: "b", From: user(5), ChatID: 5, Text: core.DefaultCategory},
		{ID: "c", From: user(5), ChatID: 5, Button: input.TokenConfirm},
		{ID: "c", From: user(5), ChatID: 5, Button: input.TokenConfirm},
	} {
		if err := d.Handle(ctx, ev, out); err != nil {
			t.Fatal(err)
		}
	}
	// A seen id is dropped even when the payload differs.
	if err := d.Handle(ctx, input.Event{ID: "b", From: user(5), ChatID: 5, Text: "чай 50"}, out); err != nil {
		t.Fatal(err)
	}

	l, _ := store.Ledger(5)
	if len(l.Expenses) != 1 {
		t.Fatalf("expenses = %d, want 1", len(l.Expenses))
	}
	if _, ok := d.State(5).(session.Idle); !ok {
		t.Fatalf("state = %T, want Idle", d.State(5))
	}
}

func TestSendFailureKeepsState(t *testing.T) {
	d, _ := newDriver(t, nil)
	out := &recorder{fail: errors.New("chat unreachable")}

	err := d.Handle(context.Background(), input.Event{ID: "s1", From: user(6), ChatID: 6, Text: "/addexpense"}, out)
	if err == nil || !strings.Contains(err.Error(), "chat unreachable") {
		t.Fatalf("err = %v", err)
	}
	if _, ok := d.State(6).(session.AwaitingExpenseText); !ok {
		t.Fatalf("state = %T, want AwaitingExpenseText", d.State(6))
	}
}

func TestConcurrentUsers(t *testing.T) {
	d, store := newDriver(t, nil)
	out := &recorder{}
	const users = 20

	var g errgroup.Group
	for i := 1; i <= users; i++ {
		id := int64(i)
		g.Go(func() error {
			for j, step := range []string{"обед 300", core.DefaultCategory} {
				ev := input.Event{ID: fmt.Sprintf("%d-%d", id, j), From: user(id), ChatID: id, Text: step}
				if err := d.Handle(context.Background(), ev, out); err != nil {
					return err
				}
			}
			ev := input.Event{ID: fmt.Sprintf("%d-confirm", id), From: user(id), ChatID: id, Button: input.TokenConfirm}
			return d.Handle(context.Background(), ev, out)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= users; i++ {
		l, ok := store.Ledger(core.UserID(i))
		if !ok || len(l.Expenses) != 1 {
			t.Fatalf("user %d ledger = %+v", i, l)
		}
	}
}

func TestSameUserEventsQueue(t *testing.T) {
	d, _ := newDriver(t, nil)
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	out := SenderFunc(func(_ context.Context, chatID int64, _ session.Prompt) error {
		if chatID == 7 {
			select {
			case entered <- struct{}{}:
			default:
			}
			<-release
		}
		return nil
	})
	ctx := context.Background()

	var g errgroup.Group
	g.Go(func() error {
		return d.Handle(ctx, input.Event{ID: "q1", From: user(7), ChatID: 7, Text: "/addexpense"}, out)
	})
	<-entered

	second := make(chan error, 1)
	go func() {
		second <- d.Handle(ctx, input.Event{ID: "q2", From: user(7), ChatID: 7, Text: "кофе 150"}, out)
	}()

	// Another user is not held up by user 7.
	if err := d.Handle(ctx, input.Event{ID: "q3", From: user(8), ChatID: 8, Text: "/start"}, out); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-second:
		t.Fatalf("second event for the same user finished early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if err := <-second; err != nil {
		t.Fatal(err)
	}
	if _, ok := d.State(7).(session.AwaitingCategorySelection); !ok {
		t.Fatalf("state = %T, want AwaitingCategorySelection", d.State(7))
	}
}

func containsText(texts []string, want string) bool {
	for _, s := range texts {
		if s == want {
			return true
		}
	}
	return false
}

func TestStaleConfirmButtonNeverBecomesCategory(t *testing.T) {
	d, store := newDriver(t, nil)
	out := &recorder{}

	say(t, d, 8, "кофе 150", out)
	say(t, d, 8, "0", out)
	press(t, d, 8, input.TokenBack, out)
	press(t, d, 8, input.TokenConfirm, out)
	press(t, d, 8, input.TokenConfirm, out)

	st, ok := d.State(8).(session.AwaitingCategorySelection)
	if !ok || st.Pending.Description != "кофе" {
		t.Fatalf("state = %#v", d.State(8))
	}
	l, _ := store.Ledger(8)
	if len(l.Expenses) != 0 {
		t.Fatalf("expenses = %+v", l.Expenses)
	}
	if len(l.Categories) != 1 || l.Categories[0] != core.DefaultCategory {
		t.Fatalf("categories = %v", l.Categories)
	}
}
