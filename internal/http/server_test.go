package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ledgerbot/internal/conversation"
	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/locale"
	"ledgerbot/internal/metrics"
	"ledgerbot/internal/session"
)

type memPersister struct {
	users map[core.UserID]*core.UserLedger
}

func (p *memPersister) Load(context.Context) (map[core.UserID]*core.UserLedger, error) {
	return p.users, nil
}

func (p *memPersister) Save(context.Context, map[core.UserID]*core.UserLedger) error {
	return nil
}

func newTestServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()
	if deps.Store == nil {
		store, err := ledger.Open(context.Background(), &memPersister{users: map[core.UserID]*core.UserLedger{
			7: {
				Categories: []string{"Еда", core.DefaultCategory},
				Expenses: []core.Expense{
					{Description: "хлеб", Amount: 40.5, Category: "Еда", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
					{Description: "сыр", Amount: 300, Category: "Еда", Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
				},
			},
		}})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		deps.Store = store
	}
	if deps.Driver == nil {
		deps.Driver = conversation.New(deps.Store, locale.Russian())
	}
	s := NewServer(":0", deps)
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	ts := httptest.NewServer(s.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postEvent(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/v1/events", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, Deps{})

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d", path, resp.StatusCode)
		}
		if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("GET %s missing security headers", path)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatalf("GET %s missing request id", path)
		}
	}
}

func TestEventReturnsPromptsAndState(t *testing.T) {
	ts := newTestServer(t, Deps{})

	resp := postEvent(t, ts.URL, `{"event_id":"e1","user_id":42,"chat_id":42,"text":"кофе 150"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.EventID != "e1" {
		t.Fatalf("event id = %q", got.EventID)
	}
	if got.State != (session.AwaitingCategorySelection{}).Name() {
		t.Fatalf("state = %q", got.State)
	}
	if len(got.Prompts) == 0 {
		t.Fatal("no prompts returned")
	}
}

func TestEventAssignsID(t *testing.T) {
	ts := newTestServer(t, Deps{})

	resp := postEvent(t, ts.URL, `{"user_id":1,"chat_id":1,"text":"/help"}`)
	var got eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.EventID == "" {
		t.Fatal("event id not assigned")
	}
}

func TestEventErrors(t *testing.T) {
	ts := newTestServer(t, Deps{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"user_id":`, http.StatusBadRequest},
		{"unknown field", `{"user_id":1,"chat_id":1,"photo":"x"}`, http.StatusBadRequest},
		{"missing sender", `{"event_id":"x","chat_id":5,"text":"hi"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postEvent(t, ts.URL, tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestEventForwardFailure(t *testing.T) {
	ts := newTestServer(t, Deps{
		Forward: conversation.SenderFunc(func(context.Context, int64, session.Prompt) error {
			return errors.New("gateway down")
		}),
	})

	resp := postEvent(t, ts.URL, `{"event_id":"f1","user_id":3,"chat_id":3,"text":"/start"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}
}

func TestLedgerEndpoint(t *testing.T) {
	ts := newTestServer(t, Deps{})

	resp, err := http.Get(ts.URL + "/v1/users/7/ledger")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got ledgerResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.UserID != 7 || len(got.Expenses) != 2 || got.Total != "340.50" || got.State != "idle" {
		t.Fatalf("ledger = %+v", got)
	}
	if len(got.Categories) != 2 || got.Categories[0] != "Еда" {
		t.Fatalf("categories = %v", got.Categories)
	}

	for path, want := range map[string]int{
		"/v1/users/abc/ledger": http.StatusBadRequest,
		"/v1/users/99/ledger":  http.StatusNotFound,
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("GET %s = %d, want %d", path, resp.StatusCode, want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Deps{RateLimitPerMinute: 2})

	var last int
	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.URL + "/v1/users/7/ledger")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want %d", last, http.StatusTooManyRequests)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store, err := ledger.Open(context.Background(), &memPersister{}, ledger.WithMetrics(m))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	d := conversation.New(store, locale.Russian(), conversation.WithMetrics(m))
	ts := newTestServer(t, Deps{Store: store, Driver: d, Gatherer: reg})

	postEvent(t, ts.URL, `{"event_id":"m1","user_id":1,"chat_id":1,"text":"/help"}`)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"кофе 150", "кофе 150"},
		{"a\x00b\x07c", "abc"},
		{"line\nnext\tx", "line\nnext\tx"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
