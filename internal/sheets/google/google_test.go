package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "ledgerbot/internal/sheets"
)

type fakeSheets struct {
	mu       sync.Mutex
	gets     int
	headers  int
	appended [][]any
	hasRows  bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			http.Error(w, "bad valueInputOption", http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, vr.Values...)
		json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "'2024 Ledger'!A2:I2"},
		})
	case r.Method == http.MethodGet:
		f.gets++
		resp := map[string]any{"range": "A1:I1"}
		if f.hasRows {
			resp["values"] = [][]any{{"Event"}}
		}
		json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPut:
		f.headers++
		f.hasRows = true
		json.NewEncoder(w).Encode(map[string]any{})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "sheet-id", "", nil)
}

func TestAppendEvent(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	rows := []ports.EventRow{
		{EventID: "e1", At: at, UserID: 42, Kind: "append_expense", Category: "Еда", Description: "хлеб", Amount: 40.5},
		{EventID: "e2", At: at, UserID: 42, Kind: "clear_expenses", Cleared: 1},
	}
	for _, row := range rows {
		ref, err := c.AppendEvent(ctx, row)
		if err != nil {
			t.Fatalf("AppendEvent(%s): %v", row.EventID, err)
		}
		if ref != "'2024 Ledger'!A2:I2" {
			t.Errorf("ref = %q", ref)
		}
	}

	if fake.headers != 1 || fake.gets != 1 {
		t.Fatalf("header writes = %d, reads = %d, want 1 and 1", fake.headers, fake.gets)
	}
	if len(fake.appended) != 2 {
		t.Fatalf("appended rows = %d", len(fake.appended))
	}
	first := fake.appended[0]
	if first[0] != "e1" || first[1] != "2024-05-06 07:08:09" || first[2] != "42" || first[5] != "хлеб" {
		t.Fatalf("row = %v", first)
	}
}

func TestAppendEventRequiresID(t *testing.T) {
	c := newTestClient(t, &fakeSheets{})
	if _, err := c.AppendEvent(context.Background(), ports.EventRow{}); err == nil {
		t.Fatal("expected error for row without id")
	}
}

func TestAppendEventWithoutService(t *testing.T) {
	c := &Client{}
	if _, err := c.AppendEvent(context.Background(), ports.EventRow{EventID: "x"}); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestNewMissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), " ", "", nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("err = %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Ledger", 2024, "2024 Ledger"},
		{"  Ledger ", 2025, "2025 Ledger"},
		{"2023 Ledger", 2024, "2023 Ledger"},
		{"", 2024, ""},
		{"12345", 2024, "2024 12345"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}
