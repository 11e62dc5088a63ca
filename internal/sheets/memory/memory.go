// Package memory is an in-process sheets.EventWriter, used when no
// spreadsheet is configured and in tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ledgerbot/internal/sheets"
)

var ErrMissingEventID = errors.New("missing event id")

type Store struct {
	mu   sync.Mutex
	rows []sheets.EventRow
}

func New() *Store {
	return &Store{}
}

var _ sheets.EventWriter = (*Store)(nil)

// AppendEvent stores the row and returns a synthetic row reference.
func (s *Store) AppendEvent(_ context.Context, row sheets.EventRow) (string, error) {
	if row.EventID == "" {
		return "", ErrMissingEventID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []sheets.EventRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.EventRow(nil), s.rows...)
}
