package sheets

import (
	"context"
	"time"
)

// EventRow is one ledger change as mirrored to a spreadsheet.
type EventRow struct {
	EventID     string
	At          time.Time
	UserID      int64
	Kind        string
	Category    string
	Description string
	Amount      float64
	Moved       int
	Cleared     int
}

// Ports for outbound adapters.
type (
	EventWriter interface {
		AppendEvent(ctx context.Context, row EventRow) (rowRef string, err error)
	}
)
