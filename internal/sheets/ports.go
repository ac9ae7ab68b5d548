package sheets

import (
	"context"
	"time"
)

// Row is one mirrored ledger line.
type Row struct {
	Time        time.Time
	Kind        string
	Amount      string
	Category    string
	Description string
	Balance     string
	EventID     string
}

// Values renders the row in sheet column order A..G.
func (r Row) Values() []any {
	return []any{
		r.Time.Format("2006-01-02 15:04:05"),
		r.Kind,
		r.Amount,
		r.Category,
		r.Description,
		r.Balance,
		r.EventID,
	}
}

// RowAppender appends ledger rows to a spreadsheet. ref identifies where the
// row landed.
type RowAppender interface {
	AppendRow(ctx context.Context, r Row) (ref string, err error)
}
