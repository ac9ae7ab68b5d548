package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/cache"
	"ledgerbot/internal/core"
	"ledgerbot/internal/sheets"
)

// MirrorWorker copies ledger events into a spreadsheet, one row per event.
// Recently mirrored event ids are remembered so a redelivered message does
// not produce a second row.
type MirrorWorker struct {
	sheets sheets.RowAppender
	loc    *time.Location
	seen   cache.Cache[string]
}

func NewMirrorWorker(appender sheets.RowAppender, loc *time.Location) *MirrorWorker {
	if loc == nil {
		loc = time.Local
	}
	return &MirrorWorker{
		sheets: appender,
		loc:    loc,
		seen:   cache.NewLRUCache[string](1024, 24*time.Hour),
	}
}

// HandleEvent is the amqp consumer callback.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ref, ok := w.seen.Get(ev.ID); ok {
		slog.InfoContext(ctx, "Skipping already mirrored event", "event_id", ev.ID, "ref", ref)
		return nil
	}

	ref, err := w.sheets.AppendRow(ctx, w.row(ev))
	if err != nil {
		return fmt.Errorf("mirror %s event %s: %w", ev.Kind, ev.ID, err)
	}
	w.seen.Set(ev.ID, ref)

	slog.InfoContext(ctx, "Mirrored ledger event",
		"event_id", ev.ID,
		"kind", ev.Kind,
		"ref", ref)
	return nil
}

func (w *MirrorWorker) row(ev *amqp.LedgerEvent) sheets.Row {
	r := sheets.Row{
		Time:        ev.OccurredAt.In(w.loc),
		Kind:        string(ev.Kind),
		Category:    ev.Category,
		Description: ev.Description,
		Balance:     core.FormatAmount(ev.Balance),
		EventID:     ev.ID,
	}
	switch ev.Kind {
	case amqp.EventExpenseAdded:
		r.Amount = core.FormatAmount(ev.Amount.Neg())
	case amqp.EventIncomeAdded, amqp.EventExpenseCancelled, amqp.EventBalanceSet:
		r.Amount = core.FormatAmount(ev.Amount)
	case amqp.EventCategoryRenamed:
		r.Description = "renamed from " + ev.Description
	}
	return r
}
