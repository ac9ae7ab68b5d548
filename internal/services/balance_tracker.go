package services

import (
	"context"
	"time"

	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
)

// BalanceTracker samples the balance shortly before every month boundary so
// monthly reports can show start and end balances.
type BalanceTracker struct {
	ledger *LedgerService
	after  func(time.Duration) <-chan time.Time
	logger *log.Logger
}

func NewBalanceTracker(ledger *LedgerService, logger *log.Logger) *BalanceTracker {
	return &BalanceTracker{
		ledger: ledger,
		after:  time.After,
		logger: logger.WithComponent(log.ComponentTracker),
	}
}

// NextSampleTime returns the first sampling instant strictly after now: guard
// before the start of a month in loc.
func NextSampleTime(now time.Time, loc *time.Location, guard time.Duration) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	_, end := core.MonthBounds(local.Year(), local.Month(), loc)
	at := end.Add(-guard)
	if at.After(now) {
		return at
	}
	_, end = core.MonthBounds(end.Year(), end.Month(), loc)
	return end.Add(-guard)
}

// Run blocks until ctx is done, sampling once per month. A failed sample is
// logged and the tracker waits for the next boundary.
func (t *BalanceTracker) Run(ctx context.Context) error {
	for {
		now := t.ledger.now()
		next := NextSampleTime(now, t.ledger.loc, t.ledger.guard)
		t.logger.InfoContext(ctx, "Next balance sample scheduled", "at", next)

		select {
		case <-ctx.Done():
			return nil
		case <-t.after(next.Sub(now)):
		}

		if _, err := t.ledger.SampleBalance(ctx, t.ledger.now()); err != nil {
			t.logger.ErrorContext(ctx, "Balance sample failed", log.FieldError, err)
		}
	}
}
