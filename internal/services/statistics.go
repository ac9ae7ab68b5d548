package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
	"ledgerbot/internal/storage"
)

// MonthStatistics summarises the given month. Start and end balances come
// from the samples taken around each boundary, or the next later sample;
// the current month ends at the live balance. Past months are cached until the next mutation.
func (s *LedgerService) MonthStatistics(ctx context.Context, year int, month time.Month) (core.MonthStatistics, error) {
	if month < time.January || month > time.December {
		return core.MonthStatistics{}, &core.ParseError{Kind: "month", Reason: fmt.Sprintf("month %d out of range", month)}
	}

	start, end := core.MonthBounds(year, month, s.loc)
	now := s.now()
	past := !now.Before(end)
	key := fmt.Sprintf("%04d-%02d", year, month)
	if past && s.stats != nil {
		if cached, ok := s.stats.Get(key); ok {
			return cached, nil
		}
	}

	var stats core.MonthStatistics
	err := s.store.View(ctx, func(tx storage.Tx) error {
		expenses, err := tx.ExpensesBetween(ctx, start, end)
		if err != nil {
			return err
		}
		incomes, err := tx.IncomesBetween(ctx, start, end)
		if err != nil {
			return err
		}
		stats = ComputeMonthStatistics(year, month, expenses, incomes, s.topN)

		if stats.StartBalance, err = s.sampleNear(ctx, tx, start); err != nil {
			return err
		}
		switch {
		case !now.Before(start) && now.Before(end):
			stats.EndBalance, err = tx.Balance(ctx)
		case past:
			stats.EndBalance, err = s.sampleNear(ctx, tx, end)
		}
		return err
	})
	if err != nil {
		return core.MonthStatistics{}, wrapStorage("month statistics", err)
	}

	if past && s.stats != nil {
		s.stats.Set(key, stats)
	}
	return stats, nil
}

// sampleHorizon bounds the open-ended sample lookup.
var sampleHorizon = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// sampleNear returns the first sample within two guard offsets of boundary.
// When the tracker missed that window it falls back to the earliest sample
// taken after boundary, and to zero when there is none.
func (s *LedgerService) sampleNear(ctx context.Context, tx storage.Tx, boundary time.Time) (decimal.Decimal, error) {
	window := 2 * s.guard
	sample, ok, err := tx.FirstSampleBetween(ctx, boundary.Add(-window), boundary.Add(window))
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		sample, ok, err = tx.FirstSampleBetween(ctx, boundary, sampleHorizon)
		if err != nil || !ok {
			return decimal.Zero, err
		}
	}
	return sample.Amount, nil
}

// ComputeMonthStatistics aggregates one month of records. Totals are sorted
// by amount (ties by name) and omit empty categories; Biggest holds the topN
// largest expenses, ties broken by insertion order.
func ComputeMonthStatistics(year int, month time.Month, expenses []core.Expense, incomes []core.Income, topN int) core.MonthStatistics {
	stats := core.MonthStatistics{
		Year:        year,
		Month:       month,
		TotalSpent:  decimal.Zero,
		TotalIncome: decimal.Zero,
	}

	sums := map[string]decimal.Decimal{}
	for _, e := range expenses {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
		stats.TotalSpent = stats.TotalSpent.Add(e.Amount)
	}
	for name, amount := range sums {
		if amount.IsZero() {
			continue
		}
		stats.Totals = append(stats.Totals, core.CategoryTotal{Name: name, Amount: amount})
	}
	sort.Slice(stats.Totals, func(i, j int) bool {
		a, b := stats.Totals[i], stats.Totals[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})

	biggest := make([]core.Expense, len(expenses))
	copy(biggest, expenses)
	sort.SliceStable(biggest, func(i, j int) bool {
		if c := biggest[i].Amount.Cmp(biggest[j].Amount); c != 0 {
			return c > 0
		}
		return biggest[i].ID < biggest[j].ID
	})
	if topN >= 0 && len(biggest) > topN {
		biggest = biggest[:topN]
	}
	stats.Biggest = biggest

	for _, i := range incomes {
		stats.TotalIncome = stats.TotalIncome.Add(i.Amount)
	}
	return stats
}
