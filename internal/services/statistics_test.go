package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbot/internal/core"
)

func TestComputeMonthStatistics(t *testing.T) {
	at := time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)
	expenses := []core.Expense{
		{ID: 1, Amount: dec("10"), Category: "food", Time: at},
		{ID: 2, Amount: dec("50"), Category: "rent", Time: at},
		{ID: 3, Amount: dec("10"), Category: "fun", Time: at},
		{ID: 4, Amount: dec("25.5"), Category: "food", Time: at},
		{ID: 5, Amount: dec("10"), Category: "other", Time: at},
	}
	incomes := []core.Income{{Amount: dec("100")}, {Amount: dec("0.5")}}

	s := ComputeMonthStatistics(2025, time.July, expenses, incomes, 3)

	assert.Equal(t, []core.CategoryTotal{
		{Name: "rent", Amount: dec("50")},
		{Name: "food", Amount: dec("35.5")},
		{Name: "fun", Amount: dec("10")},
		{Name: "other", Amount: dec("10")},
	}, normalize(s.Totals))
	require.Len(t, s.Biggest, 3)
	assert.Equal(t, []int64{2, 4, 1}, ids(s.Biggest), "ties keep insertion order")
	assert.True(t, s.TotalSpent.Equal(dec("105.5")))
	assert.True(t, s.TotalIncome.Equal(dec("100.5")))
}

func TestComputeMonthStatisticsEmpty(t *testing.T) {
	s := ComputeMonthStatistics(2025, time.July, nil, nil, 5)
	assert.Empty(t, s.Totals)
	assert.Empty(t, s.Biggest)
	assert.True(t, s.TotalSpent.IsZero())
}

func TestMonthStatisticsWindow(t *testing.T) {
	f := newFixture(t, WithTopExpenses(2))
	ctx := context.Background()

	add := func(amount string, at time.Time) {
		_, _, err := f.ledger.AddExpense(ctx, core.Expense{Amount: dec(amount), Category: core.OtherCategory, Time: at})
		require.NoError(t, err)
	}
	add("1", time.Date(2024, 11, 30, 23, 59, 59, 0, time.UTC))
	add("2", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))
	add("3", time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC))
	add("4", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	s, err := f.ledger.MonthStatistics(ctx, 2024, time.December)
	require.NoError(t, err)
	assert.Equal(t, 2024, s.Year)
	assert.Equal(t, time.December, s.Month)
	assert.True(t, s.TotalSpent.Equal(dec("5")))
	assert.Equal(t, []int64{3, 2}, ids(s.Biggest))

	_, err = f.ledger.MonthStatistics(ctx, 2024, 13)
	var pe *core.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestMonthStatisticsBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guard := f.ledger.SampleGuard()
	julyStart, julyEnd := core.MonthBounds(2025, time.July, time.UTC)

	// Tracker samples taken one guard before each boundary.
	_, err := f.ledger.SetBalance(ctx, dec("200"))
	require.NoError(t, err)
	_, err = f.ledger.SampleBalance(ctx, julyStart.Add(-guard))
	require.NoError(t, err)
	_, err = f.ledger.SetBalance(ctx, dec("150"))
	require.NoError(t, err)
	_, err = f.ledger.SampleBalance(ctx, julyEnd.Add(-guard))
	require.NoError(t, err)
	_, err = f.ledger.SetBalance(ctx, dec("180"))
	require.NoError(t, err)

	july, err := f.ledger.MonthStatistics(ctx, 2025, time.July)
	require.NoError(t, err)
	assert.True(t, july.StartBalance.Equal(dec("200")))
	assert.True(t, july.EndBalance.Equal(dec("150")))
	p, ok := july.Percentage()
	require.True(t, ok)
	assert.True(t, p.Equal(dec("-25")), "got %s", p)

	august, err := f.ledger.MonthStatistics(ctx, 2025, time.August)
	require.NoError(t, err)
	assert.True(t, august.StartBalance.Equal(dec("150")))
	assert.True(t, august.EndBalance.Equal(dec("180")), "current month ends at the live balance")

	june, err := f.ledger.MonthStatistics(ctx, 2025, time.June)
	require.NoError(t, err)
	assert.True(t, june.StartBalance.Equal(dec("200")), "falls back to the next later sample")
	assert.True(t, june.EndBalance.Equal(dec("200")))
}

func TestMonthStatisticsLateSample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.SetBalance(ctx, dec("300"))
	require.NoError(t, err)
	_, err = f.ledger.SampleBalance(ctx, time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	july, err := f.ledger.MonthStatistics(ctx, 2025, time.July)
	require.NoError(t, err)
	assert.True(t, july.StartBalance.Equal(dec("300")), "got %s", july.StartBalance)
	assert.True(t, july.EndBalance.IsZero(), "no sample after the end of July")
	_, ok := july.Percentage()
	assert.True(t, ok)

	august, err := f.ledger.MonthStatistics(ctx, 2025, time.August)
	require.NoError(t, err)
	assert.True(t, august.StartBalance.IsZero())
	_, ok = august.Percentage()
	assert.False(t, ok, "no start sample means no percentage")
}

func TestMonthStatisticsCacheInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)

	_, _, err := f.ledger.AddExpense(ctx, core.Expense{Amount: dec("10"), Category: core.OtherCategory, Time: at})
	require.NoError(t, err)
	first, err := f.ledger.MonthStatistics(ctx, 2025, time.July)
	require.NoError(t, err)
	assert.Equal(t, 1, f.ledger.stats.Size())

	_, _, err = f.ledger.CancelLastExpense(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, f.ledger.stats.Size())

	second, err := f.ledger.MonthStatistics(ctx, 2025, time.July)
	require.NoError(t, err)
	assert.True(t, first.TotalSpent.Equal(dec("10")))
	assert.True(t, second.TotalSpent.IsZero())
}

func ids(list []core.Expense) []int64 {
	out := make([]int64, len(list))
	for i, e := range list {
		out[i] = e.ID
	}
	return out
}

// normalize rebuilds decimals from strings so assert.Equal compares values.
func normalize(totals []core.CategoryTotal) []core.CategoryTotal {
	out := make([]core.CategoryTotal, len(totals))
	for i, t := range totals {
		out[i] = core.CategoryTotal{Name: t.Name, Amount: decimal.RequireFromString(t.Amount.String())}
	}
	return out
}
