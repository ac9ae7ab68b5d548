package bot

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
	"ledgerbot/internal/services"
	"ledgerbot/internal/storage/memory"
)

const chat int64 = 42

var testNow = time.Date(2025, time.March, 15, 12, 30, 0, 0, time.UTC)

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *services.LedgerService) {
	t.Helper()
	ledger := services.NewLedgerService(memory.NewStore(),
		services.WithClock(func() time.Time { return testNow }),
		services.WithLocation(time.UTC),
		services.WithLogger(quietLogger()))
	_, err := ledger.AddCategory(context.Background(), "food", "eat", "meal")
	require.NoError(t, err)
	_, err = ledger.AddCategory(context.Background(), "taxi")
	require.NoError(t, err)
	return NewDispatcher(ledger, NewSessionStore(time.Hour), quietLogger()), ledger
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestHandleTextExpense(t *testing.T) {
	d, ledger := newTestDispatcher(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		text        string
		category    string
		description string
	}{
		{"category by name", "-250 food lunch with team", "food", "lunch with team"},
		{"category by alias", "- 12,50 EAT", "food", ""},
		{"unknown word goes to other", "-10 coffee beans", "other", "coffee beans"},
		{"amount only", "-7", "other", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.HandleText(ctx, chat, tt.text)
			require.Equal(t, KindExpense, res.Kind, "err: %v", res.Err)
			added := res.Payload.(ExpenseAdded)
			assert.Equal(t, tt.category, added.Expense.Category)
			assert.Equal(t, tt.description, added.Expense.DescriptionText())
			assert.Equal(t, testNow, added.Expense.Time)
		})
	}

	balance, err := ledger.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, dec("-279.5").Equal(balance), "balance %s", balance)
}

func TestHandleTextIncomeBalanceCancel(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	res := d.HandleText(ctx, chat, "+1000 salary march")
	require.Equal(t, KindIncome, res.Kind)
	assert.True(t, dec("1000").Equal(res.Payload.(IncomeAdded).Balance))

	res = d.HandleText(ctx, chat, "-100 taxi")
	require.Equal(t, KindExpense, res.Kind)

	res = d.HandleText(ctx, chat, "BL")
	require.Equal(t, KindBalanceShown, res.Kind)
	assert.True(t, dec("900").Equal(res.Payload.(decimal.Decimal)))

	res = d.HandleText(ctx, chat, "cancel")
	require.Equal(t, KindCancelled, res.Kind)
	cancelled := res.Payload.(ExpenseCancelled)
	assert.Equal(t, "taxi", cancelled.Expense.Category)
	assert.True(t, dec("1000").Equal(cancelled.Balance))

	res = d.HandleText(ctx, chat, "balance -50.5")
	require.Equal(t, KindBalanceSet, res.Kind)
	changed := res.Payload.(BalanceChanged)
	assert.True(t, dec("1000").Equal(changed.Previous))
	assert.True(t, dec("-50.5").Equal(changed.Balance))
}

func TestHandleTextErrors(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	tests := []struct {
		name string
		text string
		kind Kind
	}{
		{"bad expense amount", "-abc food", KindError},
		{"zero expense", "-0 food", KindError},
		{"income without description", "+100", KindError},
		{"unknown text", "hello there", KindUnknown},
		{"empty", "   ", KindUnknown},
		{"cancel on empty ledger", "отмена", KindError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.HandleText(ctx, chat, tt.text)
			assert.Equal(t, tt.kind, res.Kind)
		})
	}

	res := d.HandleText(ctx, chat, "-abc")
	var parseErr *core.ParseError
	require.ErrorAs(t, res.Err, &parseErr)
	assert.Equal(t, "expense", parseErr.Kind)

	res = d.HandleText(ctx, chat, "cancel")
	var notFound *core.NotFoundError
	assert.ErrorAs(t, res.Err, &notFound)
}

func TestHandleTextMonth(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	d.HandleText(ctx, chat, "-40 food")
	d.HandleText(ctx, chat, "-60 taxi")

	res := d.HandleText(ctx, chat, "month")
	require.Equal(t, KindMonthReport, res.Kind)
	stats := res.Payload.(core.MonthStatistics)
	assert.Equal(t, 2025, stats.Year)
	assert.Equal(t, time.March, stats.Month)
	assert.True(t, dec("100").Equal(stats.TotalSpent))
	require.Len(t, stats.Totals, 2)
	assert.Equal(t, "taxi", stats.Totals[0].Name)

	res = d.HandleText(ctx, chat, "January 2024")
	require.Equal(t, KindMonthReport, res.Kind)
	stats = res.Payload.(core.MonthStatistics)
	assert.Equal(t, 2024, stats.Year)
	assert.Equal(t, time.January, stats.Month)
	assert.Empty(t, stats.Totals)
}

func TestBlockedMode(t *testing.T) {
	d, ledger := newTestDispatcher(t)
	ctx := context.Background()

	res := d.HandleCommand(ctx, chat, CmdBlock, nil)
	assert.Equal(t, KindInfo, res.Kind)
	assert.True(t, d.Blocked())

	res = d.HandleText(ctx, chat, "-100 food")
	assert.ErrorIs(t, res.Err, ErrBlocked)
	res = d.HandleCommand(ctx, chat, CmdBalance, nil)
	assert.ErrorIs(t, res.Err, ErrBlocked)

	balance, err := ledger.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	d.HandleCommand(ctx, chat, CmdBlock, nil)
	assert.False(t, d.Blocked())
	res = d.HandleText(ctx, chat, "-100 food")
	assert.Equal(t, KindExpense, res.Kind)
}

func TestHandleCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	res := d.HandleCommand(ctx, chat, CmdBalance, []string{"250"})
	require.Equal(t, KindBalanceSet, res.Kind)

	res = d.HandleCommand(ctx, chat, CmdBalance, []string{"abc"})
	assert.Equal(t, KindError, res.Kind)

	res = d.HandleCommand(ctx, chat, CmdBalance, []string{"1", "2"})
	assert.Equal(t, KindError, res.Kind)

	res = d.HandleCommand(ctx, chat, CmdCategories, nil)
	require.Equal(t, KindCategories, res.Kind)
	assert.Equal(t, []string{"other", "food", "taxi"}, core.CategoryNames(res.Payload.([]core.Category)))

	res = d.HandleCommand(ctx, chat, CmdMonth, []string{"february"})
	require.Equal(t, KindMonthReport, res.Kind)
	assert.Equal(t, time.February, res.Payload.(core.MonthStatistics).Month)

	res = d.HandleCommand(ctx, chat, CmdMonth, []string{"smarch"})
	assert.Equal(t, KindError, res.Kind)

	res = d.HandleCommand(ctx, chat, "frobnicate", nil)
	assert.Equal(t, KindUnknown, res.Kind)
	assert.Equal(t, "/frobnicate", res.Payload)

	assert.Equal(t, KindInfo, d.HandleCommand(ctx, chat, CmdCancel, nil).Kind)
	assert.Equal(t, KindInfo, d.HandleCommand(ctx, chat, CmdSkip, nil).Kind)
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		text string
		name string
		args []string
		ok   bool
	}{
		{"/balance", "balance", []string{}, true},
		{"/Balance@ledger_bot 100", "balance", []string{"100"}, true},
		{"  /month january 2024 ", "month", []string{"january", "2024"}, true},
		{"/", "", nil, false},
		{"balance", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, args, ok := SplitCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		})
	}
}
