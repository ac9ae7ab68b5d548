package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbot/internal/core"
	"ledgerbot/internal/storage"
)

func TestStoreUpdateIsAtomic(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx storage.Tx) error {
		_, err := tx.InsertExpense(ctx, core.Expense{Amount: decimal.NewFromInt(5), Category: core.OtherCategory, Time: time.Now()})
		require.NoError(t, err)
		require.NoError(t, tx.SetBalance(ctx, decimal.NewFromInt(-5)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		_, err := tx.LastExpense(ctx)
		var nf *core.NotFoundError
		assert.ErrorAs(t, err, &nf)
		bal, _ := tx.Balance(ctx)
		assert.True(t, bal.IsZero())
		return nil
	}))
}

func TestStoreCategories(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	at := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		require.NoError(t, tx.InsertCategory(ctx, core.Category{Name: "food", Aliases: []string{"eat"}}))
		require.NoError(t, tx.InsertCategory(ctx, core.Category{Name: "fun"}))
		assert.Error(t, tx.InsertCategory(ctx, core.Category{Name: "fun"}))

		_, err := tx.InsertExpense(ctx, core.Expense{Amount: decimal.NewFromInt(1), Category: "food", Time: at})
		require.NoError(t, err)
		_, err = tx.InsertExpense(ctx, core.Expense{Amount: decimal.NewFromInt(2), Category: "fun", Time: at})
		require.NoError(t, err)
		_, err = tx.InsertExpense(ctx, core.Expense{Amount: decimal.NewFromInt(3), Category: "missing", Time: at})
		assert.Error(t, err)

		require.NoError(t, tx.RenameCategory(ctx, "food", "groceries"))
		moved, err := tx.DeleteCategory(ctx, "fun")
		require.NoError(t, err)
		assert.Equal(t, int64(1), moved)
		return nil
	}))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		cats, _ := tx.Categories(ctx)
		assert.Equal(t, []string{"other", "groceries"}, core.CategoryNames(cats))
		assert.Equal(t, []string{"eat"}, cats[1].Aliases)

		from, to := core.MonthBounds(2025, time.May, time.UTC)
		list, _ := tx.ExpensesBetween(ctx, from, to)
		require.Len(t, list, 2)
		assert.Equal(t, "groceries", list[0].Category)
		assert.Equal(t, core.OtherCategory, list[1].Category)
		return nil
	}))
}

func TestStoreCategoriesAreCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		return tx.InsertCategory(ctx, core.Category{Name: "food", Aliases: []string{"eat"}})
	}))
	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		cats, _ := tx.Categories(ctx)
		cats[1].Aliases[0] = "mutated"
		return nil
	}))
	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		cats, _ := tx.Categories(ctx)
		assert.Equal(t, "eat", cats[1].Aliases[0])
		return nil
	}))
}

func TestStoreSamplesAndIDs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		id1, _ := tx.InsertExpense(ctx, core.Expense{Amount: decimal.NewFromInt(1), Category: core.OtherCategory, Time: base})
		id2, _ := tx.InsertIncome(ctx, core.Income{Amount: decimal.NewFromInt(1), Description: "x", Time: base})
		assert.Less(t, id1, id2)

		require.NoError(t, tx.InsertBalanceSample(ctx, core.BalanceSample{Time: base.Add(-10 * time.Second), Amount: decimal.NewFromInt(7)}))
		return tx.InsertBalanceSample(ctx, core.BalanceSample{Time: base.Add(-20 * time.Second), Amount: decimal.NewFromInt(6)})
	}))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		sample, ok, err := tx.FirstSampleBetween(ctx, base.Add(-time.Minute), base.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "6", sample.Amount.String())

		_, ok, _ = tx.FirstSampleBetween(ctx, base, base.Add(time.Minute))
		assert.False(t, ok)
		return nil
	}))
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewStore().Update(ctx, func(storage.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
