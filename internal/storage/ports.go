package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
)

// Store persists the ledger, the categories, the balance scalar and the
// balance history. Every read and write happens inside a transaction: Update
// commits when fn returns nil and rolls back otherwise, so a record and the
// balance change that goes with it land together or not at all.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	InsertExpense(ctx context.Context, e core.Expense) (int64, error)
	// LastExpense returns the most recently inserted expense or a
	// *core.NotFoundError when the ledger is empty.
	LastExpense(ctx context.Context) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	// ExpensesBetween returns expenses with from <= time < to in insertion
	// order.
	ExpensesBetween(ctx context.Context, from, to time.Time) ([]core.Expense, error)

	InsertIncome(ctx context.Context, i core.Income) (int64, error)
	IncomesBetween(ctx context.Context, from, to time.Time) ([]core.Income, error)

	Balance(ctx context.Context) (decimal.Decimal, error)
	SetBalance(ctx context.Context, amount decimal.Decimal) error

	// Categories lists categories in creation order.
	Categories(ctx context.Context) ([]core.Category, error)
	InsertCategory(ctx context.Context, c core.Category) error
	// DeleteCategory removes a category and moves its expenses to "other".
	// It returns how many expenses were reassigned.
	DeleteCategory(ctx context.Context, name string) (int64, error)
	// RenameCategory renames a category and every expense that refers to it.
	RenameCategory(ctx context.Context, oldName, newName string) error

	InsertBalanceSample(ctx context.Context, s core.BalanceSample) error
	// FirstSampleBetween returns the earliest sample with from < time < to.
	FirstSampleBetween(ctx context.Context, from, to time.Time) (core.BalanceSample, bool, error)
}
