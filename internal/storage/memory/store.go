// Package memory is a storage.Store kept entirely in process memory. It is
// used by tests and by DATA_BACKEND=memory for throwaway sessions.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
	"ledgerbot/internal/storage"
)

type state struct {
	expenses   []core.Expense
	incomes    []core.Income
	categories []core.Category
	samples    []core.BalanceSample
	balance    decimal.Decimal
	nextID     int64
}

func (s *state) clone() *state {
	c := &state{
		expenses:   slices.Clone(s.expenses),
		incomes:    slices.Clone(s.incomes),
		categories: make([]core.Category, len(s.categories)),
		samples:    slices.Clone(s.samples),
		balance:    s.balance,
		nextID:     s.nextID,
	}
	for i, cat := range s.categories {
		c.categories[i] = core.Category{Name: cat.Name, Aliases: slices.Clone(cat.Aliases)}
	}
	return c
}

// Store works on a copy of its state inside Update and swaps it in only when
// the callback succeeds.
type Store struct {
	mu    sync.RWMutex
	state *state
}

var _ storage.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{state: &state{
		categories: []core.Category{{Name: core.OtherCategory}},
		nextID:     1,
	}}
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Writes inside View land on a copy and are dropped.
	return fn(&tx{st: s.state.clone()})
}

func (s *Store) Close() error { return nil }

type tx struct {
	st *state
}

func (t *tx) id() int64 {
	id := t.st.nextID
	t.st.nextID++
	return id
}

func (t *tx) InsertExpense(_ context.Context, e core.Expense) (int64, error) {
	if _, ok := core.FindCategory(e.Category, t.st.categories); !ok {
		return 0, fmt.Errorf("insert expense: unknown category %q", e.Category)
	}
	e.ID = t.id()
	t.st.expenses = append(t.st.expenses, e)
	return e.ID, nil
}

func (t *tx) LastExpense(context.Context) (core.Expense, error) {
	if len(t.st.expenses) == 0 {
		return core.Expense{}, &core.NotFoundError{What: "expense"}
	}
	return t.st.expenses[len(t.st.expenses)-1], nil
}

func (t *tx) DeleteExpense(_ context.Context, id int64) error {
	i := slices.IndexFunc(t.st.expenses, func(e core.Expense) bool { return e.ID == id })
	if i < 0 {
		return &core.NotFoundError{What: fmt.Sprintf("expense %d", id)}
	}
	t.st.expenses = slices.Delete(t.st.expenses, i, i+1)
	return nil
}

func (t *tx) ExpensesBetween(_ context.Context, from, to time.Time) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range t.st.expenses {
		if inRange(e.Time, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *tx) InsertIncome(_ context.Context, i core.Income) (int64, error) {
	i.ID = t.id()
	t.st.incomes = append(t.st.incomes, i)
	return i.ID, nil
}

func (t *tx) IncomesBetween(_ context.Context, from, to time.Time) ([]core.Income, error) {
	var out []core.Income
	for _, i := range t.st.incomes {
		if inRange(i.Time, from, to) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (t *tx) Balance(context.Context) (decimal.Decimal, error) {
	return t.st.balance, nil
}

func (t *tx) SetBalance(_ context.Context, amount decimal.Decimal) error {
	t.st.balance = amount
	return nil
}

func (t *tx) Categories(context.Context) ([]core.Category, error) {
	return t.st.clone().categories, nil
}

func (t *tx) InsertCategory(_ context.Context, c core.Category) error {
	if _, ok := core.FindCategory(c.Name, t.st.categories); ok {
		return fmt.Errorf("insert category: %q already exists", c.Name)
	}
	t.st.categories = append(t.st.categories, core.Category{Name: c.Name, Aliases: slices.Clone(c.Aliases)})
	return nil
}

func (t *tx) DeleteCategory(_ context.Context, name string) (int64, error) {
	i := slices.IndexFunc(t.st.categories, func(c core.Category) bool { return c.Name == name })
	if i < 0 {
		return 0, &core.NotFoundError{What: fmt.Sprintf("category %q", name)}
	}
	var moved int64
	for j := range t.st.expenses {
		if t.st.expenses[j].Category == name {
			t.st.expenses[j].Category = core.OtherCategory
			moved++
		}
	}
	t.st.categories = slices.Delete(t.st.categories, i, i+1)
	return moved, nil
}

func (t *tx) RenameCategory(_ context.Context, oldName, newName string) error {
	i := slices.IndexFunc(t.st.categories, func(c core.Category) bool { return c.Name == oldName })
	if i < 0 {
		return &core.NotFoundError{What: fmt.Sprintf("category %q", oldName)}
	}
	if _, ok := core.FindCategory(newName, t.st.categories); ok {
		return fmt.Errorf("rename category: %q already exists", newName)
	}
	t.st.categories[i].Name = newName
	for j := range t.st.expenses {
		if t.st.expenses[j].Category == oldName {
			t.st.expenses[j].Category = newName
		}
	}
	return nil
}

func (t *tx) InsertBalanceSample(_ context.Context, s core.BalanceSample) error {
	t.st.samples = append(t.st.samples, s)
	return nil
}

func (t *tx) FirstSampleBetween(_ context.Context, from, to time.Time) (core.BalanceSample, bool, error) {
	var (
		best  core.BalanceSample
		found bool
	)
	for _, s := range t.st.samples {
		if !s.Time.After(from) || !s.Time.Before(to) {
			continue
		}
		if !found || s.Time.Before(best.Time) {
			best, found = s, true
		}
	}
	return best, found, nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
