package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
	"ledgerbot/internal/storage"
	"ledgerbot/internal/storage/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fixture struct {
	ledger *LedgerService
	store  *memory.Store
	pub    *fakePublisher
	clock  *fakeClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		pub:   &fakePublisher{},
		clock: &fakeClock{t: time.Date(2025, 8, 14, 12, 0, 0, 0, time.UTC)},
	}
	quiet := log.New(log.Config{Output: &bytes.Buffer{}})
	base := []Option{
		WithPublisher(f.pub),
		WithClock(f.clock.Now),
		WithLocation(time.UTC),
		WithLogger(quiet),
	}
	f.ledger = NewLedgerService(f.store, append(base, opts...)...)
	return f
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	b, err := f.ledger.Balance(context.Background())
	require.NoError(t, err)
	return b
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAddExpenseLowersBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.SetBalance(ctx, dec("1000"))
	require.NoError(t, err)

	e, bal, err := f.ledger.AddExpense(ctx, core.Expense{Amount: dec("250"), Category: core.OtherCategory, Description: core.NewDescription("taxi")})
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.Equal(t, f.clock.Now(), e.Time, "zero time defaults to the clock")
	assert.True(t, bal.Equal(dec("750")))
	assert.True(t, f.balance(t).Equal(dec("750")))

	require.Len(t, f.pub.events, 2)
	ev := f.pub.events[1]
	assert.Equal(t, amqp.EventExpenseAdded, ev.Kind)
	assert.Equal(t, e.ID, ev.RecordID)
	assert.Equal(t, "taxi", ev.Description)
	assert.True(t, ev.Balance.Equal(dec("750")))
}

func TestAddExpenseRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.ledger.AddExpense(ctx, core.Expense{Amount: decimal.Zero, Category: core.OtherCategory})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, _, err = f.ledger.AddExpense(ctx, core.Expense{Amount: dec("1"), Category: "nope"})
	var nf *core.NotFoundError
	assert.ErrorAs(t, err, &nf)

	assert.True(t, f.balance(t).IsZero())
	assert.Empty(t, f.pub.events)
}

func TestAddThenCancelRestoresBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.SetBalance(ctx, dec("100.10"))
	require.NoError(t, err)

	for _, amount := range []string{"0.1", "0.2", "99.99", "12345.678"} {
		before := f.balance(t)
		_, _, err := f.ledger.AddExpense(ctx, core.Expense{Amount: dec(amount), Category: core.OtherCategory})
		require.NoError(t, err)
		cancelled, after, err := f.ledger.CancelLastExpense(ctx)
		require.NoError(t, err)
		assert.True(t, cancelled.Amount.Equal(dec(amount)))
		assert.True(t, after.Equal(before), "%s: %s != %s", amount, after, before)
	}
}

func TestCancelLastExpenseOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, a := range []string{"1", "2", "3"} {
		_, _, err := f.ledger.AddExpense(ctx, core.Expense{Amount: dec(a), Category: core.OtherCategory})
		require.NoError(t, err)
	}
	for _, want := range []string{"3", "2", "1"} {
		e, _, err := f.ledger.CancelLastExpense(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, e.Amount.String())
	}
	assert.True(t, f.balance(t).IsZero())

	_, _, err := f.ledger.CancelLastExpense(ctx)
	var nf *core.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.True(t, f.balance(t).IsZero())
}

func TestAddIncome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inc, bal, err := f.ledger.AddIncome(ctx, core.Income{Amount: dec("100.5"), Description: "found"})
	require.NoError(t, err)
	assert.NotZero(t, inc.ID)
	assert.True(t, bal.Equal(dec("100.5")))

	_, _, err = f.ledger.AddIncome(ctx, core.Income{Amount: dec("1"), Description: " "})
	assert.ErrorIs(t, err, core.ErrEmptyDescription)
	assert.Equal(t, []amqp.EventKind{amqp.EventIncomeAdded}, f.pub.kinds())
}

func TestSetBalanceOverridesWithoutLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.ledger.AddExpense(ctx, core.Expense{Amount: dec("10"), Category: core.OtherCategory})
	require.NoError(t, err)

	prev, err := f.ledger.SetBalance(ctx, dec("-15.5"))
	require.NoError(t, err)
	assert.True(t, prev.Equal(dec("-10")))
	assert.True(t, f.balance(t).Equal(dec("-15.5")))

	e, _, err := f.ledger.CancelLastExpense(ctx)
	require.NoError(t, err, "ledger untouched by the override")
	assert.Equal(t, "10", e.Amount.String())
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	_, bal, err := f.ledger.AddIncome(context.Background(), core.Income{Amount: dec("5"), Description: "tip"})
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("5")))
}

type failingStore struct {
	storage.Store
	err error
}

func (s failingStore) Update(context.Context, func(storage.Tx) error) error { return s.err }
func (s failingStore) View(context.Context, func(storage.Tx) error) error   { return s.err }

func TestStorageFailuresAreWrapped(t *testing.T) {
	disk := errors.New("disk I/O error")
	ledger := NewLedgerService(failingStore{err: disk}, WithLogger(log.New(log.Config{Output: &bytes.Buffer{}})))
	ctx := context.Background()

	_, _, err := ledger.AddExpense(ctx, core.Expense{Amount: dec("1"), Category: core.OtherCategory})
	var se *core.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "add_expense", se.Op)
	assert.ErrorIs(t, err, disk)

	_, err = ledger.Balance(ctx)
	assert.ErrorAs(t, err, &se)

	_, err = ledger.Categories(ctx)
	assert.ErrorAs(t, err, &se)
}

func TestSampleBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.SetBalance(ctx, dec("42"))
	require.NoError(t, err)

	at := time.Date(2025, 8, 31, 23, 59, 0, 500, time.UTC)
	sample, err := f.ledger.SampleBalance(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, core.Truncate(at), sample.Time)
	assert.True(t, sample.Amount.Equal(dec("42")))
	assert.Contains(t, f.pub.kinds(), amqp.EventBalanceSampled)
}

func TestConcurrentMutationsKeepBalanceConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := f.ledger.AddExpense(ctx, core.Expense{Amount: dec("1.5"), Category: core.OtherCategory})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.ledger.SampleBalance(ctx, f.clock.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.True(t, f.balance(t).Equal(dec("-30")))
}
