package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/cache"
	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
	"ledgerbot/internal/storage"
)

// EventPublisher receives ledger events after their transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.LedgerEvent) error
}

const (
	DefaultTopExpenses = 5
	DefaultSampleGuard = time.Minute
	defaultStatsTTL    = time.Hour
)

// LedgerService applies ledger operations. Each mutation writes its record
// and the matching balance change in one storage transaction, and all
// mutations, including balance sampling, are serialized by one lock.
type LedgerService struct {
	mu        sync.Mutex
	store     storage.Store
	publisher EventPublisher
	stats     cache.Cache[core.MonthStatistics]
	now       func() time.Time
	loc       *time.Location
	topN      int
	guard     time.Duration
	logger    *log.Logger
}

type Option func(*LedgerService)

// WithPublisher enables ledger events. A nil publisher disables them.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// WithLocation sets the time zone month boundaries are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *LedgerService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithTopExpenses(n int) Option {
	return func(s *LedgerService) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithSampleGuard sets how far before a month boundary the balance is
// sampled.
func WithSampleGuard(d time.Duration) Option {
	return func(s *LedgerService) {
		if d > 0 {
			s.guard = d
		}
	}
}

func WithStatsCache(c cache.Cache[core.MonthStatistics]) Option {
	return func(s *LedgerService) { s.stats = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l.WithComponent(log.ComponentLedger) }
}

func NewLedgerService(store storage.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:  store,
		stats:  cache.NewLRUCache[core.MonthStatistics](24, defaultStatsTTL),
		now:    time.Now,
		loc:    time.Local,
		topN:   DefaultTopExpenses,
		guard:  DefaultSampleGuard,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the zone used for month boundaries and display.
func (s *LedgerService) Location() *time.Location { return s.loc }

// SampleGuard is the offset before a month boundary at which samples are
// taken.
func (s *LedgerService) SampleGuard() time.Duration { return s.guard }

// Now returns the service clock in its location, truncated to the second.
func (s *LedgerService) Now() time.Time {
	return core.Truncate(s.now().In(s.loc))
}

// AddExpense records e and lowers the balance by its amount. It returns the
// stored expense and the new balance.
func (s *LedgerService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, decimal.Decimal, error) {
	if e.Time.IsZero() {
		e.Time = s.Now()
	}
	e.Time = core.Truncate(e.Time)
	if err := e.Validate(); err != nil {
		return core.Expense{}, decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.update(ctx, log.OpAddExpense, func(tx storage.Tx) error {
		cats, err := tx.Categories(ctx)
		if err != nil {
			return err
		}
		c, ok := core.FindCategory(e.Category, cats)
		if !ok {
			return &core.NotFoundError{What: fmt.Sprintf("category %q", e.Category)}
		}
		e.Category = c.Name

		if e.ID, err = tx.InsertExpense(ctx, e); err != nil {
			return err
		}
		balance, err = s.shiftBalance(ctx, tx, e.Amount.Neg())
		return err
	})
	if err != nil {
		return core.Expense{}, decimal.Zero, err
	}

	s.logger.InfoContext(ctx, "Expense recorded",
		"id", e.ID,
		log.FieldAmount, e.Amount.String(),
		log.FieldCategory, e.Category,
		log.FieldBalance, balance.String())

	ev := amqp.NewLedgerEvent(amqp.EventExpenseAdded, e.Time)
	ev.RecordID, ev.Amount, ev.Category, ev.Description, ev.Balance = e.ID, e.Amount, e.Category, e.DescriptionText(), balance
	s.publish(ctx, ev)
	return e, balance, nil
}

// AddIncome records i and raises the balance by its amount.
func (s *LedgerService) AddIncome(ctx context.Context, i core.Income) (core.Income, decimal.Decimal, error) {
	if i.Time.IsZero() {
		i.Time = s.Now()
	}
	i.Time = core.Truncate(i.Time)
	if err := i.Validate(); err != nil {
		return core.Income{}, decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.update(ctx, log.OpAddIncome, func(tx storage.Tx) error {
		var err error
		if i.ID, err = tx.InsertIncome(ctx, i); err != nil {
			return err
		}
		balance, err = s.shiftBalance(ctx, tx, i.Amount)
		return err
	})
	if err != nil {
		return core.Income{}, decimal.Zero, err
	}

	s.logger.InfoContext(ctx, "Income recorded",
		"id", i.ID,
		log.FieldAmount, i.Amount.String(),
		log.FieldBalance, balance.String())

	ev := amqp.NewLedgerEvent(amqp.EventIncomeAdded, i.Time)
	ev.RecordID, ev.Amount, ev.Description, ev.Balance = i.ID, i.Amount, i.Description, balance
	s.publish(ctx, ev)
	return i, balance, nil
}

// CancelLastExpense deletes the most recently inserted expense and gives its
// amount back to the balance. An empty ledger yields *core.NotFoundError.
func (s *LedgerService) CancelLastExpense(ctx context.Context) (core.Expense, decimal.Decimal, error) {
	var (
		last    core.Expense
		balance decimal.Decimal
	)
	err := s.update(ctx, log.OpCancelExpense, func(tx storage.Tx) error {
		var err error
		if last, err = tx.LastExpense(ctx); err != nil {
			return err
		}
		if err := tx.DeleteExpense(ctx, last.ID); err != nil {
			return err
		}
		balance, err = s.shiftBalance(ctx, tx, last.Amount)
		return err
	})
	if err != nil {
		return core.Expense{}, decimal.Zero, err
	}

	s.logger.InfoContext(ctx, "Expense cancelled",
		"id", last.ID,
		log.FieldAmount, last.Amount.String(),
		log.FieldBalance, balance.String())

	ev := amqp.NewLedgerEvent(amqp.EventExpenseCancelled, s.Now())
	ev.RecordID, ev.Amount, ev.Category, ev.Description, ev.Balance = last.ID, last.Amount, last.Category, last.DescriptionText(), balance
	s.publish(ctx, ev)
	return last, balance, nil
}

// SetBalance overwrites the balance scalar without touching the ledger. It
// returns the previous value.
func (s *LedgerService) SetBalance(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	var previous decimal.Decimal
	err := s.update(ctx, log.OpSetBalance, func(tx storage.Tx) error {
		var err error
		if previous, err = tx.Balance(ctx); err != nil {
			return err
		}
		return tx.SetBalance(ctx, amount)
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.logger.InfoContext(ctx, "Balance overridden", "previous", previous.String(), log.FieldBalance, amount.String())

	ev := amqp.NewLedgerEvent(amqp.EventBalanceSet, s.Now())
	ev.Amount, ev.Balance = amount.Sub(previous), amount
	s.publish(ctx, ev)
	return previous, nil
}

func (s *LedgerService) Balance(ctx context.Context) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		balance, err = tx.Balance(ctx)
		return err
	})
	if err != nil {
		return decimal.Zero, wrapStorage("read balance", err)
	}
	return balance, nil
}

// SampleBalance appends the current balance to the history with time at.
func (s *LedgerService) SampleBalance(ctx context.Context, at time.Time) (core.BalanceSample, error) {
	sample := core.BalanceSample{Time: core.Truncate(at)}
	err := s.update(ctx, log.OpSampleBalance, func(tx storage.Tx) error {
		var err error
		if sample.Amount, err = tx.Balance(ctx); err != nil {
			return err
		}
		return tx.InsertBalanceSample(ctx, sample)
	})
	if err != nil {
		return core.BalanceSample{}, err
	}

	s.logger.InfoContext(ctx, "Balance sampled", "at", sample.Time, log.FieldBalance, sample.Amount.String())

	ev := amqp.NewLedgerEvent(amqp.EventBalanceSampled, sample.Time)
	ev.Balance = sample.Amount
	s.publish(ctx, ev)
	return sample, nil
}

// update runs fn under the writer lock and invalidates cached statistics
// after a commit.
func (s *LedgerService) update(ctx context.Context, op string, fn func(storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Update(ctx, fn); err != nil {
		s.logger.WarnContext(ctx, "Ledger operation failed", log.FieldOperation, op, log.FieldError, err)
		return wrapStorage(op, err)
	}
	if s.stats != nil {
		s.stats.Purge()
	}
	return nil
}

func (s *LedgerService) shiftBalance(ctx context.Context, tx storage.Tx, delta decimal.Decimal) (decimal.Decimal, error) {
	current, err := tx.Balance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	next := current.Add(delta)
	return next, tx.SetBalance(ctx, next)
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		// The mutation is committed; the mirror just misses this event.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventID, ev.ID,
			log.FieldKind, ev.Kind,
			log.FieldError, err)
	}
}

// wrapStorage turns persistence failures into *core.StorageError while
// letting domain errors through unchanged.
func wrapStorage(op string, err error) error {
	var (
		policy   *core.PolicyError
		notFound *core.NotFoundError
		storErr  *core.StorageError
	)
	switch {
	case errors.As(err, &policy), errors.As(err, &notFound), errors.As(err, &storErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &core.StorageError{Op: op, Err: err}
}
