// Package bot turns chat messages into ledger operations. The Dispatcher
// owns the per-chat conversation state and the blocked-mode switch; the
// Router in front of it authorizes users and renders replies.
package bot

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
	"ledgerbot/internal/parser"
)

// ErrBlocked is returned for every message while blocked mode is on.
var ErrBlocked = errors.New("bot is in blocked mode")

// Ledger is the part of services.LedgerService the bot drives.
type Ledger interface {
	Now() time.Time
	Categories(ctx context.Context) ([]core.Category, error)
	AddExpense(ctx context.Context, e core.Expense) (core.Expense, decimal.Decimal, error)
	AddIncome(ctx context.Context, i core.Income) (core.Income, decimal.Decimal, error)
	CancelLastExpense(ctx context.Context) (core.Expense, decimal.Decimal, error)
	SetBalance(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	Balance(ctx context.Context) (decimal.Decimal, error)
	MonthStatistics(ctx context.Context, year int, month time.Month) (core.MonthStatistics, error)
	AddCategory(ctx context.Context, name string, aliases ...string) (core.Category, error)
	DeleteCategory(ctx context.Context, name string) (int64, error)
	RenameCategory(ctx context.Context, oldName, newName string) (core.Category, error)
}

type Dispatcher struct {
	ledger   Ledger
	sessions *SessionStore
	blocked  atomic.Bool
	logger   *log.Logger
}

func NewDispatcher(ledger Ledger, sessions *SessionStore, logger *log.Logger) *Dispatcher {
	if sessions == nil {
		sessions = NewSessionStore(DefaultSessionTTL)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Dispatcher{
		ledger:   ledger,
		sessions: sessions,
		logger:   logger.WithComponent(log.ComponentBot),
	}
}

// Blocked reports whether blocked mode is on.
func (d *Dispatcher) Blocked() bool {
	return d.blocked.Load()
}

// ToggleBlocked flips blocked mode and returns the new state.
func (d *Dispatcher) ToggleBlocked() bool {
	for {
		old := d.blocked.Load()
		if d.blocked.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Sessions exposes the conversation store.
func (d *Dispatcher) Sessions() *SessionStore {
	return d.sessions
}

// HandleText handles a message that is not a slash command. Inside a
// conversation the text answers the pending step; otherwise it is
// classified and executed as a text command.
func (d *Dispatcher) HandleText(ctx context.Context, sessionID int64, text string) Result {
	if d.Blocked() {
		return errorResult(ErrBlocked)
	}
	if sess := d.sessions.Get(sessionID); sess.Active() {
		return d.continueFlow(ctx, sessionID, sess, text)
	}

	cmd := parser.Classify(text)
	d.logger.DebugContext(ctx, "Classified message", log.FieldSessionID, sessionID, log.FieldKind, cmd.String())

	switch cmd {
	case parser.Expense:
		cats, err := d.ledger.Categories(ctx)
		if err != nil {
			return d.fail(ctx, log.OpAddExpense, err)
		}
		e, err := parser.ParseExpense(text, cats, d.ledger.Now())
		if err != nil {
			return errorResult(err)
		}
		return d.addExpense(ctx, e)

	case parser.Income:
		i, err := parser.ParseIncome(text, d.ledger.Now())
		if err != nil {
			return errorResult(err)
		}
		return d.addIncome(ctx, i)

	case parser.Balance:
		return d.showBalance(ctx)

	case parser.BalanceNew:
		amount, err := parser.ParseNewBalance(text)
		if err != nil {
			return errorResult(err)
		}
		return d.setBalance(ctx, amount)

	case parser.Cancel:
		return d.cancelLast(ctx)

	case parser.Month:
		year, month, err := parser.ParseMonth(text, d.ledger.Now())
		if err != nil {
			return errorResult(err)
		}
		return d.monthReport(ctx, year, month)

	default:
		return Result{Kind: KindUnknown}
	}
}

func (d *Dispatcher) addExpense(ctx context.Context, e core.Expense) Result {
	stored, balance, err := d.ledger.AddExpense(ctx, e)
	if err != nil {
		return d.fail(ctx, log.OpAddExpense, err)
	}
	return Result{Kind: KindExpense, Payload: ExpenseAdded{Expense: stored, Balance: balance}}
}

func (d *Dispatcher) addIncome(ctx context.Context, i core.Income) Result {
	stored, balance, err := d.ledger.AddIncome(ctx, i)
	if err != nil {
		return d.fail(ctx, log.OpAddIncome, err)
	}
	return Result{Kind: KindIncome, Payload: IncomeAdded{Income: stored, Balance: balance}}
}

func (d *Dispatcher) showBalance(ctx context.Context) Result {
	balance, err := d.ledger.Balance(ctx)
	if err != nil {
		return d.fail(ctx, "read_balance", err)
	}
	return Result{Kind: KindBalanceShown, Payload: balance}
}

func (d *Dispatcher) setBalance(ctx context.Context, amount decimal.Decimal) Result {
	previous, err := d.ledger.SetBalance(ctx, amount)
	if err != nil {
		return d.fail(ctx, log.OpSetBalance, err)
	}
	return Result{Kind: KindBalanceSet, Payload: BalanceChanged{Previous: previous, Balance: amount}}
}

func (d *Dispatcher) cancelLast(ctx context.Context) Result {
	e, balance, err := d.ledger.CancelLastExpense(ctx)
	if err != nil {
		return d.fail(ctx, log.OpCancelExpense, err)
	}
	return Result{Kind: KindCancelled, Payload: ExpenseCancelled{Expense: e, Balance: balance}}
}

func (d *Dispatcher) monthReport(ctx context.Context, year int, month time.Month) Result {
	stats, err := d.ledger.MonthStatistics(ctx, year, month)
	if err != nil {
		return d.fail(ctx, log.OpMonthStats, err)
	}
	return Result{Kind: KindMonthReport, Payload: stats}
}

// fail logs storage failures. Domain errors only reach the user.
func (d *Dispatcher) fail(ctx context.Context, op string, err error) Result {
	var storErr *core.StorageError
	if errors.As(err, &storErr) {
		d.logger.ErrorContext(ctx, "Ledger operation failed", log.FieldOperation, op, log.FieldError, err)
	}
	return errorResult(err)
}
