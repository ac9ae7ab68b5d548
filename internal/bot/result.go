package bot

import (
	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
)

// Kind tells the view how to render a Result.
type Kind int

const (
	KindUnknown Kind = iota
	KindExpense
	KindIncome
	KindBalanceShown
	KindBalanceSet
	KindCancelled
	KindMonthReport
	KindError
	// KindPrompt is a conversation step asking for more input.
	KindPrompt
	// KindInfo is a plain informational reply.
	KindInfo
	KindCategories
)

func (k Kind) String() string {
	switch k {
	case KindExpense:
		return "expense"
	case KindIncome:
		return "income"
	case KindBalanceShown:
		return "balance_shown"
	case KindBalanceSet:
		return "balance_set"
	case KindCancelled:
		return "cancelled"
	case KindMonthReport:
		return "month_report"
	case KindError:
		return "error"
	case KindPrompt:
		return "prompt"
	case KindInfo:
		return "info"
	case KindCategories:
		return "categories"
	default:
		return "unknown"
	}
}

// Result is the outcome of handling one message. Payload holds one of the
// payload types below, selected by Kind.
type Result struct {
	Kind    Kind
	Payload any
	Err     error
}

type (
	ExpenseAdded struct {
		Expense core.Expense
		Balance decimal.Decimal
	}

	IncomeAdded struct {
		Income  core.Income
		Balance decimal.Decimal
	}

	ExpenseCancelled struct {
		Expense core.Expense
		Balance decimal.Decimal
	}

	BalanceChanged struct {
		Previous decimal.Decimal
		Balance  decimal.Decimal
	}

	// Prompt is sent during conversations. Keyboard rows replace the user's
	// keyboard; RemoveKeyboard restores the default one.
	Prompt struct {
		Text           string
		Keyboard       [][]string
		RemoveKeyboard bool
	}
)

func errorResult(err error) Result {
	return Result{Kind: KindError, Err: err}
}

func info(text string) Result {
	return Result{Kind: KindInfo, Payload: Prompt{Text: text}}
}

// done ends a conversation and restores the default keyboard.
func done(text string) Result {
	return Result{Kind: KindInfo, Payload: Prompt{Text: text, RemoveKeyboard: true}}
}

func prompt(text string) Result {
	return Result{Kind: KindPrompt, Payload: Prompt{Text: text}}
}

func keyboard(text string, rows [][]string) Result {
	return Result{Kind: KindPrompt, Payload: Prompt{Text: text, Keyboard: rows}}
}
