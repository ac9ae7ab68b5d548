package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
)

const timeLayout = "2006-01-02 15:04:05"

// Reply is what gets sent back to the chat. An empty Text means no reply.
type Reply struct {
	Text           string
	Keyboard       [][]string
	RemoveKeyboard bool
}

// View renders results as chat replies. Times are shown in loc.
type View struct {
	loc *time.Location
}

func NewView(loc *time.Location) *View {
	if loc == nil {
		loc = time.Local
	}
	return &View{loc: loc}
}

func (v *View) Render(res Result) Reply {
	switch res.Kind {
	case KindExpense:
		p := res.Payload.(ExpenseAdded)
		return Reply{Text: v.expense("Added new expense:", p.Expense, p.Balance)}

	case KindIncome:
		p := res.Payload.(IncomeAdded)
		return Reply{Text: strings.Join([]string{
			"Added new income:",
			"Amount: " + core.FormatAmount(p.Income.Amount),
			"Description: " + p.Income.Description,
			"Time: " + v.time(p.Income.Time),
			"Balance: " + core.FormatAmount(p.Balance),
		}, "\n")}

	case KindCancelled:
		p := res.Payload.(ExpenseCancelled)
		return Reply{Text: v.expense("Deleted expense:", p.Expense, p.Balance)}

	case KindBalanceShown:
		return Reply{Text: "Current balance is: " + core.FormatAmount(res.Payload.(decimal.Decimal))}

	case KindBalanceSet:
		p := res.Payload.(BalanceChanged)
		return Reply{Text: fmt.Sprintf("Balance set to: %s (was %s)",
			core.FormatAmount(p.Balance), core.FormatAmount(p.Previous))}

	case KindMonthReport:
		return Reply{Text: v.month(res.Payload.(core.MonthStatistics))}

	case KindCategories:
		return Reply{Text: categories(res.Payload.([]core.Category))}

	case KindPrompt, KindInfo:
		p := res.Payload.(Prompt)
		return Reply{Text: p.Text, Keyboard: p.Keyboard, RemoveKeyboard: p.RemoveKeyboard}

	case KindError:
		return Reply{Text: errorText(res.Err)}

	default:
		if cmd, ok := res.Payload.(string); ok {
			return Reply{Text: fmt.Sprintf("Unknown command %s.\nSend /help for the list.", cmd)}
		}
		return Reply{Text: "Unknown text command."}
	}
}

func (v *View) expense(title string, e core.Expense, balance decimal.Decimal) string {
	description := e.DescriptionText()
	if description == "" {
		description = "none"
	}
	return strings.Join([]string{
		title,
		"Amount: " + core.FormatAmount(e.Amount),
		"Category: " + e.Category,
		"Description: " + description,
		"Time: " + v.time(e.Time),
		"Balance: " + core.FormatAmount(balance),
	}, "\n")
}

func (v *View) month(s core.MonthStatistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Statistics for %s %d\n", capitalize(core.MonthName(s.Month)), s.Year)
	fmt.Fprintf(&b, "Spent: %s\n", core.FormatAmount(s.TotalSpent))
	fmt.Fprintf(&b, "Income: %s\n", core.FormatAmount(s.TotalIncome))

	if len(s.Totals) > 0 {
		b.WriteString("\nBy category:\n")
		for _, t := range s.Totals {
			fmt.Fprintf(&b, "%s: %s\n", t.Name, core.FormatAmount(t.Amount))
		}
	}

	if len(s.Biggest) > 0 {
		b.WriteString("\nBiggest expenses:\n")
		for i, e := range s.Biggest {
			fmt.Fprintf(&b, "%d. %s %s", i+1, core.FormatAmount(e.Amount), e.Category)
			if d := e.DescriptionText(); d != "" {
				fmt.Fprintf(&b, " (%s)", d)
			}
			fmt.Fprintf(&b, " %s\n", e.Time.In(v.loc).Format("2006-01-02"))
		}
	}

	fmt.Fprintf(&b, "\nStart balance: %s\n", core.FormatAmount(s.StartBalance))
	fmt.Fprintf(&b, "End balance: %s\n", core.FormatAmount(s.EndBalance))
	diff := s.Difference()
	fmt.Fprintf(&b, "Difference: %s", signed(diff))
	if pct, ok := s.Percentage(); ok {
		fmt.Fprintf(&b, " (%s%%)", signed(pct))
	}
	return b.String()
}

func categories(cats []core.Category) string {
	var b strings.Builder
	b.WriteString("Categories:")
	for i, c := range cats {
		fmt.Fprintf(&b, "\n%d. %s", i+1, capitalize(c.Name))
		if len(c.Aliases) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(c.Aliases, ", "))
		}
	}
	return b.String()
}

func (v *View) time(t time.Time) string {
	return t.In(v.loc).Format(timeLayout)
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + core.FormatAmount(d)
	}
	return core.FormatAmount(d)
}

func errorText(err error) string {
	var (
		parseErr    *core.ParseError
		policyErr   *core.PolicyError
		notFoundErr *core.NotFoundError
	)
	switch {
	case errors.Is(err, ErrBlocked):
		return ""
	case errors.As(err, &parseErr):
		return capitalize(parseErr.Error())
	case errors.As(err, &policyErr):
		return capitalize(policyErr.Reason) + "."
	case errors.As(err, &notFoundErr):
		if notFoundErr.What == "expense" {
			return "There are no expenses to cancel."
		}
		return capitalize(notFoundErr.Error()) + "."
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyDescription):
		return capitalize(err.Error()) + "."
	default:
		return "Something went wrong, nothing was saved."
	}
}
