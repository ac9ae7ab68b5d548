package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
)

// ParseExpense parses "-<amount> [category] [description...]".
//
// When the second word names a category (or one of its aliases) the
// canonical category name is used and the description starts at the third
// word. Otherwise the category is "other" and every word after the amount is
// description.
func ParseExpense(text string, categories []core.Category, now time.Time) (core.Expense, error) {
	words := stripSign(text, '-')
	if len(words) == 0 {
		return core.Expense{}, &core.ParseError{Kind: "expense", Reason: "missing amount"}
	}
	amount, err := core.ParseAmount(words[0])
	if err != nil || !amount.IsPositive() {
		return core.Expense{}, &core.ParseError{Kind: "expense", Reason: "invalid amount"}
	}

	category := core.OtherCategory
	rest := words[1:]
	if len(rest) > 0 {
		if name, ok := core.LookupCategory(rest[0], categories); ok {
			category = name
			rest = rest[1:]
		}
	}

	return core.Expense{
		Amount:      amount,
		Category:    category,
		Description: core.NewDescription(strings.Join(rest, " ")),
		Time:        core.Truncate(now),
	}, nil
}

// ParseIncome parses "+<amount> <description...>". The description is
// mandatory.
func ParseIncome(text string, now time.Time) (core.Income, error) {
	words := stripSign(text, '+')
	if len(words) < 2 {
		return core.Income{}, &core.ParseError{Kind: "income", Reason: "expected amount and description"}
	}
	amount, err := core.ParseAmount(words[0])
	if err != nil || !amount.IsPositive() {
		return core.Income{}, &core.ParseError{Kind: "income", Reason: "invalid amount"}
	}
	return core.Income{
		Amount:      amount,
		Description: strings.Join(words[1:], " "),
		Time:        core.Truncate(now),
	}, nil
}

// ParseNewBalance parses "balance <amount>". The amount may be negative.
func ParseNewBalance(text string) (decimal.Decimal, error) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) != 2 || !isKeyword(words[0], balanceKeywords) {
		return decimal.Zero, &core.ParseError{Kind: "balance", Reason: "expected \"balance <amount>\""}
	}
	amount, err := core.ParseSignedAmount(words[1])
	if err != nil {
		return decimal.Zero, &core.ParseError{Kind: "balance", Reason: "invalid amount"}
	}
	return amount, nil
}

// ParseMonth resolves "month", "<month-name>" or "<month-name> <year>" to a
// year and month. The current year and month come from now.
func ParseMonth(text string, now time.Time) (int, time.Month, error) {
	words := strings.Fields(strings.ToLower(text))
	switch len(words) {
	case 1:
		if isKeyword(words[0], monthKeywords) {
			return now.Year(), now.Month(), nil
		}
		if m, ok := core.MonthFromName(words[0]); ok {
			return now.Year(), m, nil
		}
	case 2:
		m, ok := core.MonthFromName(words[0])
		if ok && isDigits(words[1]) {
			year, err := strconv.Atoi(words[1])
			if err == nil {
				return year, m, nil
			}
		}
	}
	return 0, 0, &core.ParseError{Kind: "month", Reason: "expected \"month\", \"<month>\" or \"<month> <year>\""}
}

// stripSign drops surrounding space and a leading sign character, then splits
// the rest into words: "- 250 taxi" and "-250 taxi" are the same message.
func stripSign(text string, sign byte) []string {
	text = strings.TrimSpace(text)
	if len(text) > 0 && text[0] == sign {
		text = text[1:]
	}
	return strings.Fields(text)
}
