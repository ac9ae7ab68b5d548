// Package parser turns free-text chat messages into typed commands and
// ledger values. Everything here is pure: no I/O, no clock reads.
package parser

import (
	"strings"

	"ledgerbot/internal/core"
)

// Command is the classification of a free-text message.
type Command int

const (
	Unknown Command = iota
	Expense
	Income
	Balance
	BalanceNew
	Cancel
	Month
)

func (c Command) String() string {
	switch c {
	case Expense:
		return "expense"
	case Income:
		return "income"
	case Balance:
		return "balance"
	case BalanceNew:
		return "balance_new"
	case Cancel:
		return "cancel"
	case Month:
		return "month"
	default:
		return "unknown"
	}
}

// Keyword tables. Each set holds the canonical word first.
var (
	balanceKeywords = []string{"balance", "bl"}
	cancelKeywords  = []string{"cancel", "отмена"}
	monthKeywords   = []string{"month", "месяц"}
)

// Classify returns the command a message represents. It never fails:
// anything unrecognised, including empty input, is Unknown.
func Classify(text string) Command {
	msg := strings.ToLower(strings.TrimSpace(text))
	if msg == "" {
		return Unknown
	}

	switch msg[0] {
	case '-':
		return Expense
	case '+':
		return Income
	}

	words := strings.Fields(msg)
	switch len(words) {
	case 1:
		switch {
		case isKeyword(words[0], balanceKeywords):
			return Balance
		case isKeyword(words[0], cancelKeywords):
			return Cancel
		case isKeyword(words[0], monthKeywords):
			return Month
		}
		if _, ok := core.MonthFromName(words[0]); ok {
			return Month
		}
	case 2:
		if isKeyword(words[0], balanceKeywords) && core.LooksNumeric(words[1]) {
			return BalanceNew
		}
		if _, ok := core.MonthFromName(words[0]); ok && isDigits(words[1]) {
			return Month
		}
	}
	return Unknown
}

func isKeyword(word string, set []string) bool {
	for _, k := range set {
		if word == k {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
