package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the amount spent in one category.
type CategoryTotal struct {
	Name   string
	Amount decimal.Decimal
}

// MonthStatistics summarises one calendar month of the ledger.
type MonthStatistics struct {
	Year         int
	Month        time.Month
	Totals       []CategoryTotal // biggest first, empty categories omitted
	Biggest      []Expense
	TotalSpent   decimal.Decimal
	TotalIncome  decimal.Decimal
	StartBalance decimal.Decimal
	EndBalance   decimal.Decimal
}

// Difference is EndBalance - StartBalance.
func (s MonthStatistics) Difference() decimal.Decimal {
	return s.EndBalance.Sub(s.StartBalance)
}

// Percentage returns the balance change relative to StartBalance. ok is false
// when StartBalance is zero and the ratio is undefined.
func (s MonthStatistics) Percentage() (decimal.Decimal, bool) {
	if s.StartBalance.IsZero() {
		return decimal.Zero, false
	}
	return s.Difference().Div(s.StartBalance).Mul(decimal.NewFromInt(100)), true
}
