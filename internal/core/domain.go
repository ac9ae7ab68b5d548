package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OtherCategory is the reserved fallback category. It always exists and can
// be neither renamed nor deleted.
const OtherCategory = "other"

type (
	Expense struct {
		ID          int64 // insertion sequence, zero until persisted
		Amount      decimal.Decimal
		Category    string
		Description *string // nil when the message had no description words
		Time        time.Time
	}

	Income struct {
		ID          int64
		Amount      decimal.Decimal
		Description string
		Time        time.Time
	}

	Category struct {
		Name    string
		Aliases []string
	}

	// BalanceSample is a snapshot of the balance scalar taken at a month
	// boundary.
	BalanceSample struct {
		Time   time.Time
		Amount decimal.Decimal
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrZeroTime         = errors.New("time cannot be zero")
)

// Truncate drops sub-second precision; ledger records are kept to the second.
func Truncate(t time.Time) time.Time {
	return t.Truncate(time.Second)
}

// NewDescription returns nil for blank text so that "no description" is never
// stored as an empty string.
func NewDescription(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// DescriptionText returns the description or "" when absent.
func (e Expense) DescriptionText() string {
	if e.Description == nil {
		return ""
	}
	return *e.Description
}

func (e Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Description != nil && strings.TrimSpace(*e.Description) == "" {
		return ErrEmptyDescription
	}
	if e.Time.IsZero() {
		return ErrZeroTime
	}
	return nil
}

func (i Income) Validate() error {
	if !i.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(i.Description) == "" {
		return ErrEmptyDescription
	}
	if i.Time.IsZero() {
		return ErrZeroTime
	}
	return nil
}

// Matches reports whether token equals the category name or one of its
// aliases, ignoring case.
func (c Category) Matches(token string) bool {
	if strings.EqualFold(c.Name, token) {
		return true
	}
	for _, a := range c.Aliases {
		if strings.EqualFold(a, token) {
			return true
		}
	}
	return false
}
