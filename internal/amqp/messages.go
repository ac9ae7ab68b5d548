package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind names the ledger mutation an event describes.
type EventKind string

const (
	EventExpenseAdded     EventKind = "expense_added"
	EventIncomeAdded      EventKind = "income_added"
	EventExpenseCancelled EventKind = "expense_cancelled"
	EventBalanceSet       EventKind = "balance_set"
	EventBalanceSampled   EventKind = "balance_sampled"
	EventCategoryAdded    EventKind = "category_added"
	EventCategoryDeleted  EventKind = "category_deleted"
	EventCategoryRenamed  EventKind = "category_renamed"
)

// LedgerEvent is published after a ledger mutation commits. It carries the
// full record so consumers never need to read the bot's database.
type LedgerEvent struct {
	ID          string          `json:"id"`
	Kind        EventKind       `json:"kind"`
	OccurredAt  time.Time       `json:"occurred_at"`
	RecordID    int64           `json:"record_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	// Balance is the balance scalar after the mutation.
	Balance decimal.Decimal `json:"balance"`
}

// NewLedgerEvent stamps a new event with a random id.
func NewLedgerEvent(kind EventKind, at time.Time) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		OccurredAt: at,
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects bodies without id or kind.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(ev.ID); err != nil {
		return nil, &MalformedEventError{Reason: "invalid id: " + err.Error()}
	}
	if ev.Kind == "" {
		return nil, &MalformedEventError{Reason: "missing kind"}
	}
	return &ev, nil
}

// MalformedEventError is returned for bodies that decode but are unusable.
type MalformedEventError struct {
	Reason string
}

func (e *MalformedEventError) Error() string {
	return "malformed ledger event: " + e.Reason
}
