package core

import "fmt"

// ParseError reports a malformed chat message. Kind names the message type
// ("expense", "income", "balance", "month") so the reply can say
// "invalid expense message".
type ParseError struct {
	Kind   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s message", e.Kind)
	}
	return fmt.Sprintf("invalid %s message: %s", e.Kind, e.Reason)
}

// PolicyError rejects an operation that is well-formed but not allowed, such
// as renaming the reserved category. No state is changed.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

// NotFoundError reports a missing record, e.g. cancelling with an empty ledger.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + " not found"
}

// StorageError wraps a persistence failure. The operation that returned it
// did not commit anything.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
