package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldSessionID  = "session_id"
	FieldKind       = "kind"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldBalance    = "balance"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldEventID    = "event_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
)

// Components
const (
	ComponentApp     = "app"
	ComponentBot     = "bot"
	ComponentLedger  = "ledger"
	ComponentTracker = "balance_tracker"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentHTTP    = "http"
	ComponentBackend = "backend"
)

// Operations recorded in ledger events and logs.
const (
	OpAddExpense     = "add_expense"
	OpAddIncome      = "add_income"
	OpCancelExpense  = "cancel_last_expense"
	OpSetBalance     = "set_balance"
	OpAddCategory    = "add_category"
	OpDeleteCategory = "delete_category"
	OpRenameCategory = "rename_category"
	OpSampleBalance  = "sample_balance"
	OpMonthStats     = "month_statistics"
)

// Fields is a small builder for slog key/value pairs.
type Fields map[string]any

func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithComponent(component string) Fields {
	f[FieldComponent] = component
	return f
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithAmount records an amount as its decimal string.
func (f Fields) WithAmount(amount interface{ String() string }) Fields {
	f[FieldAmount] = amount.String()
	return f
}

func (f Fields) WithCategory(name string) Fields {
	f[FieldCategory] = name
	return f
}

// ToSlice converts Fields to the variadic form slog expects.
func (f Fields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
