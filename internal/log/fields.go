package log

import "github.com/shopspring/decimal"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldBackend     = "backend"
	FieldUserID      = "user_id"
	FieldTxID        = "transaction_id"
	FieldBudgetID    = "budget_id"
	FieldMonth       = "month"
	FieldDate        = "date"
	FieldType        = "type"
	FieldCategory    = "category"
	FieldAmount      = "amount"
	FieldLimit       = "limit"
	FieldSpent       = "spent"
	FieldOverBy      = "over_by"
	FieldMessageID   = "message_id"
	FieldMessageKind = "message_kind"
	FieldExceeded    = "exceeded"
	FieldDuration    = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentBackend = "backend"
	ComponentLedger  = "ledger"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
)

// Operations defines standard operation names
const (
	OpPublish = "publish"
	OpConsume = "consume"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithBudget adds the fields describing a budget line. Amounts are rendered
// as fixed two-decimal strings.
func (f LogFields) WithBudget(month, category string, limit, spent decimal.Decimal) LogFields {
	f[FieldMonth] = month
	f[FieldCategory] = category
	f[FieldLimit] = limit.StringFixed(2)
	f[FieldSpent] = spent.StringFixed(2)
	return f
}

// WithMessage adds change message identification.
func (f LogFields) WithMessage(id, kind string) LogFields {
	f[FieldMessageID] = id
	f[FieldMessageKind] = kind
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
