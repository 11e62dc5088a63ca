package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldEventID     = "event_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldChatID      = "chat_id"
	FieldState       = "state"
	FieldNextState   = "next_state"
	FieldAction      = "action"
	FieldCategory    = "category"
	FieldExpenseDesc = "expense_description"
	FieldAmount      = "amount"
	FieldBackend     = "backend"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentConversation = "conversation"
	ComponentLedger       = "ledger"
	ComponentStorage      = "storage"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentSheets       = "sheets"
	ComponentConsole      = "console"
	ComponentBackend      = "backend"
)

// Operations defines standard operation names
const (
	OpLoad     = "load"
	OpSnapshot = "snapshot"
	OpHandle   = "handle"
	OpSend     = "send"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpMirror   = "mirror"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

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

// WithConversation adds the identifiers of one inbound event
func (f LogFields) WithConversation(eventID string, userID int64, chatID int64) LogFields {
	if eventID != "" {
		f[FieldEventID] = eventID
	}
	f[FieldUserID] = userID
	f[FieldChatID] = chatID
	return f
}

// WithTransition adds the state change produced by one event
func (f LogFields) WithTransition(action, from, to string) LogFields {
	f[FieldAction] = action
	f[FieldState] = from
	f[FieldNextState] = to
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(desc string, amount float64, category string) LogFields {
	f[FieldExpenseDesc] = desc
	f[FieldAmount] = amount
	f[FieldCategory] = category
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
