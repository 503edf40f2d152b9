package log

// Common field names for structured logging.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldOwnerID   = "owner_id"
	FieldWalletID  = "wallet_id"
	FieldBudgetID  = "budget_id"
	FieldLinkID    = "link_id"
	FieldMonth     = "month"
	FieldInterval  = "interval"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldStatus    = "status"
	FieldMethod    = "method"
	FieldPath      = "path"
)

// Component names used across the repository.
const (
	ComponentHTTP     = "http"
	ComponentStorage  = "storage"
	ComponentFX       = "fx"
	ComponentReports  = "reports"
	ComponentBudgets  = "budgets"
	ComponentBalance  = "balance"
	ComponentTransfer = "transfer"
	ComponentAlerts   = "alerts"
	ComponentExport   = "export"
)
