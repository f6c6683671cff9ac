package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldGroupID    = "group_id"
	FieldPayerID    = "payer_id"
	FieldAmount     = "amount_minor"
	FieldSplits     = "splits"
	FieldPolicy     = "policy"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentGateway  = "gateway"
	ComponentAPI      = "api"
	ComponentSettings = "settings"
	ComponentEvents   = "events"
	ComponentViews    = "views"
	ComponentLedger   = "ledger"
)
