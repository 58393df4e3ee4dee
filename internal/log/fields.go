package log

// Field names used across structured log records.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldFamilyID   = "family_id"
	FieldMonth      = "month"
	FieldCategory   = "category"
	FieldCount      = "count"
	FieldJob        = "job"
)

// Component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentBudget    = "budget"
	ComponentScheduler = "scheduler"
	ComponentAI        = "ai"
	ComponentAMQP      = "amqp"
	ComponentBot       = "bot"
	ComponentBackup    = "backup"
	ComponentNotify    = "notify"
)

// Operation names.
const (
	OpSnapshot = "snapshot"
	OpRestore  = "restore"
	OpExport   = "export"
	OpImport   = "import"
	OpAlert    = "alert"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
