package log

// Canonical field names for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldRunID     = "run_id"

	FieldSource   = "source"
	FieldURL      = "url"
	FieldChannel  = "channel"
	FieldLine     = "line"
	FieldReason   = "reason"
	FieldCategory = "category"
	FieldPath     = "path"
	FieldEncoding = "encoding"
	FieldLatency  = "latency_ms"
)
