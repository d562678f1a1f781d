package log

// Canonical field names for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldEvent     = "event"
	FieldRequestID = "request_id"

	FieldPath         = "path"
	FieldFormat       = "format"
	FieldTargetFormat = "target_format"
	FieldIndex        = "index"
	FieldOffset       = "offset_s"
	FieldDuration     = "duration_s"
	FieldTotal        = "total_s"
	FieldMaxBytes     = "max_bytes"
	FieldSegments     = "segments"
	FieldBytes        = "bytes"
	FieldElapsed      = "elapsed"
	FieldStatus       = "status"
	FieldMethod       = "method"
	FieldRemoteAddr   = "remote_addr"
)
