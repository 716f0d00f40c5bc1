package log

// Field names for structured logging
const (
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldQuery          = "query"
	FieldStatusCode     = "status_code"
	FieldDuration       = "duration_ms"
	FieldUserAgent      = "user_agent"
	FieldSuccess        = "success"
	FieldError          = "error"
	FieldOperation      = "operation"
	FieldDatasetVersion = "dataset_version"
	FieldRows           = "rows"
	FieldAccepted       = "accepted"
	FieldRejected       = "rejected"
	FieldEncoding       = "encoding"
	FieldMapping        = "mapping"
	FieldFormat         = "format"
	FieldEntity         = "entity"
	FieldCacheHit       = "cache_hit"
)

// Component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentDashboard = "dashboard"
	ComponentIngest    = "ingest"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
)

// Operation names
const (
	OpCompute  = "compute"
	OpImport   = "import"
	OpExport   = "export"
	OpUpdate   = "update"
	OpAppend   = "append"
	OpClear    = "clear"
	OpSave     = "save"
	OpLoad     = "load"
	OpMirror   = "mirror"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields builds structured log attributes.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError is a no-op for a nil error.
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

// WithDataset adds the collection version and size.
func (f LogFields) WithDataset(version uint64, rows int) LogFields {
	f[FieldDatasetVersion] = version
	f[FieldRows] = rows
	return f
}

// WithImport adds the outcome of an import.
func (f LogFields) WithImport(format, encoding string, accepted, rejected int) LogFields {
	f[FieldFormat] = format
	f[FieldEncoding] = encoding
	f[FieldAccepted] = accepted
	f[FieldRejected] = rejected
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts the fields to slog key/value pairs.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
