package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldReferer       = "referer"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldMonth         = "month"
	FieldPaymentID     = "payment_id"
	FieldStudentID     = "student_id"
	FieldTransactionID = "transaction_id"
	FieldAmount        = "amount"
	FieldFund          = "fund"
	FieldVerifier      = "verifier"
	FieldCollection    = "collection"
	FieldUser          = "user"
)

// Components defines standard component names
const (
	ComponentHTTP      = "http"
	ComponentPayment   = "payment"
	ComponentStudent   = "student"
	ComponentExpense   = "expense"
	ComponentSession   = "session"
	ComponentView      = "view"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentTrace     = "trace"
	ComponentWebsocket = "websocket"
)

// Operations defines standard operation names
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpApprove = "approve"
	OpReject  = "reject"
	OpExport  = "export"
	OpLogin   = "login"
	OpReload  = "reload"
	OpMirror  = "mirror"
	OpRender  = "render"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithPayment adds the fields of a payment decision.
func (f LogFields) WithPayment(paymentID, studentID string, amount int64, verifier string) LogFields {
	f[FieldPaymentID] = paymentID
	f[FieldStudentID] = studentID
	f[FieldAmount] = amount
	f[FieldVerifier] = verifier
	return f
}

// WithTransaction adds ledger entry fields.
func (f LogFields) WithTransaction(id, fund string, amount int64) LogFields {
	f[FieldTransactionID] = id
	f[FieldFund] = fund
	f[FieldAmount] = amount
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
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
