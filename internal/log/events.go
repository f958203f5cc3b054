package log

import (
	"context"
	"log/slog"
	"net/http"
)

// StructuredLogger writes the recurring events of the app with a fixed
// field set, so they can be filtered by operation and component.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPStart logs an incoming request.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)

	sl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the outcome of a request at a level derived from status:
// warn for client errors, error for server errors.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)

	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogPaymentDecision logs an approval or rejection.
func (sl *StructuredLogger) LogPaymentDecision(ctx context.Context, op string, paymentID, studentID string, amount int64, verifier string) {
	fields := NewFields().
		WithPayment(paymentID, studentID, amount, verifier).
		WithOperation(op)

	sl.logger.InfoContext(ctx, "Payment decision recorded", fields.ToSlice()...)
}

// LogError logs err with the component and operation it happened in.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation)
	logger := sl.logger
	if component != "" && component != logger.Component() {
		logger = logger.WithComponent(component)
	}
	logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}
