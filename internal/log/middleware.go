package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey struct{}

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored in ctx, or one over slog.Default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// StructuredLogger logs the recurring events with fixed fields.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs a completed request; 4xx at warn, 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogImport logs the outcome of a file or sheet import.
func (sl *StructuredLogger) LogImport(ctx context.Context, format, encoding string, accepted, rejected int, version uint64) {
	fields := NewFields().
		WithImport(format, encoding, accepted, rejected).
		WithOperation(OpImport).
		WithComponent(ComponentIngest)
	fields[FieldDatasetVersion] = version
	sl.logger.Logger.InfoContext(ctx, "Movements imported", fields.ToSlice()...)
}

// LogError logs err with its component and operation.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.WithError(err).WithOperation(operation).WithComponent(component)
	sl.logger.Logger.ErrorContext(ctx, msg, all.ToSlice()...)
}
