// Package trace tags each request with an id and logs its outcome.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"flujo/internal/log"
)

type contextKey struct{}

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// Middleware assigns request ids and logs request completion.
type Middleware struct {
	logger    *log.Logger
	extractIP func(*http.Request) string

	total       int64
	lastLatency int64
}

// Metrics tracks request counts.
type Metrics struct {
	TotalRequests int64
	// LastResponseTime is in microseconds.
	LastResponseTime int64
}

func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Middleware{logger: logger.WithComponent(log.ComponentHTTP), extractIP: extractIP}
}

// Handler wraps next. An incoming X-Request-ID is reused when well formed.
// The request logger, with the id attached, is stored in the context.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(requestID) {
			requestID = GenerateRequestID()
		}
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		logger := m.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), contextKey{}, requestID)
		ctx = log.WithLogger(ctx, logger)
		r = r.WithContext(ctx)

		logger.DebugContext(ctx, "HTTP request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		w.Header().Set(HeaderRequestID, requestID)
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		atomic.AddInt64(&m.total, 1)
		atomic.StoreInt64(&m.lastLatency, duration.Microseconds())
		log.NewStructuredLogger(logger).LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:    atomic.LoadInt64(&m.total),
		LastResponseTime: atomic.LoadInt64(&m.lastLatency),
	}
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GenerateRequestID creates a random request id.
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// RequestID returns the id stored by Handler.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
