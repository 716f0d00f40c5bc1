// Package http serves the dashboard over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"flujo/internal/dashboard"
	"flujo/internal/log"
	"flujo/internal/middleware/ratelimit"
	"flujo/internal/middleware/security"
	"flujo/internal/middleware/trace"
	"flujo/internal/sheets"
)

// DefaultMaxUploadBytes bounds import bodies.
const DefaultMaxUploadBytes = 32 << 20

// Options configure a Server. Zero values pick defaults.
type Options struct {
	// Sheets backs POST /api/import/sheets; nil disables the route.
	Sheets         sheets.RowReader
	ImportRange    string
	RateLimitRPM   int
	TrustedProxies []string
	MaxUploadBytes int64
	Logger         *log.Logger
}

type Server struct {
	http.Server
	svc         *dashboard.Service
	rows        sheets.RowReader
	importRange string
	maxUpload   int64
	logger      *log.Logger
	validate    *validator.Validate

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires the routes over svc. It fails only on invalid trusted
// proxy networks.
func NewServer(addr string, svc *dashboard.Service, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	detector, err := security.NewDetector(opts.TrustedProxies)
	if err != nil {
		return nil, err
	}

	limits := ratelimit.DefaultConfig()
	limits.RequestsPerMinute = opts.RateLimitRPM

	s := &Server{
		svc:         svc,
		rows:        opts.Sheets,
		importRange: opts.ImportRange,
		maxUpload:   opts.MaxUploadBytes,
		logger:      opts.Logger.WithComponent(log.ComponentHTTP),
		validate:    newValidator(),
		detector:    detector,
		rateLimiter: ratelimit.NewLimiter(limits),
	}
	s.tracer = trace.NewMiddleware(s.logger, detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/meta", s.handleMeta)

	mux.HandleFunc("GET /api/movements", s.handleListMovements)
	mux.HandleFunc("POST /api/movements", s.handleAppendMovements)
	mux.HandleFunc("PATCH /api/movements/{id}", s.handleUpdateMovement)
	mux.HandleFunc("POST /api/movements/bulk", s.handleBulkUpdate)
	mux.HandleFunc("DELETE /api/movements", s.handleClear)

	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("POST /api/import/sheets", s.handleImportSheets)
	mux.HandleFunc("POST /api/export", s.handleExport)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// chain runs tracing first so every later layer logs with the request id.
func (s *Server) chain(h http.Handler) http.Handler {
	mutating := []string{http.MethodPost, http.MethodPatch, http.MethodDelete}
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, mutating, s.onRateLimit)(h)
	h = s.detector.Middleware(h)
	h = security.Headers(security.APIHeadersConfig())(h)
	return s.tracer.Handler(h)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// Shutdown stops the rate limiter and the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
