package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"flujo/internal/core"
	"flujo/internal/dashboard"
	"flujo/internal/dataset"
	"flujo/internal/ingest"
	"flujo/internal/log"
	"flujo/internal/middleware/trace"
)

// apiError is the body of every error response.
type apiError struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg, RequestID: trace.RequestID(r.Context())})
}

// fail maps err to a status. Unknown errors are logged and reported as 500
// without their text.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= 500 {
		logger := log.FromContext(r.Context())
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
		writeError(w, r, status, "internal error")
		return
	}
	var fe fieldErrors
	errors.As(err, &fe)
	writeJSON(w, status, apiError{Error: err.Error(), Fields: fe, RequestID: trace.RequestID(r.Context())})
}

func statusFor(err error) int {
	var fe fieldErrors
	switch {
	case errors.As(err, &fe), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrNoValidRows):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dataset.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dataset.ErrInvalidPatch),
		errors.Is(err, dashboard.ErrUnknownFormat),
		errors.Is(err, core.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoSheets):
		return http.StatusNotImplemented
	case errors.Is(err, errUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// sanitizeInput trims s and drops control characters other than tab and
// line breaks.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
