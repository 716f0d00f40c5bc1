package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"flujo/internal/log"
)

func TestHandler(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(log.NewWriter(&buf, slog.LevelInfo, log.ComponentHTTP), func(*http.Request) string { return "192.0.2.1" })

	var seen string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		log.FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusNotFound)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/meta", nil))

	if !strings.HasPrefix(seen, "req_") || rr.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seen, rr.Header().Get(HeaderRequestID))
	}
	out := buf.String()
	for _, want := range []string{"HTTP request completed", "status_code=404", "level=WARN", "request_id=" + seen, "msg=inside"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %q:\n%s", want, out)
		}
	}
	if m.GetMetrics().TotalRequests != 1 {
		t.Fatalf("expected 1 request counted")
	}
}

func TestHandlerReusesRequestID(t *testing.T) {
	m := NewMiddleware(log.NewWriter(&bytes.Buffer{}, slog.LevelInfo, log.ComponentHTTP), nil)
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	if got := rr.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Fatalf("expected incoming id, got %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "bad id with spaces")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	if got := rr.Header().Get(HeaderRequestID); !strings.HasPrefix(got, "req_") {
		t.Fatalf("malformed id must be replaced, got %q", got)
	}
}
