package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d, err := NewDetector(nil)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.7:4000", "", "", "203.0.113.7"},
		{"untrusted peer ignores headers", "203.0.113.7:4000", "1.1.1.1", "", "203.0.113.7"},
		{"trusted peer first forwarded", "10.0.0.2:80", "198.51.100.1, 10.0.0.3", "", "198.51.100.1"},
		{"trusted peer real ip", "127.0.0.1:80", "", "198.51.100.9", "198.51.100.9"},
		{"trusted peer bad header", "127.0.0.1:80", "nonsense", "", "127.0.0.1"},
		{"no port", "192.0.2.1", "", "", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNewDetectorTrustedList(t *testing.T) {
	if _, err := NewDetector([]string{"10.0.0.0/8", "nope"}); err == nil {
		t.Fatalf("expected an error for an invalid CIDR")
	}

	d, err := NewDetector([]string{"203.0.113.5"})
	if err != nil {
		t.Fatalf("bare address: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	r.RemoteAddr = "203.0.113.5:443"
	if got := d.ExtractClientIP(r); got != "198.51.100.1" {
		t.Fatalf("trusted host should forward, got %s", got)
	}
	r.RemoteAddr = "203.0.113.6:443"
	if got := d.ExtractClientIP(r); got != "203.0.113.6" {
		t.Fatalf("neighbour must not be trusted, got %s", got)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		method, target, agent, want string
	}{
		{http.MethodGet, "/api/dashboard", "flujoctl", ""},
		{http.MethodGet, "/api/movements?search=arriendo", "curl/8.0", ""},
		{http.MethodGet, "/.env", "", "path:.env"},
		{http.MethodGet, "/api/meta?q=union+select", "", ""},
		{http.MethodGet, "/api/meta?q=<script>", "", "query:<script"},
		{http.MethodGet, "/", "sqlmap/1.7", "agent:sqlmap"},
		{"TRACE", "/", "", "method:TRACE"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.target, nil)
		r.Header.Set("User-Agent", tt.agent)
		if got := Reason(r); got != tt.want {
			t.Errorf("%s %s: expected %q, got %q", tt.method, tt.target, tt.want, got)
		}
	}
}

func TestMiddlewareBlocksTraversal(t *testing.T) {
	d, _ := NewDetector(nil)
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/../etc/passwd", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("flagged but not blocked requests pass, got %d", rr.Code)
	}

	if m := d.GetMetrics(); m.SuspiciousRequests != 2 || m.BlockedRequests != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestHeaders(t *testing.T) {
	h := Headers(APIHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("missing headers: %v", rr.Header())
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must not be sent over plain HTTP")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("unexpected HSTS %q", got)
	}
}
