// Package security sets response headers, resolves client addresses
// behind proxies and flags requests that look like probes.
package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"flujo/internal/log"
)

// DefaultTrustedProxies are loopback and private networks.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"::1/128",
}

// MaxURLLength is the longest URL not flagged.
const MaxURLLength = 4096

var (
	probePatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan",
	}
	unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

// DetectionMetrics counts detection events.
type DetectionMetrics struct {
	SuspiciousRequests int64
	BlockedRequests    int64
}

// Detector resolves client IPs and flags suspicious requests.
type Detector struct {
	suspicious     int64
	blocked        int64
	trustedProxies []*net.IPNet
}

// NewDetector trusts forwarding headers from the given networks. Nil uses
// DefaultTrustedProxies.
func NewDetector(trusted []string) (*Detector, error) {
	if trusted == nil {
		trusted = DefaultTrustedProxies
	}
	d := &Detector{}
	for _, cidr := range trusted {
		if err := d.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// AddTrustedProxy adds a trusted proxy network. A bare address trusts
// that host only.
func (d *Detector) AddTrustedProxy(cidr string) error {
	cidr = strings.TrimSpace(cidr)
	if !strings.Contains(cidr, "/") {
		if ip := net.ParseIP(cidr); ip != nil {
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			d.trustedProxies = append(d.trustedProxies, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			return nil
		}
	}
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

// Reason explains why a request was flagged; empty means clean.
func Reason(r *http.Request) string {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, p := range probePatterns {
		if strings.Contains(path, p) {
			return "path:" + p
		}
		if strings.Contains(query, p) {
			return "query:" + p
		}
	}

	agent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return "agent:" + a
		}
	}

	for _, m := range unusualMethods {
		if r.Method == m {
			return "method:" + m
		}
	}

	if len(r.URL.String()) > MaxURLLength {
		return "url_length"
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return "forwarded_hops"
	}
	return ""
}

// DetectSuspiciousRequest reports whether r looks like a probe and counts
// it.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if Reason(r) == "" {
		return false
	}
	atomic.AddInt64(&d.suspicious, 1)
	return true
}

// ExtractClientIP returns the client address. Forwarding headers are only
// honored when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !d.isTrustedProxy(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// Middleware logs suspicious requests. Path traversal and unusual methods
// are rejected with 400; the rest pass through.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason := Reason(r)
		if reason == "" {
			next.ServeHTTP(w, r)
			return
		}
		atomic.AddInt64(&d.suspicious, 1)
		logger := log.FromContext(r.Context()).WithComponent(log.ComponentSecurity)
		logger.WarnContext(r.Context(), "Suspicious request",
			log.FieldClientIP, d.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			"reason", reason)
		if blocking(reason) {
			atomic.AddInt64(&d.blocked, 1)
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func blocking(reason string) bool {
	return strings.HasPrefix(reason, "method:") ||
		reason == "path:../" || reason == "path:..\\" || reason == "path:etc/passwd"
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.suspicious),
		BlockedRequests:    atomic.LoadInt64(&d.blocked),
	}
}
