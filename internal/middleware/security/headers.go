package security

import (
	"fmt"
	"net/http"
)

// HeadersConfig holds the response security headers.
type HeadersConfig struct {
	CSP string

	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginResource string
	// CacheControl is set on every response; API payloads change with
	// each dataset version.
	CacheControl string
}

// APIHeadersConfig returns headers for a JSON and file-download API.
func APIHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginResource:   "same-origin",
		CacheControl:          "no-store",
	}
}

// Headers returns middleware applying config to every response.
func Headers(config HeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			applyHeaders(w.Header(), r, config)
			next.ServeHTTP(w, r)
		})
	}
}

func applyHeaders(h http.Header, r *http.Request, c HeadersConfig) {
	set := func(k, v string) {
		if v != "" {
			h.Set(k, v)
		}
	}
	set("Content-Security-Policy", c.CSP)
	set("X-Frame-Options", c.XFrameOptions)
	set("X-Content-Type-Options", c.XContentTypeOptions)
	set("Referrer-Policy", c.ReferrerPolicy)
	set("Permissions-Policy", c.PermissionsPolicy)
	set("Cross-Origin-Resource-Policy", c.CrossOriginResource)
	set("Cache-Control", c.CacheControl)

	// HSTS only over TLS
	if r.TLS != nil && c.HSTSMaxAge > 0 {
		v := fmt.Sprintf("max-age=%d", c.HSTSMaxAge)
		if c.HSTSIncludeSubdomains {
			v += "; includeSubDomains"
		}
		h.Set("Strict-Transport-Security", v)
	}
}
