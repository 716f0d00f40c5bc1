// Package ratelimit throttles requests per client within a fixed
// one-minute window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Window is the span each client's counter covers.
const Window = time.Minute

// Limiter counts requests per client IP.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	now          func() time.Time

	requestsPerMinute int
	cleanupInterval   time.Duration
	staleAfter        time.Duration

	hits int64
}

type clientInfo struct {
	windowStart time.Time
	lastRequest time.Time
	requests    int
}

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// StaleAfter drops clients idle for longer than this.
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		CleanupInterval:   5 * time.Minute,
		StaleAfter:        10 * time.Minute,
	}
}

// NewLimiter starts a limiter and its cleanup goroutine. Call Stop to
// release it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = def.StaleAfter
	}

	rl := &Limiter{
		clients:           make(map[string]*clientInfo),
		stopCleanup:       make(chan struct{}),
		now:               time.Now,
		requestsPerMinute: config.RequestsPerMinute,
		cleanupInterval:   config.CleanupInterval,
		staleAfter:        config.StaleAfter,
	}
	go rl.startCleanup()
	return rl
}

// Allow counts one request from clientIP and reports whether it fits in
// the current window.
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, exists := rl.clients[clientIP]
	if !exists || now.Sub(client.windowStart) >= Window {
		rl.clients[clientIP] = &clientInfo{windowStart: now, lastRequest: now, requests: 1}
		return true
	}

	client.requests++
	client.lastRequest = now
	if client.requests > rl.requestsPerMinute {
		atomic.AddInt64(&rl.hits, 1)
		return false
	}
	return true
}

// RetryAfter is the time left in clientIP's window.
func (rl *Limiter) RetryAfter(clientIP string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	client, ok := rl.clients[clientIP]
	if !ok {
		return 0
	}
	left := Window - rl.now().Sub(client.windowStart)
	if left < 0 {
		return 0
	}
	return left
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.staleAfter)
	removed := 0
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of tracked clients.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Metrics for monitoring rate limiting.
type Metrics struct {
	RejectedRequests int64
	ClientCount      int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		RejectedRequests: atomic.LoadInt64(&rl.hits),
		ClientCount:      int64(rl.ActiveClients()),
	}
}

// Middleware limits requests whose method is in methods; an empty list
// limits every request. onLimit writes the rejection; when nil a plain
// 429 is sent.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, methods []string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	limited := make(map[string]bool, len(methods))
	for _, m := range methods {
		limited[m] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(limited) > 0 && !limited[r.Method] {
				next.ServeHTTP(w, r)
				return
			}
			clientIP := extractIP(r)
			if !rl.Allow(clientIP) {
				secs := int(rl.RetryAfter(clientIP).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
