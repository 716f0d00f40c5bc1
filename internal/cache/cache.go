// Package cache holds computed dashboard reports.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is a keyed store of computed values.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry.
	Purge()
	Size() int
}

// Cleaner is a cache that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans the registered caches.
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	logger      *slog.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	running     bool
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:      logger,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the cleanup cycle.
func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// CleanAll runs one cleanup pass and returns the number of dropped entries.
func (m *Manager) CleanAll() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// StartCleanup runs CleanAll every interval until Stop.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				m.logger.Debug("Cache cleanup", "expired", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup goroutine.
func (m *Manager) Stop() {
	m.mu.Lock()
	running := m.running
	m.running = false
	m.mu.Unlock()
	if running {
		close(m.stopCleanup)
		<-m.cleanupDone
	}
}
