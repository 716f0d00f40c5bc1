// Package backend builds the snapshot persistence and change
// notification the dashboard service runs on.
package backend

import (
	"context"

	"flujo/internal/dashboard"
	"flujo/internal/storage"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is a ready backend. Notifier is nil when no broker is
// configured or reachable.
type Result struct {
	Snapshots storage.SnapshotStore
	Notifier  dashboard.Notifier
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds what backend creation needs.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Optional change notifications
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType is the snapshot store kind.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
