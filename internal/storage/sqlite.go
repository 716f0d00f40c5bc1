package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"flujo/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the snapshot in a sqlite table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load implements SnapshotStore. A missing row is an empty collection.
func (s *SQLiteStore) Load(ctx context.Context) ([]core.Movement, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE key = ?`, SnapshotKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return decode([]byte(data))
}

// Save implements SnapshotStore.
func (s *SQLiteStore) Save(ctx context.Context, rows []core.Movement) error {
	data, err := encode(rows)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO snapshots (key, data, row_count, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET data = excluded.data, row_count = excluded.row_count, updated_at = excluded.updated_at`,
		SnapshotKey, string(data), len(rows))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved to SQLite", "rows", len(rows), "bytes", len(data))
	return nil
}

// Clear implements SnapshotStore.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, SnapshotKey); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Snapshot cleared")
	return nil
}
