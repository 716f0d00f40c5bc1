package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flujo/internal/amqp"
	"flujo/internal/ingest"
	"flujo/internal/log"
	"flujo/internal/sheets"
	"flujo/internal/storage"
)

// MirrorWorker copies the persisted collection to a spreadsheet whenever
// the dashboard announces a new version.
type MirrorWorker struct {
	snapshots storage.SnapshotStore
	writer    sheets.MirrorWriter
	sheet     string
	mapping   ingest.FieldMapping
	logger    *log.Logger

	mu sync.Mutex
	// started is when the last successful mirror began loading.
	started time.Time
	lastRun time.Time
}

func NewMirrorWorker(snapshots storage.SnapshotStore, writer sheets.MirrorWriter, sheet string, mapping ingest.FieldMapping, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		snapshots: snapshots,
		writer:    writer,
		sheet:     sheet,
		mapping:   mapping,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleDatasetChanged mirrors the snapshot for one change event. An
// event published before the last successful mirror started is already
// contained in it and is skipped.
func (w *MirrorWorker) HandleDatasetChanged(ctx context.Context, msg *amqp.DatasetChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing dataset change",
		log.FieldDatasetVersion, msg.Version,
		log.FieldRows, msg.Rows,
		log.FieldOperation, msg.Operation)

	w.mu.Lock()
	stale := !msg.Timestamp.IsZero() && msg.Timestamp.Before(w.started)
	w.mu.Unlock()
	if stale {
		w.logger.DebugContext(ctx, "Skipping stale change", log.FieldDatasetVersion, msg.Version)
		return nil
	}

	n, err := w.Mirror(ctx)
	if err != nil {
		return err
	}
	if n != msg.Rows {
		w.logger.WarnContext(ctx, "Snapshot row count differs from event",
			log.FieldRows, n, "event_rows", msg.Rows)
	}
	return nil
}

// Mirror writes the current snapshot to the mirror sheet and returns the
// number of movements written.
func (w *MirrorWorker) Mirror(ctx context.Context) (int, error) {
	start := time.Now()
	rows, err := w.snapshots.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}
	if err := w.writer.ReplaceSheet(ctx, w.sheet, w.mapping.Table(rows)); err != nil {
		return 0, fmt.Errorf("mirror to %s: %w", w.sheet, err)
	}

	w.mu.Lock()
	w.started = start
	w.lastRun = time.Now()
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Snapshot mirrored",
		"sheet", w.sheet,
		log.FieldRows, len(rows),
		log.FieldDuration, time.Since(start).Milliseconds())
	return len(rows), nil
}

// LastRun is the time of the last successful mirror, zero before the
// first one.
func (w *MirrorWorker) LastRun() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun
}

// Run mirrors once at startup, then every interval until ctx is done.
// It covers events lost while the worker was down.
func (w *MirrorWorker) Run(ctx context.Context, interval time.Duration) {
	if _, err := w.Mirror(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup mirror failed", log.FieldError, err)
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Mirror(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic mirror failed", log.FieldError, err)
			}
		}
	}
}
