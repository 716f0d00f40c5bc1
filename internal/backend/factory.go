package backend

import (
	"context"
	"errors"
	"fmt"

	"flujo/internal/amqp"
	"flujo/internal/log"
	"flujo/internal/storage"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the snapshot store and, when configured, the AMQP
// publisher. A broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		snapshots storage.SnapshotStore
		err       error
	)
	switch config.Type {
	case SQLiteBackend:
		snapshots, err = storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite snapshot store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		snapshots = storage.NewMemoryStore()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	res := &Result{Snapshots: snapshots}
	closers := []func() error{snapshots.Close}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.Notifier = client
			closers = append(closers, client.Close)
		}
	}

	res.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	return res, nil
}
