package backend

import (
	"context"
	"fmt"

	"nosam/internal/log"
	"nosam/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		db, err := storage.OpenSQLite(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite medium: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", log.FieldBackend, config.Type, "db_path", config.SQLiteDBPath)
		return &BackendResult{Medium: db, Type: config.Type, Cleanup: db.Close}, nil

	case FileBackend:
		file, err := storage.OpenFile(config.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file medium: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized file backend", log.FieldBackend, config.Type, "file_path", config.FilePath)
		return &BackendResult{Medium: file, Type: config.Type, Cleanup: file.Close}, nil

	case MemoryBackend:
		mem := storage.NewMemory(config.QuotaBytes)
		f.logger.InfoContext(ctx, "Initialized memory backend", log.FieldBackend, config.Type, "quota_bytes", config.QuotaBytes)
		return &BackendResult{Medium: mem, Type: config.Type, Cleanup: mem.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
