package backend

import (
	"context"

	"nosam/internal/storage"
)

// CleanupFunc releases the resources behind a medium.
type CleanupFunc func() error

// BackendResult contains the medium and its cleanup function.
type BackendResult struct {
	Medium  storage.Medium
	Type    BackendType
	Cleanup CleanupFunc
}

// Factory creates media based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for medium creation
type Config struct {
	Type BackendType

	// File specific
	FilePath string

	// SQLite specific
	SQLiteDBPath string

	// Memory specific; zero means unlimited
	QuotaBytes int64
}

// BackendType represents the type of medium
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
