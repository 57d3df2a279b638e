// Package storage provides the durable key-value media the object store
// persists collections to.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExceeded is returned by a medium that refuses a write because
	// the new value does not fit in its byte budget.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrClosed        = errors.New("storage closed")
)

// Medium is a synchronous key-value medium. A Set is atomic: readers see
// either the previous value or the whole new one.
type Medium interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
