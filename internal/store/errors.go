package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("object not found")
	ErrStorage  = errors.New("storage error")
	ErrImport   = errors.New("import error")
)

// NotFoundError carries the id an operation could not find.
type NotFoundError struct {
	ObjectType string
	ObjectID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.ObjectType, e.ObjectID, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError reports a failure to read, encode or write a collection.
// The persisted collection is unchanged when a write fails.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%v: %s %s: %v", ErrStorage, e.Op, e.Key, e.Err)
}

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func (e *StorageError) Unwrap() error { return e.Err }

// ImportError reports a snapshot that could not be parsed.
type ImportError struct {
	Err error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%v: %v", ErrImport, e.Err)
}

func (e *ImportError) Is(target error) bool { return target == ErrImport }

func (e *ImportError) Unwrap() error { return e.Err }
