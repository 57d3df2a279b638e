// Package facade exposes the object store through asynchronous calls shaped
// like a remote object API. Calls return immediately with a Future; a single
// dispatcher runs them one at a time in submission order.
package facade

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"nosam/internal/core"
	"nosam/internal/log"
	"nosam/internal/store"
)

var ErrClosed = errors.New("facade closed")

type Client struct {
	store  *store.Store
	logger *log.Logger

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	closing bool
	stopped chan struct{}
}

// New starts the dispatcher. A nil logger discards output.
func New(s *store.Store, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{
		store:   s,
		logger:  logger.WithComponent(log.ComponentFacade),
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go c.dispatch()
	return c
}

func (c *Client) dispatch() {
	defer close(c.stopped)
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			if c.closing {
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()
			<-c.wake
			continue
		}
		task := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.mu.Unlock()

		task()
	}
}

// submit queues fn and returns its future. After Close the future fails
// with ErrClosed without running fn.
func submit[T any](c *Client, op string, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		var zero T
		f.resolve(zero, ErrClosed)
		return f
	}
	c.queue = append(c.queue, func() {
		val, err := fn()
		if err != nil {
			c.logger.Debug("Operation failed", log.FieldOperation, op, log.FieldError, err)
		}
		f.resolve(val, err)
	})
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return f
}

// Close stops accepting work, waits for queued work to finish and stops the
// dispatcher. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	<-c.stopped
	return nil
}

func (c *Client) ListObjects(ctx context.Context, objectType string, limit int, includeData bool) *Future[store.ListResult] {
	return submit(c, log.OpList, func() (store.ListResult, error) {
		return c.store.List(ctx, objectType, limit, includeData)
	})
}

func (c *Client) CreateObject(ctx context.Context, objectType string, data core.Data) *Future[core.StoredObject] {
	return submit(c, log.OpCreate, func() (core.StoredObject, error) {
		return c.store.Create(ctx, objectType, data)
	})
}

func (c *Client) UpdateObject(ctx context.Context, objectType, objectID string, updates core.Data) *Future[core.StoredObject] {
	return submit(c, log.OpUpdate, func() (core.StoredObject, error) {
		return c.store.Update(ctx, objectType, objectID, updates)
	})
}

func (c *Client) DeleteObject(ctx context.Context, objectType, objectID string) *Future[store.DeleteResult] {
	return submit(c, log.OpDelete, func() (store.DeleteResult, error) {
		return c.store.Delete(ctx, objectType, objectID)
	})
}

func (c *Client) GetObject(ctx context.Context, objectType, objectID string) *Future[core.StoredObject] {
	return submit(c, log.OpRead, func() (core.StoredObject, error) {
		return c.store.Get(ctx, objectType, objectID)
	})
}

// BatchCreate never fails as a whole; compare the result length with the
// input to detect skipped items.
func (c *Client) BatchCreate(ctx context.Context, objectType string, items []core.Data) *Future[[]core.StoredObject] {
	return submit(c, log.OpBatch, func() ([]core.StoredObject, error) {
		return c.store.BatchCreate(ctx, objectType, items), nil
	})
}

// SearchObjects matches any field when field is empty.
func (c *Client) SearchObjects(ctx context.Context, objectType, query, field string) *Future[store.ListResult] {
	return submit(c, log.OpSearch, func() (store.ListResult, error) {
		return c.store.Search(ctx, objectType, query, field)
	})
}

func (c *Client) ClearCollection(ctx context.Context, objectType string) *Future[store.ClearResult] {
	return submit(c, log.OpClear, func() (store.ClearResult, error) {
		return c.store.Clear(ctx, objectType), nil
	})
}

func (c *Client) ExportAll(ctx context.Context) *Future[store.Snapshot] {
	return submit(c, log.OpExport, func() (store.Snapshot, error) {
		return c.store.Export(ctx)
	})
}

func (c *Client) ImportAll(ctx context.Context, raw []byte) *Future[struct{}] {
	return submit(c, log.OpImport, func() (struct{}, error) {
		return struct{}{}, c.store.Import(ctx, raw)
	})
}

func (c *Client) ExportCollection(ctx context.Context, objectType string) *Future[[]core.StoredObject] {
	return submit(c, log.OpExport, func() ([]core.StoredObject, error) {
		return c.store.ExportCollection(ctx, objectType)
	})
}

// ImportCollection replaces one type's collection with raw, a JSON array of
// stored objects as ExportCollection returns them.
func (c *Client) ImportCollection(ctx context.Context, objectType string, raw []byte) *Future[struct{}] {
	return submit(c, log.OpImport, func() (struct{}, error) {
		var objs []core.StoredObject
		if err := json.Unmarshal(raw, &objs); err != nil {
			return struct{}{}, &store.ImportError{Err: err}
		}
		if objs == nil {
			return struct{}{}, &store.ImportError{Err: errors.New("collection is not an array")}
		}
		return struct{}{}, c.store.ImportCollection(ctx, objectType, objs)
	})
}
