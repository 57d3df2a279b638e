// Package store is a typed-collection object store over a key-value medium.
//
// Each object type is one collection persisted under a single key as a JSON
// array in insertion order. Every call reads the whole collection, changes a
// copy and writes the whole collection back while holding that collection's
// lock, so calls on the same type never interleave.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"nosam/internal/cache"
	"nosam/internal/core"
	"nosam/internal/log"
	"nosam/internal/storage"
)

const (
	KeyPrefix      = "ai_subscription_"
	InitializedKey = KeyPrefix + "initialized"
)

// CollectionName is the plural name a type is persisted and exported under.
func CollectionName(objectType string) string { return objectType + "s" }

// CollectionKey is the medium key holding a type's collection.
func CollectionKey(objectType string) string { return KeyPrefix + CollectionName(objectType) }

type (
	ListResult struct {
		Items   []core.StoredObject `json:"items"`
		Total   int                 `json:"total"`
		HasMore bool                `json:"hasMore"`
	}

	DeleteResult struct {
		Success  bool   `json:"success"`
		ObjectID string `json:"objectId"`
	}

	ClearResult struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}
)

type Store struct {
	medium   storage.Medium
	now      func() time.Time
	newID    IDGenerator
	logger   *log.Logger
	notifier Notifier
	cache    cache.Cache[[]core.StoredObject]

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithIDGenerator(gen IDGenerator) Option { return func(s *Store) { s.newID = gen } }

func WithLogger(l *log.Logger) Option { return func(s *Store) { s.logger = l } }

// WithNotifier sets the receiver of change events.
func WithNotifier(n Notifier) Option { return func(s *Store) { s.notifier = n } }

// WithCache keeps decoded collections in c. The store must be the only
// writer of the medium while a cache is configured.
func WithCache(c cache.Cache[[]core.StoredObject]) Option { return func(s *Store) { s.cache = c } }

// Open wraps medium and seeds it on first use.
func Open(ctx context.Context, medium storage.Medium, opts ...Option) (*Store, error) {
	s := &Store{
		medium: medium,
		now:    time.Now,
		newID:  NewObjectID,
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentStore)

	if err := s.seed(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Store) lock(key string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[key] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// load returns the collection stored at key. Callers hold the key's lock and
// own the returned slice.
func (s *Store) load(ctx context.Context, key string) ([]core.StoredObject, error) {
	if s.cache != nil {
		if objs, ok := s.cache.Get(key); ok {
			return cloneObjects(objs), nil
		}
	}
	raw, ok, err := s.medium.Get(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "read", Key: key, Err: err}
	}
	var objs []core.StoredObject
	if ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &objs); err != nil {
			return nil, &StorageError{Op: "decode", Key: key, Err: err}
		}
	}
	if objs == nil {
		objs = []core.StoredObject{}
	}
	for i := range objs {
		if objs[i].ObjectData == nil {
			objs[i].ObjectData = core.Data{}
		}
	}
	if s.cache != nil {
		s.cache.Set(key, cloneObjects(objs))
	}
	return objs, nil
}

// save persists objs at key. Nothing is written when encoding fails and the
// cache is only refreshed after the medium accepted the write.
func (s *Store) save(ctx context.Context, key string, objs []core.StoredObject) error {
	if objs == nil {
		objs = []core.StoredObject{}
	}
	raw, err := json.Marshal(objs)
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: err}
	}
	if err := s.medium.Set(ctx, key, raw); err != nil {
		if s.cache != nil {
			s.cache.Delete(key)
		}
		return &StorageError{Op: "write", Key: key, Err: err}
	}
	if s.cache != nil {
		s.cache.Set(key, cloneObjects(objs))
	}
	return nil
}

func cloneObjects(objs []core.StoredObject) []core.StoredObject {
	out := make([]core.StoredObject, len(objs))
	for i, o := range objs {
		out[i] = o.Clone()
	}
	return out
}

func validType(objectType string) error {
	if strings.TrimSpace(objectType) == "" {
		return fmt.Errorf("%w: empty object type", core.ErrInvalidData)
	}
	return nil
}

// List returns up to limit objects from the start of the collection. With
// includeData false the items carry only their id.
func (s *Store) List(ctx context.Context, objectType string, limit int, includeData bool) (ListResult, error) {
	if err := validType(objectType); err != nil {
		return ListResult{}, err
	}
	key := CollectionKey(objectType)
	unlock := s.lock(key)
	objs, err := s.load(ctx, key)
	unlock()
	if err != nil {
		return ListResult{}, err
	}

	if limit < 0 {
		limit = 0
	}
	n := min(limit, len(objs))
	items := make([]core.StoredObject, n)
	for i := range n {
		if includeData {
			items[i] = objs[i]
		} else {
			items[i] = core.StoredObject{ObjectID: objs[i].ObjectID}
		}
	}
	return ListResult{Items: items, Total: len(objs), HasMore: len(objs) > limit}, nil
}

// mutate runs fn on the collection of objectType under its lock and
// persists the slice fn returns.
func (s *Store) mutate(ctx context.Context, objectType string, fn func(objs []core.StoredObject) ([]core.StoredObject, error)) error {
	key := CollectionKey(objectType)
	unlock := s.lock(key)
	defer unlock()

	objs, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	next, err := fn(objs)
	if err != nil {
		return err
	}
	return s.save(ctx, key, next)
}

// Create appends a new object to the collection.
func (s *Store) Create(ctx context.Context, objectType string, data core.Data) (core.StoredObject, error) {
	if err := validType(objectType); err != nil {
		return core.StoredObject{}, err
	}
	payload, err := data.Normalize()
	if err != nil {
		return core.StoredObject{}, err
	}

	var obj core.StoredObject
	err = s.mutate(ctx, objectType, func(objs []core.StoredObject) ([]core.StoredObject, error) {
		now := s.timestamp()
		obj = core.StoredObject{
			ObjectID:   s.newID(now),
			ObjectType: objectType,
			ObjectData: payload,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return append(objs, obj), nil
	})
	if err != nil {
		return core.StoredObject{}, err
	}
	s.notify(ctx, ActionCreated, objectType, obj.ObjectID)
	return obj.Clone(), nil
}

// Update merges updates into the object's data and refreshes updatedAt.
func (s *Store) Update(ctx context.Context, objectType, objectID string, updates core.Data) (core.StoredObject, error) {
	if err := validType(objectType); err != nil {
		return core.StoredObject{}, err
	}
	patch, err := updates.Normalize()
	if err != nil {
		return core.StoredObject{}, err
	}

	var obj core.StoredObject
	err = s.mutate(ctx, objectType, func(objs []core.StoredObject) ([]core.StoredObject, error) {
		i := indexOf(objs, objectID)
		if i < 0 {
			return nil, &NotFoundError{ObjectType: objectType, ObjectID: objectID}
		}
		objs[i].ObjectData = objs[i].ObjectData.Merge(patch)
		if now := s.timestamp(); now.After(objs[i].UpdatedAt) {
			objs[i].UpdatedAt = now
		}
		obj = objs[i].Clone()
		return objs, nil
	})
	if err != nil {
		return core.StoredObject{}, err
	}
	s.notify(ctx, ActionUpdated, objectType, objectID)
	return obj, nil
}

// Delete removes the object permanently.
func (s *Store) Delete(ctx context.Context, objectType, objectID string) (DeleteResult, error) {
	if err := validType(objectType); err != nil {
		return DeleteResult{}, err
	}
	err := s.mutate(ctx, objectType, func(objs []core.StoredObject) ([]core.StoredObject, error) {
		i := indexOf(objs, objectID)
		if i < 0 {
			return nil, &NotFoundError{ObjectType: objectType, ObjectID: objectID}
		}
		return append(objs[:i:i], objs[i+1:]...), nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	s.notify(ctx, ActionDeleted, objectType, objectID)
	return DeleteResult{Success: true, ObjectID: objectID}, nil
}

func (s *Store) Get(ctx context.Context, objectType, objectID string) (core.StoredObject, error) {
	if err := validType(objectType); err != nil {
		return core.StoredObject{}, err
	}
	key := CollectionKey(objectType)
	unlock := s.lock(key)
	objs, err := s.load(ctx, key)
	unlock()
	if err != nil {
		return core.StoredObject{}, err
	}
	i := indexOf(objs, objectID)
	if i < 0 {
		return core.StoredObject{}, &NotFoundError{ObjectType: objectType, ObjectID: objectID}
	}
	return objs[i], nil
}

// BatchCreate creates each item in order. Items that fail are logged and
// skipped; the result holds only the objects that were created.
func (s *Store) BatchCreate(ctx context.Context, objectType string, items []core.Data) []core.StoredObject {
	created := make([]core.StoredObject, 0, len(items))
	for i, data := range items {
		obj, err := s.Create(ctx, objectType, data)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping batch item",
				log.FieldOperation, log.OpBatch,
				log.FieldObjectType, objectType,
				"index", i,
				log.FieldError, err)
			continue
		}
		created = append(created, obj)
	}
	return created
}

// Clear empties the collection. Failures are reported in the result.
func (s *Store) Clear(ctx context.Context, objectType string) ClearResult {
	if err := validType(objectType); err != nil {
		return ClearResult{Success: false, Error: err.Error()}
	}
	err := s.mutate(ctx, objectType, func([]core.StoredObject) ([]core.StoredObject, error) {
		return nil, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to clear collection",
			log.FieldOperation, log.OpClear,
			log.FieldObjectType, objectType,
			log.FieldError, err)
		return ClearResult{Success: false, Error: err.Error()}
	}
	s.notify(ctx, ActionCleared, objectType, "")
	return ClearResult{Success: true}
}

func indexOf(objs []core.StoredObject, id string) int {
	for i := range objs {
		if objs[i].ObjectID == id {
			return i
		}
	}
	return -1
}
