package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"nosam/internal/core"
	"nosam/internal/log"
)

// Snapshot maps collection names ("users", "subscriptions", ...) to their
// full contents.
type Snapshot map[string][]core.StoredObject

// Export returns every collection present in the medium. The users and
// subscriptions collections are always included.
func (s *Store) Export(ctx context.Context) (Snapshot, error) {
	keys, err := s.medium.Keys(ctx)
	if err != nil {
		return nil, &StorageError{Op: "keys", Key: KeyPrefix + "*", Err: err}
	}
	names := []string{CollectionName(core.TypeUser), CollectionName(core.TypeSubscription)}
	for _, k := range keys {
		if k == InitializedKey || !strings.HasPrefix(k, KeyPrefix) {
			continue
		}
		if name := strings.TrimPrefix(k, KeyPrefix); !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	snap := make(Snapshot, len(names))
	for _, name := range names {
		key := KeyPrefix + name
		unlock := s.lock(key)
		objs, err := s.load(ctx, key)
		unlock()
		if err != nil {
			return nil, err
		}
		snap[name] = objs
	}
	return snap, nil
}

// ExportCollection returns the full contents of one type's collection.
func (s *Store) ExportCollection(ctx context.Context, objectType string) ([]core.StoredObject, error) {
	res, err := s.List(ctx, objectType, math.MaxInt, true)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Import parses raw as a Snapshot and applies it with ImportSnapshot.
func (s *Store) Import(ctx context.Context, raw []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return &ImportError{Err: err}
	}
	if snap == nil {
		return &ImportError{Err: errors.New("snapshot is not an object")}
	}
	return s.ImportSnapshot(ctx, snap)
}

// ImportSnapshot replaces each named collection wholesale. Records are not
// validated. Every collection is encoded before the first write.
func (s *Store) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	names := make([]string, 0, len(snap))
	for name := range snap {
		if strings.TrimSpace(name) == "" || KeyPrefix+name == InitializedKey {
			return &ImportError{Err: fmt.Errorf("invalid collection name %q", name)}
		}
		names = append(names, name)
	}
	slices.Sort(names)

	encoded := make(map[string][]byte, len(names))
	for _, name := range names {
		objs := snap[name]
		if objs == nil {
			objs = []core.StoredObject{}
		}
		raw, err := json.Marshal(objs)
		if err != nil {
			return &StorageError{Op: "encode", Key: KeyPrefix + name, Err: err}
		}
		encoded[name] = raw
	}

	if err := s.writeLocked(ctx, names, encoded); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Imported snapshot",
		log.FieldOperation, log.OpImport,
		log.FieldCount, len(names))
	for _, name := range names {
		s.notify(ctx, ActionImported, strings.TrimSuffix(name, "s"), "")
	}
	return nil
}

// writeLocked writes every encoded collection while holding all of their
// locks. Locks are taken in sorted name order. When a write fails, the
// collections already written are put back to their previous contents.
func (s *Store) writeLocked(ctx context.Context, names []string, encoded map[string][]byte) error {
	for _, name := range names {
		defer s.lock(KeyPrefix + name)()
	}

	prev := make(map[string]storedValue, len(names))
	for _, name := range names {
		key := KeyPrefix + name
		raw, found, err := s.medium.Get(ctx, key)
		if err != nil {
			return &StorageError{Op: "read", Key: key, Err: err}
		}
		prev[key] = storedValue{raw: raw, found: found}
	}

	for i, name := range names {
		key := KeyPrefix + name
		err := s.medium.Set(ctx, key, encoded[name])
		if s.cache != nil {
			s.cache.Delete(key)
		}
		if err != nil {
			s.rollback(ctx, names[:i], prev)
			return &StorageError{Op: "write", Key: key, Err: err}
		}
	}
	return nil
}

// storedValue is a medium value as it was before an import touched it.
type storedValue struct {
	raw   []byte
	found bool
}

// rollback puts the named collections back to their values in prev. Restore
// failures are logged; callers still see the original write error.
func (s *Store) rollback(ctx context.Context, names []string, prev map[string]storedValue) {
	for _, name := range names {
		key := KeyPrefix + name
		var err error
		if p := prev[key]; p.found {
			err = s.medium.Set(ctx, key, p.raw)
		} else {
			err = s.medium.Delete(ctx, key)
		}
		if s.cache != nil {
			s.cache.Delete(key)
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to roll back import",
				log.FieldOperation, log.OpImport,
				log.FieldCollection, name,
				log.FieldError, err)
		}
	}
}

// ImportCollection replaces one type's collection.
func (s *Store) ImportCollection(ctx context.Context, objectType string, objs []core.StoredObject) error {
	if err := validType(objectType); err != nil {
		return &ImportError{Err: err}
	}
	return s.ImportSnapshot(ctx, Snapshot{CollectionName(objectType): objs})
}
