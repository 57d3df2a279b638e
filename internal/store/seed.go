package store

import (
	"context"

	"nosam/internal/core"
	"nosam/internal/log"
)

// DefaultUsers are created once when the store is first opened.
var DefaultUsers = []core.User{
	{Username: "admin", Password: "123456", Email: "admin@company.com", Company: "科技有限公司", Role: "管理员"},
	{Username: "user1", Password: "password", Email: "user1@company.com", Company: "科技有限公司", Role: "普通用户"},
}

// seed writes empty user and subscription collections and the default
// users, then sets the initialized marker. A set marker skips seeding.
func (s *Store) seed(ctx context.Context) error {
	_, ok, err := s.medium.Get(ctx, InitializedKey)
	if err != nil {
		return &StorageError{Op: "read", Key: InitializedKey, Err: err}
	}
	if ok {
		return nil
	}

	for _, t := range []string{core.TypeUser, core.TypeSubscription} {
		key := CollectionKey(t)
		unlock := s.lock(key)
		err := s.save(ctx, key, nil)
		unlock()
		if err != nil {
			return err
		}
	}

	now := s.timestamp()
	users := make([]core.StoredObject, 0, len(DefaultUsers))
	for _, u := range DefaultUsers {
		users = append(users, core.StoredObject{
			ObjectID:   s.newID(now),
			ObjectType: core.TypeUser,
			ObjectData: u.ToData(),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	key := CollectionKey(core.TypeUser)
	unlock := s.lock(key)
	err = s.save(ctx, key, users)
	unlock()
	if err != nil {
		return err
	}

	if err := s.medium.Set(ctx, InitializedKey, []byte("true")); err != nil {
		return &StorageError{Op: "write", Key: InitializedKey, Err: err}
	}
	s.logger.InfoContext(ctx, "Seeded store",
		log.FieldOperation, log.OpSeed,
		log.FieldCount, len(users))
	return nil
}
