package store

import (
	"context"
	"time"

	"nosam/internal/log"
)

type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionCleared  Action = "cleared"
	ActionImported Action = "imported"
)

// Event describes one committed change. ObjectID is empty for
// collection-wide actions.
type Event struct {
	Action     Action    `json:"action"`
	ObjectType string    `json:"object_type"`
	ObjectID   string    `json:"object_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier receives change events after the write is persisted.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e Event) error

func (f NotifierFunc) Notify(ctx context.Context, e Event) error { return f(ctx, e) }

// notify is best effort: the change is already committed.
func (s *Store) notify(ctx context.Context, action Action, objectType, objectID string) {
	if s.notifier == nil {
		return
	}
	e := Event{Action: action, ObjectType: objectType, ObjectID: objectID, Timestamp: s.timestamp()}
	if err := s.notifier.Notify(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change event",
			log.FieldOperation, string(action),
			log.FieldObjectType, objectType,
			log.FieldObjectID, objectID,
			log.FieldError, err)
	}
}
