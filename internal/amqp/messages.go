package amqp

import (
	"encoding/json"
	"time"

	"nosam/internal/store"
)

// ObjectEvent announces a change to the object store. It carries only the
// object's coordinates; consumers read the object itself through the API.
type ObjectEvent struct {
	Action     string    `json:"action"`
	ObjectType string    `json:"objectType"`
	ObjectID   string    `json:"objectId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventFromStore converts a store event. A missing timestamp is set to now.
func EventFromStore(e store.Event) ObjectEvent {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return ObjectEvent{
		Action:     string(e.Action),
		ObjectType: e.ObjectType,
		ObjectID:   e.ObjectID,
		Timestamp:  ts,
	}
}

func (m ObjectEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ObjectEventFromJSON(data []byte) (ObjectEvent, error) {
	var msg ObjectEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return ObjectEvent{}, err
	}
	return msg, nil
}
