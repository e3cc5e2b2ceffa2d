package memento

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// eventRecord is the wire form of an event. The DomainEvent base travels in
// the envelope; Data holds the payload fields of the concrete type.
type eventRecord struct {
	Type       string              `json:"type"`
	ID         uuid.UUID           `json:"id"`
	TimelineID string              `json:"timelineId,omitempty"`
	TimeStamp  time.Time           `json:"timeStamp"`
	Data       jsoniter.RawMessage `json:"data"`
}

// MarshalEvent encodes ev as a self-describing JSON record. The record's type
// is EventName(ev), which is also the key UnmarshalEvent resolves it by.
func MarshalEvent(ev Event) ([]byte, error) {
	if IsNil(ev) {
		return nil, NilArgument("event")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", EventName(ev), err)
	}

	rec := eventRecord{
		Type:      EventName(ev),
		ID:        ev.EventID(),
		TimeStamp: ev.OccurredAt(),
		Data:      data,
	}
	if ev.TimelineID() != uuid.Nil {
		rec.TimelineID = ev.TimelineID().String()
	}
	return json.Marshal(rec)
}

// UnmarshalEvent decodes a record produced by MarshalEvent. The event type must
// have been registered with RegisterEvent or RegisterEventByName; otherwise
// the error wraps ErrUnknownEventType.
func UnmarshalEvent(b []byte) (Event, error) {
	var rec eventRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode event record: %w", err)
	}

	base := DomainEvent{id: rec.ID, timeStamp: rec.TimeStamp}
	if rec.TimelineID != "" {
		timeline, err := uuid.Parse(rec.TimelineID)
		if err != nil {
			return nil, fmt.Errorf("decode %s timeline: %w", rec.Type, err)
		}
		base.timeline = timeline
	}

	ev, err := NewEventByName(rec.Type)
	if err != nil {
		return nil, err
	}

	// factories may return values; decode through a pointer either way
	v := reflect.ValueOf(ev)
	target := v
	if v.Kind() != reflect.Pointer {
		target = reflect.New(v.Type())
		target.Elem().Set(v)
	}

	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, target.Interface()); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", rec.Type, err)
		}
	}
	if r, ok := target.Interface().(restorer); ok {
		r.restore(base)
	}

	if v.Kind() != reflect.Pointer {
		return target.Elem().Interface().(Event), nil
	}
	return ev, nil
}
