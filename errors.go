package memento

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNilArgument is wrapped by ArgumentError when a required value is nil.
	ErrNilArgument = errors.New("value cannot be nil")

	// ErrUninitializedEvent is wrapped by ArgumentError when an event has no
	// id or timestamp, i.e. it was not built with NewDomainEvent.
	ErrUninitializedEvent = errors.New("event has no id or timestamp")

	// ErrUnknownField means a mapping names a field its event type lacks.
	ErrUnknownField = errors.New("no such exported field")

	// ErrFieldType means a mapped field does not hold a uuid.UUID.
	ErrFieldType = errors.New("field is not a uuid.UUID")

	// ErrInvalidMapping means a mapping has no event type, or neither a field
	// name nor an accessor.
	ErrInvalidMapping = errors.New("mapping has no event type, field or accessor")

	// ErrDuplicateMapping means two mappings were given for one event type.
	ErrDuplicateMapping = errors.New("duplicate mapping for event type")

	// ErrUnknownEventType is returned when decoding an event whose name was
	// never registered.
	ErrUnknownEventType = errors.New("event type not registered")
)

// ArgumentError reports an invalid argument and names the parameter.
type ArgumentError struct {
	Param string
	Err   error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %v", e.Param, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// NilArgument returns an ArgumentError for a nil parameter.
func NilArgument(param string) error {
	return &ArgumentError{Param: param, Err: ErrNilArgument}
}

// MappingError reports an event mapping that cannot resolve an aggregate id.
type MappingError struct {
	EventType reflect.Type
	Field     string
	Err       error
}

func (e *MappingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("event mapping for %v: %v", e.EventType, e.Err)
	}
	return fmt.Sprintf("event mapping for %v field %q: %v", e.EventType, e.Field, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// IsNil reports whether v is nil or an interface holding a nil pointer,
// map, slice, func or channel.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// ErrDuplicateHandler is the panic value wrapped by NewEventGroupProcessor when
// two handlers claim the same event type.
var ErrDuplicateHandler = errors.New("duplicate handler")

// ErrSkippedEvent is returned when a handler cannot handle the event type.
type ErrSkippedEvent struct {
	Event Event
}

func (e ErrSkippedEvent) Error() string {
	return fmt.Sprintf("skipped event of type %T", e.Event)
}
