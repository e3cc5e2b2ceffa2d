package memento

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

var uuidType = reflect.TypeFor[uuid.UUID]()

// EventMapping declares, for one concrete event type, where the id of the
// owning aggregate is found. Mappings are query-time descriptors passed to
// RetrieveEvents; the store never keeps them.
//
// Matching is on the exact dynamic type: a mapping for *Withdrawn does not
// apply to Withdrawn values.
type EventMapping struct {
	// EventType is the concrete event type the mapping applies to.
	EventType reflect.Type

	// AggregateIdPropertyName names the field holding the aggregate id. It is
	// informational for mappings built with MapEvent.
	AggregateIdPropertyName string

	accessor func(Event) (uuid.UUID, error)
}

// AggregateID reads the aggregate id from ev. A mapping declared with only
// EventType and AggregateIdPropertyName resolves the field on each call;
// NewMappingTable resolves it once.
func (m EventMapping) AggregateID(ev Event) (uuid.UUID, error) {
	if m.accessor != nil {
		return m.accessor(ev)
	}
	if m.EventType == nil || m.AggregateIdPropertyName == "" {
		return uuid.Nil, &MappingError{EventType: m.EventType, Field: m.AggregateIdPropertyName, Err: ErrInvalidMapping}
	}
	accessor, err := fieldAccessor(m.EventType, m.AggregateIdPropertyName)
	if err != nil {
		return uuid.Nil, err
	}
	return accessor(ev)
}

// MapEvent builds a mapping for event type T using a typed accessor.
//
// Example Usage:
//
//	memento.MapEvent(func(e *Withdrawn) uuid.UUID { return e.AccountID })
func MapEvent[T Event](aggregateID func(T) uuid.UUID) EventMapping {
	eventType := reflect.TypeFor[T]()
	m := EventMapping{EventType: eventType}
	if aggregateID == nil {
		return m
	}
	m.accessor = func(ev Event) (uuid.UUID, error) {
		typed, ok := ev.(T)
		if !ok {
			return uuid.Nil, &MappingError{
				EventType: eventType,
				Err:       fmt.Errorf("cannot read aggregate id from %T", ev),
			}
		}
		return aggregateID(typed), nil
	}
	return m
}

// MapEventField builds a mapping for event type T that reads the named field.
// The field is resolved once, here, rather than on every query: it must be an
// exported uuid.UUID field of T (or of the struct T points to), promoted
// fields included.
func MapEventField[T Event](field string) (EventMapping, error) {
	eventType := reflect.TypeFor[T]()
	accessor, err := fieldAccessor(eventType, field)
	if err != nil {
		return EventMapping{}, err
	}
	return EventMapping{
		EventType:               eventType,
		AggregateIdPropertyName: field,
		accessor:                accessor,
	}, nil
}

func fieldAccessor(eventType reflect.Type, field string) (func(Event) (uuid.UUID, error), error) {
	structType := eventType
	pointer := structType.Kind() == reflect.Pointer
	if pointer {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, &MappingError{EventType: eventType, Field: field, Err: ErrUnknownField}
	}

	sf, ok := structType.FieldByName(field)
	if !ok || !sf.IsExported() {
		return nil, &MappingError{EventType: eventType, Field: field, Err: ErrUnknownField}
	}
	if sf.Type != uuidType {
		return nil, &MappingError{EventType: eventType, Field: field, Err: ErrFieldType}
	}

	index := sf.Index
	return func(ev Event) (uuid.UUID, error) {
		v := reflect.ValueOf(ev)
		if !v.IsValid() || v.Type() != eventType {
			return uuid.Nil, &MappingError{
				EventType: eventType,
				Field:     field,
				Err:       fmt.Errorf("cannot read aggregate id from %T", ev),
			}
		}
		if pointer {
			v = v.Elem()
		}
		// fails when the field is promoted through a nil embedded pointer
		fv, err := v.FieldByIndexErr(index)
		if err != nil {
			return uuid.Nil, &MappingError{EventType: eventType, Field: field, Err: err}
		}
		if fv.CanInterface() {
			return fv.Interface().(uuid.UUID), nil
		}
		// promoted through an unexported embedded struct
		var id uuid.UUID
		for i := range id {
			id[i] = byte(fv.Index(i).Uint())
		}
		return id, nil
	}, nil
}

// MustMapEventField is like MapEventField but panics on error. It is meant
// for package-level mapping tables.
func MustMapEventField[T Event](field string) EventMapping {
	m, err := MapEventField[T](field)
	if err != nil {
		panic(err)
	}
	return m
}

// MappingTable indexes mappings by event type.
type MappingTable map[reflect.Type]EventMapping

// NewMappingTable validates mappings and indexes them by type. A mapping
// with only EventType and AggregateIdPropertyName set has its field resolved
// here, failing with ErrUnknownField or ErrFieldType. It also fails on a
// mapping with neither a field name nor an accessor, and on duplicate types.
func NewMappingTable(mappings []EventMapping) (MappingTable, error) {
	table := make(MappingTable, len(mappings))
	for _, m := range mappings {
		if m.EventType == nil {
			return nil, &MappingError{Field: m.AggregateIdPropertyName, Err: ErrInvalidMapping}
		}
		if m.accessor == nil {
			if m.AggregateIdPropertyName == "" {
				return nil, &MappingError{EventType: m.EventType, Err: ErrInvalidMapping}
			}
			accessor, err := fieldAccessor(m.EventType, m.AggregateIdPropertyName)
			if err != nil {
				return nil, err
			}
			m.accessor = accessor
		}
		if _, exists := table[m.EventType]; exists {
			return nil, &MappingError{EventType: m.EventType, Field: m.AggregateIdPropertyName, Err: ErrDuplicateMapping}
		}
		table[m.EventType] = m
	}
	return table, nil
}

// Lookup returns the mapping for the dynamic type of ev.
func (t MappingTable) Lookup(ev Event) (EventMapping, bool) {
	m, ok := t[reflect.TypeOf(ev)]
	return m, ok
}
