package memento

import (
	"fmt"
	"sort"
	"sync"
)

var (
	// registry maps event names to their factory functions.
	// Each factory must return a new instance of a concrete Event type.
	registry = map[string]func() Event{}

	registryMu sync.RWMutex

	// RegisterEvent registers an Event type under EventName of the instance
	// the factory returns.
	//
	// Panics:
	//   - If the factory function is nil.
	//   - If the factory returns nil.
	//   - If an event with the same name is already registered.
	//
	// Example Usage:
	//   RegisterEvent(func() Event { return &Deposited{} })
	RegisterEvent func(fn func() Event) = func(fn func() Event) {
		if fn == nil {
			panic("cannot register nil factory")
		}
		ev := fn()
		if IsNil(ev) {
			panic("factory returned nil event")
		}
		registerEvent(EventName(ev), fn, ev)
	}

	// RegisterEventByName registers an Event type under a custom name, e.g. to
	// keep decoding old records after a type was renamed.
	//
	// Panics under the same conditions as RegisterEvent.
	RegisterEventByName func(name string, fn func() Event) = func(name string, fn func() Event) {
		if fn == nil {
			panic("cannot register nil factory")
		}
		registerEvent(name, fn, fn())
	}

	// NewEventByName creates a new instance of a registered Event by its name.
	// It fails with ErrUnknownEventType if the name is not registered.
	NewEventByName func(name string) (Event, error) = newEventByName
)

// registerEvent stores fn under name. sample is one product of fn.
func registerEvent(name string, fn func() Event, sample Event) {
	if IsNil(sample) {
		panic(fmt.Sprintf("factory returned nil for event: %s", name))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("event already registered: %s", name))
	}
	registry[name] = fn
}

func newEventByName(name string) (Event, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, name)
	}
	ev := factory()
	if IsNil(ev) {
		return nil, fmt.Errorf("factory returned nil for event: %s", name)
	}
	return ev, nil
}

// RegisteredEvents returns the registered event names, sorted.
func RegisteredEvents() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
