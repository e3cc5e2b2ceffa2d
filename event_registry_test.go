package memento

import (
	"errors"
	"slices"
	"strconv"
	"sync"
	"testing"
)

type registryEvent struct {
	DomainEvent
	Name string
}

type namedRegistryEvent struct {
	DomainEvent
}

func (e *namedRegistryEvent) EventType() string { return "Named" }

// withCleanRegistry swaps in an empty registry for the duration of the test.
func withCleanRegistry(t *testing.T) {
	t.Helper()
	registryMu.Lock()
	saved := registry
	registry = map[string]func() Event{}
	registryMu.Unlock()

	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})
}

func TestRegisterEvent(t *testing.T) {
	withCleanRegistry(t)

	t.Run("register and create new instance", func(t *testing.T) {
		RegisterEvent(func() Event { return &registryEvent{} })

		ev, err := NewEventByName("*memento.registryEvent")
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := ev.(*registryEvent); !ok {
			t.Fatalf("expected *registryEvent, got %T", ev)
		}

		// Each call returns a new instance
		ev2, _ := NewEventByName("*memento.registryEvent")
		if ev == ev2 {
			t.Fatal("factory returned same instance twice")
		}
	})

	t.Run("uses EventType when present", func(t *testing.T) {
		RegisterEvent(func() Event { return &namedRegistryEvent{} })

		if _, err := NewEventByName("Named"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("panic on duplicate registration", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic on duplicate registration")
			}
		}()
		RegisterEvent(func() Event { return &registryEvent{} })
	})

	t.Run("panic on nil factory", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic on nil factory")
			}
		}()
		RegisterEvent(nil)
	})
}

func TestRegisterEventByName(t *testing.T) {
	withCleanRegistry(t)

	t.Run("register by custom name", func(t *testing.T) {
		RegisterEventByName("Custom", func() Event { return &registryEvent{} })

		ev, err := NewEventByName("Custom")
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := ev.(*registryEvent); !ok {
			t.Fatalf("expected *registryEvent, got %T", ev)
		}
	})

	t.Run("panic on nil factory", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic on nil factory")
			}
		}()
		RegisterEventByName("NilFactory", nil)
	})

	t.Run("panic on factory returning typed nil", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic when factory returns nil")
			}
		}()
		RegisterEventByName("TypedNil", func() Event {
			var ev *registryEvent
			return ev
		})
	})
}

func TestNewEventByNameErrors(t *testing.T) {
	withCleanRegistry(t)
	registryMu.Lock()
	registry["NilFactory"] = func() Event { return nil }
	registryMu.Unlock()

	_, err := NewEventByName("NonExistent")
	if !errors.Is(err, ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}

	if _, err := NewEventByName("NilFactory"); err == nil {
		t.Fatal("expected error for factory returning nil")
	}
}

func TestRegistryConcurrencySafety(t *testing.T) {
	withCleanRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "Evt" + strconv.Itoa(i)
			RegisterEventByName(name, func() Event { return &registryEvent{Name: name} })
		}(i)
	}
	wg.Wait()

	for i := 0; i < 100; i++ {
		name := "Evt" + strconv.Itoa(i)
		ev, err := NewEventByName(name)
		if err != nil {
			t.Fatalf("event %s not registered: %v", name, err)
		}
		if ev.(*registryEvent).Name != name {
			t.Fatalf("event %s mismatch", name)
		}
	}

	if got := len(RegisteredEvents()); got != 100 {
		t.Fatalf("expected 100 registered events, got %d", got)
	}
}

func TestRegisteredEvents_Sorted(t *testing.T) {
	withCleanRegistry(t)

	for _, name := range []string{"withdrawn", "deposited", "opened", "closed"} {
		RegisterEventByName(name, func() Event { return &registryEvent{} })
	}

	got := RegisteredEvents()
	want := []string{"closed", "deposited", "opened", "withdrawn"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRegisterEvent_CallsFactoryOnce(t *testing.T) {
	withCleanRegistry(t)

	calls := 0
	RegisterEvent(func() Event {
		calls++
		return &registryEvent{}
	})

	if calls != 1 {
		t.Fatalf("expected the factory to be called once, got %d", calls)
	}
}
