package fixtures

import (
	"context"
	"io"

	"github.com/terraskye/memento"
)

// EmptyIterator returns an iterator that yields no events.
func EmptyIterator() *memento.Iterator[memento.Event] {
	return memento.NewIteratorFunc(func(ctx context.Context) (memento.Event, error) {
		return nil, io.EOF
	})
}

// FailingIterator returns an iterator that fails with the given error.
func FailingIterator(err error) *memento.Iterator[memento.Event] {
	return memento.NewIteratorFunc(func(ctx context.Context) (memento.Event, error) {
		return nil, err
	})
}

// FailAfterNIterator returns an iterator that yields n events, then fails.
func FailAfterNIterator(events []memento.Event, n int, err error) *memento.Iterator[memento.Event] {
	idx := 0
	return memento.NewIteratorFunc(func(ctx context.Context) (memento.Event, error) {
		if idx >= n {
			return nil, err
		}
		if idx >= len(events) {
			return nil, io.EOF
		}
		ev := events[idx]
		idx++
		return ev, nil
	})
}
