// Package journal writes dispatched events as JSON lines and reads them back.
//
// A journal is an audit trail of what a store dispatched, one codec record
// per line. Decoding requires the event types to be registered with
// memento.RegisterEvent.
package journal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/terraskye/memento"
)

const maxLineSize = 1 << 20

var _ memento.EventDispatcher = (*Writer)(nil)

// Writer is an EventDispatcher appending each event to w as one JSON line.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	filter map[string]struct{}
}

// NewWriter creates a Writer. When eventNames are given only events with one
// of those names (see memento.EventName) are written.
func NewWriter(w io.Writer, eventNames ...string) (*Writer, error) {
	if memento.IsNil(w) {
		return nil, memento.NilArgument("w")
	}

	filter := make(map[string]struct{}, len(eventNames))
	for _, name := range eventNames {
		filter[name] = struct{}{}
	}
	return &Writer{w: w, filter: filter}, nil
}

// Dispatch implements memento.EventDispatcher.
func (j *Writer) Dispatch(ctx context.Context, ev memento.Event) error {
	if len(j.filter) > 0 {
		if _, ok := j.filter[memento.EventName(ev)]; !ok {
			return nil
		}
	}

	data, err := memento.MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.Write(data); err != nil {
		return fmt.Errorf("journal: write %s: %w", ev.EventID(), err)
	}
	return nil
}

// NewReader returns an iterator decoding the journal in r line by line.
// Blank lines are skipped; a malformed line stops the iteration with an
// error naming the line.
func NewReader(r io.Reader) *memento.Iterator[memento.Event] {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0

	return memento.NewIteratorFunc(func(ctx context.Context) (memento.Event, error) {
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return nil, fmt.Errorf("journal: %w", err)
				}
				return nil, io.EOF
			}
			line++

			b := scanner.Bytes()
			if len(b) == 0 {
				continue
			}
			ev, err := memento.UnmarshalEvent(b)
			if err != nil {
				return nil, fmt.Errorf("journal: line %d: %w", line, err)
			}
			return ev, nil
		}
	})
}
