package trace

import (
	"io"

	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
)

// EventSource is a trace of already decoded events held in memory
type EventSource struct {
	name   string
	events []ft.Event
}

// NewEventSource creates an in-memory trace
func NewEventSource(name string, events ...ft.Event) *EventSource {
	return &EventSource{name: name, events: events}
}

// Name returns the name of the trace
func (s *EventSource) Name() string {
	return s.name
}

// Open returns a stream over the events
func (s *EventSource) Open() (Stream, error) {
	return &eventStream{events: s.events}, nil
}

type eventStream struct {
	events []ft.Event
	pos    int
}

func (s *eventStream) Next() (ft.Event, error) {
	if s.pos >= len(s.events) {
		return ft.Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

func (s *eventStream) Close() error {
	return nil
}
