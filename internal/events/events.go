package events

import (
	"context"
	"sync"
	"time"
)

// Event types emitted by the identity and catalogue services.
const (
	TypeUserRegistered           = "user.registered"
	TypeInstructorRequestOpened  = "instructor_request.opened"
	TypeInstructorRequestDecided = "instructor_request.decided"
	TypeCoursePublished          = "course.published"
)

// Event is a domain fact published after the owning transaction commits.
type Event struct {
	Type       string
	Key        string
	Payload    map[string]any
	OccurredAt time.Time
}

// Publisher delivers events to a downstream bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory. Useful in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a snapshot of recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events matching eventType.
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, evt := range r.Events() {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}
