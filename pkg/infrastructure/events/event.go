package events

import (
	"time"
)

// Event is an immutable fact recorded by the core operations. Version is the
// position within Stream, assigned by the journal on publish.
type Event struct {
	Type    string    `json:"type"`
	Stream  string    `json:"stream"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
	Version int       `json:"version"`
}

// NewEvent creates an event stamped at the given time
func NewEvent(eventType, stream string, payload any, at time.Time) Event {
	return Event{Type: eventType, Stream: stream, Payload: payload, At: at}
}

// Publisher is the write side consumed by services
type Publisher interface {
	Publish(event Event) error
}

// Handler reacts to a published event
type Handler func(Event) error

// Publish sends event to p. A nil publisher drops the event.
func Publish(p Publisher, event Event) error {
	if p == nil {
		return nil
	}
	return p.Publish(event)
}
