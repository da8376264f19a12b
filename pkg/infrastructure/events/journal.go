package events

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type subscription struct {
	types   map[string]bool
	handler Handler
}

// DefaultCapacity is the number of events a journal retains unless told otherwise
const DefaultCapacity = 10000

// Journal keeps the most recent events in process, oldest evicted first once
// the capacity is reached. Stream versions keep counting across evictions.
// Handlers run synchronously after the event is stored, in subscription order,
// outside the journal lock. A failing handler is logged and does not fail the
// publish.
type Journal struct {
	mu      sync.RWMutex
	ring    []Event
	head    int
	size    int
	evicted int
	streams map[string]int
	subs    []subscription
	logger  logrus.FieldLogger
}

func NewJournal(logger logrus.FieldLogger) *Journal {
	return NewBoundedJournal(logger, DefaultCapacity)
}

// NewBoundedJournal retains at most capacity events. capacity below 1 uses DefaultCapacity.
func NewBoundedJournal(logger logrus.FieldLogger, capacity int) *Journal {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Journal{
		ring:    make([]Event, capacity),
		streams: make(map[string]int),
		logger:  logger.WithField("module", "events"),
	}
}

var _ Publisher = (*Journal)(nil)

func (j *Journal) Publish(event Event) error {
	j.mu.Lock()
	j.streams[event.Stream]++
	event.Version = j.streams[event.Stream]
	j.append(event)

	var handlers []Handler
	for _, sub := range j.subs {
		if len(sub.types) == 0 || sub.types[event.Type] {
			handlers = append(handlers, sub.handler)
		}
	}
	j.mu.Unlock()

	for _, h := range handlers {
		if err := h(event); err != nil {
			j.logger.WithFields(logrus.Fields{
				"event":  event.Type,
				"stream": event.Stream,
			}).WithError(err).Warn("event handler failed")
		}
	}
	return nil
}

// Subscribe registers handler for the given types, or for every event when none are given
func (j *Journal) Subscribe(handler Handler, eventTypes ...string) {
	sub := subscription{types: make(map[string]bool, len(eventTypes)), handler: handler}
	for _, t := range eventTypes {
		sub.types[t] = true
	}

	j.mu.Lock()
	j.subs = append(j.subs, sub)
	j.mu.Unlock()
}

// Stream returns the events of one stream starting at fromVersion
func (j *Journal) Stream(stream string, fromVersion int) []Event {
	return j.filter(func(e Event) bool {
		return e.Stream == stream && e.Version >= fromVersion
	})
}

// OfType returns every event of one type in publish order
func (j *Journal) OfType(eventType string) []Event {
	return j.filter(func(e Event) bool { return e.Type == eventType })
}

// Len returns the number of events retained
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.size
}

// Evicted returns how many events were dropped to stay within capacity
func (j *Journal) Evicted() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.evicted
}

// append stores event in the ring. Callers hold mu.
func (j *Journal) append(event Event) {
	if j.size < len(j.ring) {
		j.ring[(j.head+j.size)%len(j.ring)] = event
		j.size++
		return
	}
	j.ring[j.head] = event
	j.head = (j.head + 1) % len(j.ring)
	j.evicted++
}

func (j *Journal) filter(keep func(Event) bool) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	matched := make([]Event, 0)
	for i := 0; i < j.size; i++ {
		e := j.ring[(j.head+i)%len(j.ring)]
		if keep(e) {
			matched = append(matched, e)
		}
	}
	return matched
}

// LogTo returns a handler that writes each event as a structured warning
func LogTo(logger logrus.FieldLogger) Handler {
	return func(e Event) error {
		logger.WithFields(logrus.Fields{
			"event":   e.Type,
			"stream":  e.Stream,
			"payload": e.Payload,
		}).Warn("quality event")
		return nil
	}
}
