package events

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestJournal_PublishAndRead(t *testing.T) {
	logger, _ := test.NewNullLogger()
	journal := NewJournal(logger)
	stream := CCPLogStream(uuid.New())
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := journal.Publish(NewEvent(CCPLogRecordedEvent, stream, nil, at)); err != nil {
			t.Fatalf("Expected publish to succeed: %v", err)
		}
	}
	_ = journal.Publish(NewEvent(OrderCreatedEvent, OrderStream(uuid.New()), nil, at))

	events := journal.Stream(stream, 2)
	if len(events) != 2 {
		t.Fatalf("Expected 2 events from version 2, got %d", len(events))
	}
	if events[0].Version != 2 || events[1].Version != 3 {
		t.Errorf("Expected versions 2 and 3, got %d and %d", events[0].Version, events[1].Version)
	}
	if journal.Len() != 4 {
		t.Errorf("Expected 4 events overall, got %d", journal.Len())
	}
	if created := journal.OfType(OrderCreatedEvent); len(created) != 1 || created[0].Version != 1 {
		t.Errorf("Expected one order event at version 1, got %+v", created)
	}
	if empty := journal.Stream("missing", 1); len(empty) != 0 {
		t.Errorf("Expected no events for unknown stream, got %d", len(empty))
	}
}

func TestJournal_EvictsOldestPastCapacity(t *testing.T) {
	logger, _ := test.NewNullLogger()
	journal := NewBoundedJournal(logger, 3)
	stream := CCPLogStream(uuid.New())
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_ = journal.Publish(NewEvent(CCPLogRecordedEvent, stream, nil, at.Add(time.Duration(i)*time.Minute)))
	}

	if journal.Len() != 3 {
		t.Errorf("Expected 3 retained events, got %d", journal.Len())
	}
	if journal.Evicted() != 2 {
		t.Errorf("Expected 2 evicted events, got %d", journal.Evicted())
	}
	retained := journal.Stream(stream, 1)
	if len(retained) != 3 {
		t.Fatalf("Expected 3 events in stream, got %d", len(retained))
	}
	for i, e := range retained {
		if e.Version != i+3 {
			t.Errorf("Expected version %d at position %d, got %d", i+3, i, e.Version)
		}
	}

	_ = journal.Publish(NewEvent(CCPLogRecordedEvent, stream, nil, at))
	if last := journal.Stream(stream, 6); len(last) != 1 || last[0].Version != 6 {
		t.Errorf("Expected version 6 after eviction, got %+v", last)
	}
}

func TestNewBoundedJournal_DefaultCapacity(t *testing.T) {
	journal := NewBoundedJournal(nil, 0)
	for i := 0; i < DefaultCapacity+1; i++ {
		_ = journal.Publish(NewEvent(OrderCreatedEvent, "orders", nil, time.Time{}))
	}
	if journal.Len() != DefaultCapacity || journal.Evicted() != 1 {
		t.Errorf("Expected %d retained and 1 evicted, got %d and %d", DefaultCapacity, journal.Len(), journal.Evicted())
	}
}

func TestJournal_Subscribers(t *testing.T) {
	logger, hook := test.NewNullLogger()
	journal := NewJournal(logger)

	var seen, all []string
	journal.Subscribe(func(e Event) error {
		seen = append(seen, e.Type)
		return nil
	}, CCPLogDeviationEvent)
	journal.Subscribe(func(e Event) error {
		all = append(all, e.Type)
		return errors.New("handler failed")
	})

	stream := CCPLogStream(uuid.New())
	_ = Publish(journal, NewEvent(CCPLogDeviationEvent, stream, CCPLogDeviation{CCPCode: "CCP-1"}, time.Now()))
	_ = Publish(journal, NewEvent(CCPLogRecordedEvent, stream, nil, time.Now()))

	if len(seen) != 1 || seen[0] != CCPLogDeviationEvent {
		t.Errorf("Expected filtered handler to see only the deviation, got %v", seen)
	}
	if len(all) != 2 {
		t.Errorf("Expected catch-all handler to see 2 events, got %v", all)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Errorf("Expected handler failure to be logged as warning")
	}
}

func TestLogTo(t *testing.T) {
	logger, hook := test.NewNullLogger()
	journal := NewJournal(nil)
	journal.Subscribe(LogTo(logger), ShortageIdentifiedEvent)

	_ = journal.Publish(NewEvent(ShortageIdentifiedEvent, "shortage-RM-FLOUR", ShortageIdentified{MaterialCode: "RM-FLOUR"}, time.Now()))

	entry := hook.LastEntry()
	if entry == nil || entry.Data["event"] != ShortageIdentifiedEvent {
		t.Fatalf("Expected shortage to be logged, got %v", entry)
	}
}

func TestPublish_NilPublisher(t *testing.T) {
	if err := Publish(nil, NewEvent(OrderCreatedEvent, "order-1", nil, time.Now())); err != nil {
		t.Errorf("Expected nil publisher to drop events, got %v", err)
	}
}
