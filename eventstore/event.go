package eventstore

import "time"

// EventToStore represents an event that is to be stored in the event store
type EventToStore struct {
	Type string
	Data []byte

	// Optional
	ID         string
	Meta       map[string]string
	OccurredOn time.Time
}

// StoredEvent holds stored event data and meta data
type StoredEvent struct {
	Data []byte
	Meta map[string]string

	ID            string
	Sequence      uint64
	Type          string
	StreamID      string
	StreamVersion int
	OccurredOn    time.Time
}
