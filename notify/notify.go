// Package notify announces stream changes made through esgate to other
// services
package notify

import (
	"context"
	"time"
)

const (
	// TopicEventWritten is the subject of EventWritten notifications
	TopicEventWritten = "esgate.event.written"

	// TopicStreamDeleted is the subject of StreamDeleted notifications
	TopicStreamDeleted = "esgate.stream.deleted"
)

// Publisher publishes JSON encoded notifications to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// EventWritten is published after an event has been appended to a new stream
type EventWritten struct {
	Stream    string    `json:"stream"`
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Version   int       `json:"version"`
	WrittenAt time.Time `json:"written_at"`
}

// StreamDeleted is published after a stream has been tombstoned
type StreamDeleted struct {
	Stream string `json:"stream"`

	// Policy is the deletion policy that selected the stream, "half" or "old"
	Policy    string    `json:"policy"`
	DeletedAt time.Time `json:"deleted_at"`
}
