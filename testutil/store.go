// Package testutil provides an in-memory event store for testing code
// built on top of esgate.Client
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aneshas/esgate/eventstore"
	"github.com/google/uuid"
)

// NewStore constructs an empty in-memory store
func NewStore() *Store {
	return &Store{
		events:       make(map[string][]eventstore.StoredEvent),
		tombstoned:   make(map[string]bool),
		ReadErr:      make(map[string]error),
		TombstoneErr: make(map[string]error),
	}
}

// Store is an in-memory event store mimicking eventstore.EventStore.
// Reads ignore read options and always return the whole stream oldest first
type Store struct {
	mu sync.Mutex

	records    []string
	events     map[string][]eventstore.StoredEvent
	tombstoned map[string]bool
	sequence   uint64

	// ReadErr and TombstoneErr inject errors per stream name,
	// StreamsErr fails reads of $streams
	ReadErr      map[string]error
	TombstoneErr map[string]error
	StreamsErr   error

	// AppendErr fails every append
	AppendErr error

	// Tombstones records every successful tombstone in call order
	Tombstones []string
}

// AppendStream appends events, honouring expectedVer unless it is eventstore.AnyVersion
func (s *Store) AppendStream(_ context.Context, stream string, expectedVer int, events []eventstore.EventToStore) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.AppendErr != nil {
		return 0, s.AppendErr
	}

	if stream == "" || strings.HasPrefix(stream, "$") {
		return 0, fmt.Errorf("invalid stream name %q", stream)
	}

	if s.tombstoned[stream] {
		return 0, eventstore.ErrStreamDeleted
	}

	current := len(s.events[stream])

	if expectedVer != eventstore.AnyVersion && expectedVer != current {
		return 0, eventstore.ErrConcurrencyCheckFailed
	}

	if current == 0 {
		s.records = append(s.records, stream)
	}

	for _, evt := range events {
		s.sequence++
		current++

		id := evt.ID
		if id == "" {
			id = uuid.NewString()
		}

		occurredOn := evt.OccurredOn
		if occurredOn.IsZero() {
			occurredOn = time.Now().UTC()
		}

		s.events[stream] = append(s.events[stream], eventstore.StoredEvent{
			Data:          append([]byte(nil), evt.Data...),
			Meta:          evt.Meta,
			ID:            id,
			Sequence:      s.sequence,
			Type:          evt.Type,
			StreamID:      stream,
			StreamVersion: current,
			OccurredOn:    occurredOn,
		})
	}

	return current, nil
}

// ReadStream returns every event of the stream
func (s *Store) ReadStream(_ context.Context, stream string, _ ...eventstore.ReadOpt) ([]eventstore.StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stream == eventstore.StreamsStream {
		if s.StreamsErr != nil {
			return nil, s.StreamsErr
		}

		out := make([]eventstore.StoredEvent, len(s.records))

		for i, name := range s.records {
			out[i] = eventstore.StoredEvent{
				Data:          []byte("0@" + name),
				ID:            uuid.NewString(),
				Type:          eventstore.StreamCreatedType,
				StreamID:      eventstore.StreamsStream,
				StreamVersion: i + 1,
			}
		}

		return out, nil
	}

	if err, ok := s.ReadErr[stream]; ok {
		return nil, err
	}

	if s.tombstoned[stream] {
		return nil, eventstore.ErrStreamDeleted
	}

	events, ok := s.events[stream]
	if !ok {
		return nil, eventstore.ErrStreamNotFound
	}

	return append([]eventstore.StoredEvent(nil), events...), nil
}

// TombstoneStream deletes the stream for good
func (s *Store) TombstoneStream(_ context.Context, stream string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.TombstoneErr[stream]; ok {
		return err
	}

	if s.tombstoned[stream] {
		return eventstore.ErrStreamDeleted
	}

	s.tombstoned[stream] = true
	delete(s.events, stream)

	s.Tombstones = append(s.Tombstones, stream)

	return nil
}

// AddRecord appends a raw record for name to $streams without writing any
// event, eg. to simulate duplicate directory entries
func (s *Store) AddRecord(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, name)
}

// Events returns the events currently stored for stream
func (s *Store) Events(stream string) []eventstore.StoredEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]eventstore.StoredEvent(nil), s.events[stream]...)
}

// Streams returns every stream that holds events, in creation order
func (s *Store) Streams() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string

	for _, name := range s.records {
		if _, ok := s.events[name]; ok && !s.tombstoned[name] {
			out = append(out, name)
		}
	}

	return out
}

// Seed writes a single event occurred at occurredOn to each stream
func Seed(t *testing.T, s *Store, occurredOn time.Time, streams ...string) {
	t.Helper()

	for _, stream := range streams {
		_, err := s.AppendStream(context.Background(), stream, eventstore.AnyVersion, []eventstore.EventToStore{
			{
				Type:       "seeded",
				Data:       []byte(`{}`),
				OccurredOn: occurredOn,
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}
