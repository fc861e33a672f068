package esgate

import (
	"context"
	"fmt"

	"github.com/aneshas/esgate/eventstore"
	"github.com/aneshas/esgate/notify"
	"github.com/google/uuid"
)

// WriteEvent normalizes the payload and appends it as a single event to a
// brand new stream, skipping the concurrency check.
// The name of the stream written to is returned
func (s *Service) WriteEvent(ctx context.Context, payload []byte) (string, error) {
	s.logger.Info("received payload", "bytes", len(payload))

	now := s.now()

	data, err := Normalize(payload, now)
	if err != nil {
		s.logger.Error("failed to write event", "err", err)

		return "", err
	}

	eventID := uuid.New().String()
	stream := StreamPrefix + uuid.New().String()

	s.logger.Info("writing event to stream", "stream", stream, "event_id", eventID)

	ver, err := s.client.AppendStream(
		ctx,
		stream,
		eventstore.AnyVersion,
		[]eventstore.EventToStore{
			{
				Type: EventType,
				Data: data,
				ID:   eventID,
			},
		},
	)
	if err != nil {
		s.logger.Error("failed to write event", "stream", stream, "err", err)

		return "", fmt.Errorf("append to %s: %w", stream, err)
	}

	s.logger.Info("event written successfully to stream", "stream", stream, "version", ver)

	s.publish(ctx, notify.TopicEventWritten, notify.EventWritten{
		Stream:    stream,
		EventID:   eventID,
		EventType: EventType,
		Version:   ver,
		WrittenAt: now.UTC(),
	})

	return stream, nil
}
