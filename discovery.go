package esgate

import (
	"context"
	"fmt"
	"strings"

	"github.com/aneshas/esgate/eventstore"
)

// streamRecordPrefix precedes the stream name in $streams event data
const streamRecordPrefix = "0@"

// ListActiveStreams reads $streams from the start and returns the names of
// streams that have not been deleted, in the order they were created.
// A stream counts as deleted only if probing it reports not found; any other
// probe failure keeps the stream in the list.
// Names are not deduplicated
func (s *Service) ListActiveStreams(ctx context.Context) ([]string, error) {
	names, err := s.streamNames(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]string, 0, len(names))

	for _, name := range names {
		_, err := s.client.ReadStream(ctx, name, eventstore.WithMaxCount(1))

		switch eventstore.ResultOf(err) {
		case eventstore.ReadNotFound:
			continue

		case eventstore.ReadFailed:
			s.logger.Warn("could not probe stream, assuming it is active", "stream", name, "err", err)
		}

		active = append(active, name)
	}

	return active, nil
}

// streamNames recovers stream names out of a single forwards read of $streams
func (s *Service) streamNames(ctx context.Context) ([]string, error) {
	records, err := s.client.ReadStream(ctx, eventstore.StreamsStream)
	if err != nil {
		s.logger.Error("failed to read stream directory", "err", err)

		return nil, fmt.Errorf("read %s: %w", eventstore.StreamsStream, err)
	}

	names := make([]string, 0, len(records))

	for _, record := range records {
		names = append(names, strings.TrimPrefix(string(record.Data), streamRecordPrefix))
	}

	return names, nil
}
