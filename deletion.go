package esgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/aneshas/esgate/eventstore"
	"github.com/aneshas/esgate/notify"
)

// Deletion policies
const (
	PolicyHalf = "half"
	PolicyOld  = "old"
)

// DeleteReport describes the outcome of a bulk deletion
type DeleteReport struct {
	// Candidates is the number of active streams considered
	Candidates int

	// NothingToDelete is set when no stream was selected for deletion
	// and no tombstone was attempted
	NothingToDelete bool

	Deleted []string
	Failed  []DeleteFailure
}

// DeleteFailure holds the error a stream failed to be tombstoned with
type DeleteFailure struct {
	Stream string
	Err    error
}

// Error implements error
func (f DeleteFailure) Error() string {
	return fmt.Sprintf("tombstone %s: %v", f.Stream, f.Err)
}

// Unwrap returns the underlying error
func (f DeleteFailure) Unwrap() error { return f.Err }

// DeleteHalf tombstones the first half (rounded down) of the active streams
// in discovery order.
// Every selected stream is attempted even if some fail, in which case the
// failures are also returned joined as an error
func (s *Service) DeleteHalf(ctx context.Context) (DeleteReport, error) {
	candidates, err := s.ListActiveStreams(ctx)
	if err != nil {
		return DeleteReport{}, err
	}

	if len(candidates) == 0 {
		return DeleteReport{NothingToDelete: true}, nil
	}

	report, err := s.tombstoneAll(ctx, PolicyHalf, candidates[:len(candidates)/2])
	report.Candidates = len(candidates)

	return report, err
}

// DeleteOld tombstones every active stream whose first event occurred
// strictly before now minus the configured max age.
// Streams that vanish or can not be read while being inspected are skipped.
// Failures are handled as with DeleteHalf
func (s *Service) DeleteOld(ctx context.Context) (DeleteReport, error) {
	candidates, err := s.ListActiveStreams(ctx)
	if err != nil {
		return DeleteReport{}, err
	}

	threshold := s.now().Add(-s.maxAge)

	var marked []string

	for _, name := range candidates {
		events, err := s.client.ReadStream(ctx, name, eventstore.WithMaxCount(1))
		if err != nil {
			if eventstore.ResultOf(err) != eventstore.ReadNotFound {
				s.logger.Warn("could not read first event, skipping stream", "stream", name, "err", err)
			}

			continue
		}

		if len(events) == 0 {
			continue
		}

		if events[0].OccurredOn.Before(threshold) {
			marked = append(marked, name)
		}
	}

	if len(marked) == 0 {
		return DeleteReport{Candidates: len(candidates), NothingToDelete: true}, nil
	}

	report, err := s.tombstoneAll(ctx, PolicyOld, marked)
	report.Candidates = len(candidates)

	return report, err
}

func (s *Service) tombstoneAll(ctx context.Context, policy string, streams []string) (DeleteReport, error) {
	report := DeleteReport{
		Deleted: make([]string, 0, len(streams)),
	}

	var errs []error

	for _, stream := range streams {
		if err := s.client.TombstoneStream(ctx, stream); err != nil {
			s.logger.Error("failed to delete stream", "stream", stream, "policy", policy, "err", err)

			failure := DeleteFailure{Stream: stream, Err: err}

			report.Failed = append(report.Failed, failure)
			errs = append(errs, failure)

			continue
		}

		s.logger.Info("deleted stream", "stream", stream, "policy", policy)

		report.Deleted = append(report.Deleted, stream)

		s.publish(ctx, notify.TopicStreamDeleted, notify.StreamDeleted{
			Stream:    stream,
			Policy:    policy,
			DeletedAt: s.now().UTC(),
		})
	}

	return report, errors.Join(errs...)
}
