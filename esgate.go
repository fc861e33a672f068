// Package esgate forwards JSON payloads to an event store and manages the
// resulting streams: every payload is written to a brand new stream,
// streams still alive can be discovered through the $streams system stream
// and discovered streams can be tombstoned in bulk, either half of them
// or the ones older than a configured age
package esgate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aneshas/esgate/eventstore"
	"github.com/aneshas/esgate/notify"
)

const (
	// StreamPrefix prefixes the name of every stream written by the service
	StreamPrefix = "payments-order-"

	// EventType is the type of every event written by the service
	EventType = "payments-event"

	// DefaultMaxAge is the age after which DeleteOld tombstones a stream
	DefaultMaxAge = 12 * time.Hour
)

var _ Client = (*eventstore.EventStore)(nil)

// Client represents the event store operations the service relies on.
// This package offers eventstore.EventStore as Client implementation
type Client interface {
	AppendStream(ctx context.Context, stream string, expectedVer int, events []eventstore.EventToStore) (int, error)
	ReadStream(ctx context.Context, stream string, opts ...eventstore.ReadOpt) ([]eventstore.StoredEvent, error)
	TombstoneStream(ctx context.Context, stream string) error
}

// Cfg represents service configuration
type Cfg struct {
	Logger    *slog.Logger
	Publisher notify.Publisher
	Clock     func() time.Time
	MaxAge    time.Duration
}

// Option represents service configuration option
type Option func(Cfg) Cfg

// WithLogger sets the structured logger used by the service
func WithLogger(logger *slog.Logger) Option {
	return func(cfg Cfg) Cfg {
		cfg.Logger = logger

		return cfg
	}
}

// WithPublisher sets the publisher notified about written events
// and deleted streams
func WithPublisher(p notify.Publisher) Option {
	return func(cfg Cfg) Cfg {
		cfg.Publisher = p

		return cfg
	}
}

// WithClock overrides the source of the current time
func WithClock(now func() time.Time) Option {
	return func(cfg Cfg) Cfg {
		cfg.Clock = now

		return cfg
	}
}

// WithMaxAge sets the age after which DeleteOld tombstones a stream
func WithMaxAge(d time.Duration) Option {
	return func(cfg Cfg) Cfg {
		cfg.MaxAge = d

		return cfg
	}
}

// New constructs a new Service on top of the provided event store client
func New(client Client, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("event store client must be provided")
	}

	cfg := Cfg{
		Logger:    slog.Default(),
		Publisher: &notify.NoopPublisher{},
		Clock:     time.Now,
		MaxAge:    DefaultMaxAge,
	}

	for _, opt := range opts {
		cfg = opt(cfg)
	}

	if cfg.MaxAge <= 0 {
		return nil, fmt.Errorf("max age must be positive")
	}

	return &Service{
		client:    client,
		logger:    cfg.Logger,
		publisher: cfg.Publisher,
		now:       cfg.Clock,
		maxAge:    cfg.MaxAge,
	}, nil
}

// Service writes, discovers and deletes streams
type Service struct {
	client    Client
	logger    *slog.Logger
	publisher notify.Publisher
	now       func() time.Time
	maxAge    time.Duration
}

func (s *Service) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish notification", "topic", topic, "err", err)
	}
}
