package notify

import "context"

// NoopPublisher discards every notification, it is used when no NATS url
// is configured
type NoopPublisher struct{}

// Publish does nothing
func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }

// Close does nothing
func (*NoopPublisher) Close() error { return nil }
