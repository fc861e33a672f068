package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultCloseTimeout bounds how long Close waits for pending notifications
const DefaultCloseTimeout = 5 * time.Second

// NATSPublisher publishes JSON notifications to NATS subjects
type NATSPublisher struct {
	conn    *nats.Conn
	closed  chan struct{}
	timeout time.Duration
}

// NewNATSPublisher connects to NATS at url, reconnecting forever.
// Extra nats options are applied after the defaults, except for the
// closed handler which the publisher owns
func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	p := NATSPublisher{
		closed:  make(chan struct{}),
		timeout: DefaultCloseTimeout,
	}

	options := []nats.Option{
		nats.Name("esgate"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}

	options = append(options, opts...)
	options = append(options, nats.ClosedHandler(func(*nats.Conn) {
		close(p.closed)
	}))

	nc, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	p.conn = nc

	return &p, nil
}

// Publish encodes event as JSON and sends it to topic.
// The message is buffered by the connection, Close delivers whatever is left
func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	return p.conn.Publish(topic, data)
}

// Close flushes buffered notifications to the server, drains the connection
// and waits until it is closed
func (p *NATSPublisher) Close() error {
	if p.conn.IsClosed() {
		return nil
	}

	if err := p.conn.FlushTimeout(p.timeout); err != nil {
		p.conn.Close()

		return fmt.Errorf("flushing notifications: %w", err)
	}

	if err := p.conn.Drain(); err != nil {
		return fmt.Errorf("draining connection: %w", err)
	}

	select {
	case <-p.closed:
		return nil

	case <-time.After(p.timeout):
		p.conn.Close()

		return fmt.Errorf("timed out closing NATS connection")
	}
}
