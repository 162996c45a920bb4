// Package nats provides a NATS Core transport for replyflow.
package nats

import (
	"context"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/nats-io/nats.go"

	"github.com/drblury/replyflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

// ConnectFactory allows overriding the connection creation for testing.
var ConnectFactory = func(url string, opts ...nats.Option) (*nats.Conn, error) {
	return nats.Connect(url, opts...)
}

func init() {
	Register()
}

// Register registers the NATS transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSCapabilities)
}

// Build creates a new NATS transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	url := cfg.GetNATSURL()
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := ConnectFactory(url, nats.Name("replyflow"))
	if err != nil {
		return nil, err
	}

	logger.Debug("Connected to NATS", watermill.LogFields{"url": url})

	return &Conn{
		nc:     nc,
		logger: logger,
		errs:   make(chan error, 1),
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}

// Conn adapts a core NATS connection to the transport contract. NATS invokes
// subscription callbacks sequentially per subscription, which provides the
// per-subject FIFO the dispatcher relies on.
type Conn struct {
	nc     *nats.Conn
	logger watermill.LoggerAdapter

	mu   sync.Mutex
	subs []*nats.Subscription

	errs chan error
}

func (c *Conn) Subscribe(subject, queue string, handler transport.Handler) error {
	cb := func(m *nats.Msg) {
		err := handler(transport.Message{
			Subject: m.Subject,
			Reply:   m.Reply,
			Data:    m.Data,
		})
		if err != nil {
			c.report(err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = c.nc.QueueSubscribe(subject, queue, cb)
	} else {
		sub, err = c.nc.Subscribe(subject, cb)
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	c.logger.Debug("Subscribed", watermill.LogFields{"subject": subject, "queue": queue})
	return nil
}

func (c *Conn) Publish(address string, data []byte) error {
	return c.nc.Publish(address, data)
}

// Request publishes data to subject and awaits the reply on a private inbox.
func (c *Conn) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	msg, err := c.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

// Run blocks until the context is cancelled, a handler reports an error, or
// the connection closes.
func (c *Conn) Run(ctx context.Context) error {
	closed := c.nc.StatusChanged(nats.CLOSED)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.errs:
		return err
	case <-closed:
		return errors.New("nats connection closed")
	}
}

// Close drains in-flight messages and disconnects. Best effort: a failed
// drain falls back to an immediate close.
func (c *Conn) Close() error {
	if c.nc.IsClosed() {
		return nil
	}
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
	}
	return nil
}

func (c *Conn) report(err error) {
	select {
	case c.errs <- err:
	default:
		// A failure is already pending; Run only needs the first one.
	}
}
