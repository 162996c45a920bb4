// Package channel provides an in-memory transport for replyflow built on
// Watermill's gochannel Pub/Sub. It is intended for tests and examples.
package channel

import (
	"context"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/replyflow/internal/runtime/ids"
	"github.com/drblury/replyflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

// ReplyMetadataKey carries the requester's private inbox topic on a request
// message. gochannel has no native reply address, so the transport models it
// as metadata plus a per-request topic.
const ReplyMetadataKey = "replyflow_reply_to"

// GoChannelFactory allows overriding the Pub/Sub creation for testing.
var GoChannelFactory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(cfg, logger)
}

// The gochannel instance stands in for the broker, so it outlives individual
// transports: a restarted service reconnects to the same bus, and requesters
// built while the service was down keep their subscriptions.
var (
	busMu sync.Mutex
	bus   *gochannel.GoChannel
)

func sharedBus(cfg transport.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	busMu.Lock()
	defer busMu.Unlock()
	if bus == nil {
		bus = GoChannelFactory(gochannel.Config{
			OutputChannelBuffer: int64(cfg.GetChannelBufferSize()),
		}, logger)
	}
	return bus
}

// ResetBus closes the shared in-memory bus so the next Build starts fresh.
// Intended for tests.
func ResetBus() {
	busMu.Lock()
	defer busMu.Unlock()
	if bus != nil {
		_ = bus.Close()
		bus = nil
	}
}

func init() {
	Register()
}

// Register registers the channel transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.ChannelCapabilities)
}

// Build creates a new channel transport connected to the shared bus.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	return &Channel{
		bus:    sharedBus(cfg, logger),
		logger: logger,
		errs:   make(chan error, 1),
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}

// Channel is one connection to the shared in-memory bus. Each subscription
// reads its messages on a dedicated goroutine, so one slow subject does not
// stall the others while messages for a single subject stay ordered.
type Channel struct {
	bus    *gochannel.GoChannel
	logger watermill.LoggerAdapter

	mu      sync.Mutex
	cancels []context.CancelFunc
	closed  bool

	errs chan error
}

func (c *Channel) Subscribe(subject, queue string, handler transport.Handler) error {
	// gochannel broadcasts to every subscriber; a queue group is accepted
	// but not load-shared (see ChannelCapabilities).
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("channel transport is closed")
	}
	c.mu.Unlock()

	subCtx, cancel := context.WithCancel(context.Background())
	messages, err := c.bus.Subscribe(subCtx, subject)
	if err != nil {
		cancel()
		return err
	}

	c.mu.Lock()
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()

	go func() {
		for msg := range messages {
			err := handler(transport.Message{
				Subject: subject,
				Reply:   msg.Metadata.Get(ReplyMetadataKey),
				Data:    msg.Payload,
			})
			msg.Ack()
			if err != nil {
				c.report(err)
				return
			}
		}
	}()

	c.logger.Debug("Subscribed", watermill.LogFields{"subject": subject, "queue": queue})
	return nil
}

func (c *Channel) Publish(address string, data []byte) error {
	return c.bus.Publish(address, message.NewMessage(watermill.NewUUID(), data))
}

// Request publishes data to subject and awaits the first reply on a private
// inbox topic.
func (c *Channel) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	inbox := ids.CreateInbox()

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	replies, err := c.bus.Subscribe(subCtx, inbox)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(ReplyMetadataKey, inbox)
	if err := c.bus.Publish(subject, msg); err != nil {
		return nil, err
	}

	select {
	case reply, ok := <-replies:
		if !ok {
			return nil, errors.New("inbox closed before reply")
		}
		reply.Ack()
		return reply.Payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run blocks until the context is cancelled or a handler reports an error.
func (c *Channel) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.errs:
		return err
	}
}

// Close cancels this connection's subscriptions. The shared bus stays up for
// other connections; use ResetBus to tear it down.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	return nil
}

func (c *Channel) report(err error) {
	select {
	case c.errs <- err:
	default:
		// A failure is already pending; Run only needs the first one.
	}
}
