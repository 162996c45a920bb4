// Package transport defines the core interfaces and types for replyflow
// transports. Each transport implementation (nats, channel) lives in its own
// sub-package and registers itself with the transport registry.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
)

// Message is one inbound delivery from a subscription. Reply is the
// transport-provided private address for the response; it may be empty when
// the requester did not ask for one.
type Message struct {
	Subject string
	Reply   string
	Data    []byte
}

// Handler consumes one inbound message. A non-nil error aborts the
// transport's run loop and surfaces through Run.
type Handler func(msg Message) error

// Transport is the narrow pub/sub contract the dispatcher runs on.
// Subscriptions must deliver messages for one subject in order; distinct
// subjects may be delivered concurrently.
type Transport interface {
	// Subscribe registers handler for subject. A non-empty queue joins the
	// transport's queue group for load-shared delivery; an empty queue
	// subscribes broadcast-style.
	Subscribe(subject, queue string, handler Handler) error

	// Publish sends data to an address, typically a message's reply address.
	Publish(address string, data []byte) error

	// Run blocks until the context is cancelled, a handler reports an error,
	// or the transport fails. It returns the first such error.
	Run(ctx context.Context) error

	// Close tears the transport down. Best effort: implementations should
	// make it safe to call after Run returned.
	Close() error
}

// Requester is implemented by transports that can issue a request and await
// the reply on a private inbox.
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// Builder is the function signature for creating a transport from config.
// Each transport package should provide a Builder function that can be
// registered.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values needed by transports. This
// interface allows transports to access only the config they need without
// depending on the full config package.
type Config interface {
	// GetPubSubSystem returns the transport type name.
	GetPubSubSystem() string

	// NATS
	GetNATSURL() string

	// Channel
	GetChannelBufferSize() int
}

// CapabilitiesProvider is implemented by transports that can report their
// capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}
