// Package replyflow is a small request/reply layer on top of a pub/sub
// transport. Callers register named subjects with reply handlers; the
// service subscribes to every registered subject, decodes each inbound
// envelope, invokes the matching handler, and publishes the result to the
// requester's private reply address.
//
// The lifecycle is deliberately strict: all registration happens on a
// stopped service, Start subscribes the full binding set and launches the
// blocking dispatch loop on a supervised background goroutine, and any
// unhandled dispatch failure (malformed envelope, handler error or panic,
// transport loss) tears the loop down and restarts it with exponential
// backoff while the registry is preserved. Stop is idempotent and never
// fails.
//
// # Transports
//
// Replyflow supports 2 transports out of the box:
//   - nats: core NATS with queue groups and request inboxes
//   - channel: in-memory Go channels for testing
//
// Custom transports plug in through the transport registry or a
// ServiceDependencies.TransportFactory.
//
// # Handlers
//
// RegisterReply wires an untyped handler over decoded JSON values.
// RegisterJSONReply and RegisterProtoReply add typed registration on top:
// the envelope's data is converted into the handler's request type at
// dispatch time, and the returned value becomes the reply payload.
//
// A minimal setup involves filling Config, creating a Service, registering
// replies, and calling Start; see the examples directory.
package replyflow
