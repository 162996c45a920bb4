package transport

// Capabilities describes what a transport implementation supports beyond the
// base Transport contract.
type Capabilities struct {
	// Name is the transport's registry name.
	Name string `json:"name"`

	// SupportsQueueGroups reports whether a non-empty queue actually
	// load-shares delivery. Transports without native groups accept the
	// queue argument and broadcast anyway.
	SupportsQueueGroups bool `json:"supports_queue_groups"`

	// SupportsRequestInbox reports whether the transport implements the
	// Requester interface with a private per-request reply address.
	SupportsRequestInbox bool `json:"supports_request_inbox"`

	// InMemory reports whether the transport runs entirely in-process.
	InMemory bool `json:"in_memory"`
}

// NATSCapabilities describes the core NATS transport.
var NATSCapabilities = Capabilities{
	Name:                 "nats",
	SupportsQueueGroups:  true,
	SupportsRequestInbox: true,
	InMemory:             false,
}

// ChannelCapabilities describes the in-memory channel transport.
var ChannelCapabilities = Capabilities{
	Name:                 "channel",
	SupportsQueueGroups:  false,
	SupportsRequestInbox: true,
	InMemory:             true,
}

// GetCapabilities returns the capabilities for a transport registered with
// the default registry.
func GetCapabilities(name string) Capabilities {
	return DefaultRegistry.GetCapabilities(name)
}
