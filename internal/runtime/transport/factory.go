// Package transport bridges the runtime to the modular transport registry.
package transport

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/drblury/replyflow/internal/runtime/config"
	newtransport "github.com/drblury/replyflow/transport"

	// Import the built-in transport packages to register them.
	_ "github.com/drblury/replyflow/transport/channel"
	_ "github.com/drblury/replyflow/transport/nats"
)

// Aliases so the runtime does not import two transport packages everywhere.
type (
	Transport = newtransport.Transport
	Message   = newtransport.Message
	Handler   = newtransport.Handler
	Requester = newtransport.Requester
)

// Factory abstracts how replyflow initialises message transports.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
}

// DefaultFactory returns the built-in transport factory that uses the
// modular transport registry.
func DefaultFactory() Factory {
	return defaultFactory{}
}

type defaultFactory struct{}

func (defaultFactory) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return nil, fmt.Errorf("config is required")
	}

	return newtransport.Build(ctx, conf, logger)
}
