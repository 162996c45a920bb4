package runtime

import (
	"context"

	"github.com/drblury/replyflow/internal/runtime/codec"
	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
)

// JSONReplyHandler processes a typed request payload and returns a typed
// reply.
type JSONReplyHandler[T any, O any] func(ctx context.Context, req T) (O, error)

// JSONReplyRegistration wires a typed JSON reply handler to a subject.
type JSONReplyRegistration[T any, O any] struct {
	Subject string
	Queue   string
	Handler JSONReplyHandler[T, O]
}

// RegisterJSONReply converts the typed handler into an untyped ReplyHandler
// and registers it. The envelope's data is re-marshalled into T at dispatch
// time; a payload that does not fit T is a codec failure, handled like any
// other malformed message.
func RegisterJSONReply[T any, O any](svc *Service, cfg JSONReplyRegistration[T, O]) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}

	return svc.registerReply(ReplyRegistration{
		Subject: cfg.Subject,
		Queue:   cfg.Queue,
		Handler: func(ctx context.Context, data any) (any, error) {
			var req T
			if err := codec.Remarshal(data, &req); err != nil {
				return nil, err
			}
			return cfg.Handler(ctx, req)
		},
	})
}
