package runtime

import (
	"context"
	"fmt"
	"reflect"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/drblury/replyflow/internal/runtime/codec"
	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
)

var protoJSONMarshalOptions = protojson.MarshalOptions{
	EmitUnpopulated: true,
}

// ProtoReplyHandler processes a protobuf request payload and returns a
// protobuf reply. A nil reply results in a null reply payload.
type ProtoReplyHandler[T proto.Message] func(ctx context.Context, req T) (proto.Message, error)

// ProtoReplyRegistration wires a protobuf reply handler to a subject. The
// envelope's data is interpreted as the protojson form of T.
type ProtoReplyRegistration[T proto.Message] struct {
	Subject string
	Queue   string
	Handler ProtoReplyHandler[T]
}

// RegisterProtoReply converts the typed protobuf handler into an untyped
// ReplyHandler and registers it.
func RegisterProtoReply[T proto.Message](svc *Service, cfg ProtoReplyRegistration[T]) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}
	// Validate the payload type up front so registration fails instead of
	// every dispatch.
	if _, err := NewProtoMessage[T](); err != nil {
		return err
	}

	return svc.registerReply(ReplyRegistration{
		Subject: cfg.Subject,
		Queue:   cfg.Queue,
		Handler: func(ctx context.Context, data any) (any, error) {
			raw, err := codec.Marshal(data)
			if err != nil {
				return nil, errspkg.NewCodecError(err)
			}

			req, err := NewProtoMessage[T]()
			if err != nil {
				return nil, err
			}
			if err := protojson.Unmarshal(raw, req); err != nil {
				return nil, errspkg.NewCodecError(err)
			}

			out, err := cfg.Handler(ctx, req)
			if err != nil {
				return nil, err
			}
			if out == nil {
				return nil, nil
			}

			encoded, err := protoJSONMarshalOptions.Marshal(out)
			if err != nil {
				return nil, errspkg.NewCodecError(err)
			}
			var value any
			if err := codec.Unmarshal(encoded, &value); err != nil {
				return nil, errspkg.NewCodecError(err)
			}
			return value, nil
		},
	})
}

// NewProtoMessage instantiates a zero-value protobuf message for the
// provided generic type. T must be a pointer to a generated message struct.
func NewProtoMessage[T proto.Message]() (T, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil {
		return zero, errspkg.ErrPayloadRequired
	}
	if typ.Kind() != reflect.Ptr {
		return zero, errspkg.ErrPayloadRequired
	}

	inst := reflect.New(typ.Elem()).Interface()
	typed, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected prototype type %s", typ)
	}
	return typed, nil
}

// MustProtoMessage instantiates the protobuf message and panics if the type
// cannot be created.
func MustProtoMessage[T proto.Message]() T {
	msg, err := NewProtoMessage[T]()
	if err != nil {
		panic(err)
	}
	return msg
}
