package replyflow

import (
	"google.golang.org/protobuf/proto"

	runtimepkg "github.com/drblury/replyflow/internal/runtime"
	codecpkg "github.com/drblury/replyflow/internal/runtime/codec"
	configpkg "github.com/drblury/replyflow/internal/runtime/config"
	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
	idspkg "github.com/drblury/replyflow/internal/runtime/ids"
	loggingpkg "github.com/drblury/replyflow/internal/runtime/logging"
	newtransport "github.com/drblury/replyflow/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies

	ReplyHandler      = runtimepkg.ReplyHandler
	ReplyRegistration = runtimepkg.ReplyRegistration

	JSONReplyHandler[T any, O any]      = runtimepkg.JSONReplyHandler[T, O]
	JSONReplyRegistration[T any, O any] = runtimepkg.JSONReplyRegistration[T, O]

	ProtoReplyHandler[T proto.Message]      = runtimepkg.ProtoReplyHandler[T]
	ProtoReplyRegistration[T proto.Message] = runtimepkg.ProtoReplyRegistration[T]

	BindingInfo  = runtimepkg.BindingInfo
	BindingStats = runtimepkg.BindingStats

	Envelope = codecpkg.Envelope

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ConfigValidationError = errspkg.ConfigValidationError
	CodecError            = errspkg.CodecError
	HandlerError          = errspkg.HandlerError
	TransportError        = errspkg.TransportError

	// Modular transport types.
	Transport             = newtransport.Transport
	TransportMessage      = newtransport.Message
	TransportHandler      = newtransport.Handler
	TransportRequester    = newtransport.Requester
	TransportBuilder      = newtransport.Builder
	TransportConfig       = newtransport.Config
	TransportRegistry     = newtransport.Registry
	TransportCapabilities = newtransport.Capabilities
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	ValidateConfig = configpkg.ValidateConfig

	RegisterReply = runtimepkg.RegisterReply

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger

	ErrServiceRequired  = errspkg.ErrServiceRequired
	ErrHandlerRequired  = errspkg.ErrHandlerRequired
	ErrSubjectRequired  = errspkg.ErrSubjectRequired
	ErrDuplicateSubject = errspkg.ErrDuplicateSubject
	ErrAlreadyRunning   = errspkg.ErrAlreadyRunning
	ErrConfigRequired   = errspkg.ErrConfigRequired

	CreateULID  = idspkg.CreateULID
	CreateInbox = idspkg.CreateInbox

	// Modular transport registry. Import individual transports via:
	//   _ "github.com/drblury/replyflow/transport/nats"
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build
	GetTransportCapabilities = newtransport.GetCapabilities
)

// RegisterJSONReply converts the typed JSON handler into an untyped reply
// handler and registers it.
func RegisterJSONReply[T any, O any](svc *Service, cfg JSONReplyRegistration[T, O]) error {
	return runtimepkg.RegisterJSONReply(svc, cfg)
}

// RegisterProtoReply converts the typed protobuf handler into an untyped
// reply handler and registers it.
func RegisterProtoReply[T proto.Message](svc *Service, cfg ProtoReplyRegistration[T]) error {
	return runtimepkg.RegisterProtoReply(svc, cfg)
}

// NewProtoMessage instantiates a zero-value protobuf message for the provided generic type.
func NewProtoMessage[T proto.Message]() (T, error) {
	return runtimepkg.NewProtoMessage[T]()
}

// MustProtoMessage instantiates the protobuf message and panics if the type cannot be created.
func MustProtoMessage[T proto.Message]() T {
	return runtimepkg.MustProtoMessage[T]()
}
