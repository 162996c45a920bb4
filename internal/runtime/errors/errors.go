package errors

import sterrors "errors"

var (
	ErrServiceRequired  = sterrors.New("replyflow: reply service is required")
	ErrHandlerRequired  = sterrors.New("replyflow: reply handler is required")
	ErrSubjectRequired  = sterrors.New("replyflow: subject is required")
	ErrDuplicateSubject = sterrors.New("replyflow: subject is already registered")
	ErrAlreadyRunning   = sterrors.New("replyflow: service is running, register replies before Start")
	ErrConfigRequired   = sterrors.New("replyflow: configuration is required")
	ErrPayloadRequired  = sterrors.New("replyflow: payload type must be a pointer")
)

// ConfigValidationError wraps configuration problems detected before the
// service is constructed.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "replyflow: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error { return e.Err }

// NewConfigValidationError wraps err in a ConfigValidationError. Returns nil
// when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}

// CodecError marks a malformed inbound or outbound envelope. Decoding
// failures are fatal for the dispatch loop, so the supervisor sees them.
type CodecError struct {
	Err error
}

func (e *CodecError) Error() string {
	return "replyflow: codec failure: " + e.Err.Error()
}

func (e *CodecError) Unwrap() error { return e.Err }

// NewCodecError wraps err in a *CodecError. Returns nil when err is nil.
func NewCodecError(err error) error {
	if err == nil {
		return nil
	}
	return &CodecError{Err: err}
}

// HandlerError carries a failure raised by a registered reply handler,
// including recovered panics.
type HandlerError struct {
	Subject string
	Err     error
}

func (e *HandlerError) Error() string {
	return "replyflow: handler for " + e.Subject + " failed: " + e.Err.Error()
}

func (e *HandlerError) Unwrap() error { return e.Err }

// NewHandlerError wraps err in a *HandlerError. Returns nil when err is nil.
func NewHandlerError(subject string, err error) error {
	if err == nil {
		return nil
	}
	return &HandlerError{Subject: subject, Err: err}
}

// TransportError marks a connection-level failure from the underlying
// pub/sub transport.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "replyflow: transport failure: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err in a *TransportError. Returns nil when err is nil.
func NewTransportError(err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Err: err}
}
