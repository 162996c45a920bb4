package codec

import (
	"github.com/bytedance/sonic"

	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
)

var defaultConfig = sonic.ConfigStd

// Envelope is the wire form of one request or reply. Data holds an arbitrary
// structured value; ID and Pattern are optional correlation metadata set by
// the requester.
type Envelope struct {
	ID      string `json:"id,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Data    any    `json:"data"`
}

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// DecodeEnvelope parses one inbound message. Malformed input is a fatal
// dispatch error, reported as a *errors.CodecError.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := defaultConfig.Unmarshal(raw, &env); err != nil {
		return Envelope{}, errspkg.NewCodecError(err)
	}
	return env, nil
}

// EncodeEnvelope serialises a reply envelope for publishing. Failures are
// reported as a *errors.CodecError.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	raw, err := defaultConfig.Marshal(env)
	if err != nil {
		return nil, errspkg.NewCodecError(err)
	}
	return raw, nil
}

// Remarshal converts an already-decoded structured value into the typed
// target, bridging untyped envelope data and typed handlers.
func Remarshal(from any, to any) error {
	raw, err := defaultConfig.Marshal(from)
	if err != nil {
		return errspkg.NewCodecError(err)
	}
	if err := defaultConfig.Unmarshal(raw, to); err != nil {
		return errspkg.NewCodecError(err)
	}
	return nil
}
