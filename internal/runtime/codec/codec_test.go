package codec

import (
	"errors"
	"testing"

	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
)

func TestDecodeEnvelope(t *testing.T) {
	raw := []byte(`{"id":"01ABC","pattern":"math.add","data":{"a":1,"b":2}}`)

	env, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if env.ID != "01ABC" {
		t.Errorf("ID = %q, want %q", env.ID, "01ABC")
	}
	if env.Pattern != "math.add" {
		t.Errorf("Pattern = %q, want %q", env.Pattern, "math.add")
	}
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data decoded as %T, want map", env.Data)
	}
	if data["a"] != float64(1) {
		t.Errorf("Data[a] = %v, want 1", data["a"])
	}
}

func TestDecodeEnvelopeOptionalFields(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"data":42}`))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if env.ID != "" || env.Pattern != "" {
		t.Errorf("expected absent id/pattern, got %q/%q", env.ID, env.Pattern)
	}
	if env.Data != float64(42) {
		t.Errorf("Data = %v, want 42", env.Data)
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"data":`))
	if err == nil {
		t.Fatal("expected decode error for truncated input")
	}
	var codecErr *errspkg.CodecError
	if !errors.As(err, &codecErr) {
		t.Fatalf("expected *CodecError, got %T", err)
	}
}

func TestEncodeEnvelope(t *testing.T) {
	raw, err := EncodeEnvelope(Envelope{ID: "01ABC", Data: "pong"})
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	env, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("round-trip decode failed: %v", err)
	}
	if env.ID != "01ABC" || env.Data != "pong" {
		t.Fatalf("round-trip mismatch: %+v", env)
	}
}

func TestEncodeEnvelopeUnsupportedValue(t *testing.T) {
	_, err := EncodeEnvelope(Envelope{Data: make(chan int)})
	if err == nil {
		t.Fatal("expected encode error for unsupported value")
	}
	var codecErr *errspkg.CodecError
	if !errors.As(err, &codecErr) {
		t.Fatalf("expected *CodecError, got %T", err)
	}
}

func TestRemarshal(t *testing.T) {
	type request struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	from := map[string]any{"name": "widget", "count": 3}
	var to request
	if err := Remarshal(from, &to); err != nil {
		t.Fatalf("unexpected remarshal error: %v", err)
	}
	if to.Name != "widget" || to.Count != 3 {
		t.Fatalf("remarshal mismatch: %+v", to)
	}
}
